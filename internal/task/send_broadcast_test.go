package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/phrazzld/temba-api/internal/store"
	"github.com/phrazzld/temba-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type broadcastFixture struct {
	db    *memstore.DB
	deps  Deps
	org   *domain.Org
	group *domain.ContactGroup
	ann   *domain.Contact
	bob   *domain.Contact
	cat   *domain.Contact
}

func newBroadcastFixture(t *testing.T) *broadcastFixture {
	t.Helper()
	db := memstore.New()
	org := db.AddOrg(domain.Org{Name: "Nyaruka", PrimaryLanguage: "eng", Languages: []string{"eng", "fra"}})
	group := db.AddGroup(domain.ContactGroup{OrgID: org.ID, Name: "Reporters"})

	return &broadcastFixture{
		db:    db,
		deps:  Deps{Stores: db.Stores(), Tx: store.NoTx, Logger: setupTestLogger()},
		org:   org,
		group: group,
		ann:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Ann", Language: "fra"}, []domain.URN{"tel:+250788000001", "twitter:ann"}),
		bob:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Bob"}, []domain.URN{"tel:+250788000002"}, group),
		cat:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Cat"}, []domain.URN{"tel:+250788000003"}, group),
	}
}

func (f *broadcastFixture) newTask(t *testing.T, b *domain.Broadcast) *SendBroadcastTask {
	t.Helper()
	b.OrgID = f.org.ID
	require.NoError(t, f.deps.Stores.Broadcasts.Create(context.Background(), b))

	payload, err := json.Marshal(events.SendBroadcastPayload{OrgID: f.org.ID, BroadcastID: b.ID})
	require.NoError(t, err)
	task, err := NewSendBroadcastTask(uuid.New(), payload, f.deps)
	require.NoError(t, err)
	return task
}

func recipients(msgs []*domain.Msg) map[domain.ContactID]domain.URN {
	out := map[domain.ContactID]domain.URN{}
	for _, m := range msgs {
		out[m.Contact.ID] = m.ContactURN.Identity
	}
	return out
}

func TestSendBroadcastTask_Execute(t *testing.T) {
	f := newBroadcastFixture(t)

	task := f.newTask(t, &domain.Broadcast{
		Text:         "Hello",
		Translations: map[string]string{"eng": "Hello", "fra": "Bonjour"},
		// the explicit twitter URN beats Ann's preferred tel URN
		URNs:     []*domain.ContactURN{f.ann.URNs[1]},
		Contacts: []*domain.Contact{f.ann, f.bob},
		Groups:   []*domain.ContactGroup{f.group},
	})
	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, task.Status())

	msgs := f.db.Msgs()
	require.Len(t, msgs, 3)
	assert.Equal(t, map[domain.ContactID]domain.URN{
		f.ann.ID: "twitter:ann",
		f.bob.ID: "tel:+250788000002",
		f.cat.ID: "tel:+250788000003",
	}, recipients(msgs))

	for _, m := range msgs {
		assert.Equal(t, domain.MsgStatusQueued, m.Status)
		assert.Equal(t, domain.MsgDirectionOut, m.Direction)
		assert.Equal(t, domain.MsgTypeInbox, m.MsgType)
		if m.Contact.ID == f.ann.ID {
			assert.Equal(t, "Bonjour", m.Text)
		} else {
			assert.Equal(t, "Hello", m.Text)
		}
	}
}

func TestSendBroadcastTask_SkipsBlockedAndStopped(t *testing.T) {
	f := newBroadcastFixture(t)
	f.db.SetContactStatus(f.bob.ID, true, false, true)
	f.db.SetContactStatus(f.cat.ID, false, true, true)

	task := f.newTask(t, &domain.Broadcast{Text: "Hi", Groups: []*domain.ContactGroup{f.group}, Contacts: []*domain.Contact{f.ann}})
	require.NoError(t, task.Execute(context.Background()))

	msgs := f.db.Msgs()
	require.Len(t, msgs, 1)
	assert.Equal(t, f.ann.ID, msgs[0].Contact.ID)
}

func TestSendBroadcastTask_SkipsContactsWithoutURNs(t *testing.T) {
	f := newBroadcastFixture(t)
	ghost := f.db.AddContact(domain.Contact{OrgID: f.org.ID, Name: "Ghost"}, nil)

	task := f.newTask(t, &domain.Broadcast{Text: "Hi", Contacts: []*domain.Contact{ghost}})
	require.NoError(t, task.Execute(context.Background()))
	assert.Empty(t, f.db.Msgs())
}

func TestSendBroadcastTask_MissingBroadcast(t *testing.T) {
	f := newBroadcastFixture(t)
	payload, err := json.Marshal(events.SendBroadcastPayload{OrgID: f.org.ID, BroadcastID: 999999})
	require.NoError(t, err)

	task, err := NewSendBroadcastTask(uuid.New(), payload, f.deps)
	require.NoError(t, err)

	err = task.Execute(context.Background())
	assert.ErrorIs(t, err, store.ErrBroadcastNotFound)
	assert.Equal(t, TaskStatusFailed, task.Status())
}

func TestNewSendBroadcastTask_Validation(t *testing.T) {
	deps := Deps{Stores: memstore.New().Stores(), Tx: store.NoTx, Logger: setupTestLogger()}

	_, err := NewSendBroadcastTask(uuid.New(), []byte(`{"org_id":1,"broadcast_id":2}`), Deps{})
	assert.ErrorIs(t, err, ErrNilStores)

	_, err = NewSendBroadcastTask(uuid.New(), []byte(`not json`), deps)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = NewSendBroadcastTask(uuid.New(), []byte(`{"org_id":1}`), deps)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	task, err := NewSendBroadcastTask(uuid.New(), []byte(`{"org_id":1,"broadcast_id":2}`), deps)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendBroadcast, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())
}
