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

type startFixture struct {
	db    *memstore.DB
	deps  Deps
	org   *domain.Org
	flow  *domain.Flow
	group *domain.ContactGroup
	ann   *domain.Contact
	bob   *domain.Contact
	cat   *domain.Contact
}

func newStartFixture(t *testing.T) *startFixture {
	t.Helper()
	db := memstore.New()
	org := db.AddOrg(domain.Org{Name: "Nyaruka"})
	group := db.AddGroup(domain.ContactGroup{OrgID: org.ID, Name: "Farmers"})

	return &startFixture{
		db:    db,
		deps:  Deps{Stores: db.Stores(), Tx: store.NoTx, Logger: setupTestLogger()},
		org:   org,
		flow:  db.AddFlow(domain.Flow{OrgID: org.ID, Name: "Registration"}),
		group: group,
		ann:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Ann"}, []domain.URN{"tel:+250788000001"}),
		bob:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Bob"}, []domain.URN{"tel:+250788000002"}, group),
		cat:   db.AddContact(domain.Contact{OrgID: org.ID, Name: "Cat"}, []domain.URN{"tel:+250788000003"}, group),
	}
}

func (f *startFixture) newTask(t *testing.T, start *domain.FlowStart) *StartFlowTask {
	t.Helper()
	start.OrgID = f.org.ID
	start.Flow = f.flow
	require.NoError(t, f.deps.Stores.FlowStarts.Create(context.Background(), start))

	payload, err := json.Marshal(events.StartFlowPayload{OrgID: f.org.ID, StartID: start.ID})
	require.NoError(t, err)
	task, err := NewStartFlowTask(uuid.New(), payload, f.deps)
	require.NoError(t, err)
	return task
}

func (f *startFixture) runs(t *testing.T) []*domain.FlowRun {
	t.Helper()
	runs, err := f.deps.Stores.FlowRuns.List(context.Background(), f.org.ID, store.ListOptions{})
	require.NoError(t, err)
	return runs
}

func (f *startFixture) status(t *testing.T, id domain.FlowStartID) domain.FlowStartStatus {
	t.Helper()
	start, err := f.deps.Stores.FlowStarts.GetByID(context.Background(), f.org.ID, id)
	require.NoError(t, err)
	return start.Status
}

func TestStartFlowTask_Execute(t *testing.T) {
	f := newStartFixture(t)
	extra := map[string]any{"source": "api"}

	start := &domain.FlowStart{
		Contacts: []*domain.Contact{f.ann, f.bob},
		Groups:   []*domain.ContactGroup{f.group},
		Extra:    extra,
	}
	task := f.newTask(t, start)
	require.NoError(t, task.Execute(context.Background()))

	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Equal(t, domain.FlowStartStatusComplete, f.status(t, start.ID))

	runs := f.runs(t)
	require.Len(t, runs, 3)
	contacts := map[domain.ContactID]bool{}
	for _, run := range runs {
		contacts[run.Contact.ID] = true
		assert.Equal(t, start.ID, run.StartID)
		assert.Equal(t, f.flow.ID, run.Flow.ID)
		assert.True(t, run.IsActive)
		assert.Equal(t, extra, run.Fields)
	}
	assert.Equal(t, map[domain.ContactID]bool{f.ann.ID: true, f.bob.ID: true, f.cat.ID: true}, contacts)
}

func TestStartFlowTask_SkipsParticipants(t *testing.T) {
	f := newStartFixture(t)
	f.db.AddRun(domain.FlowRun{OrgID: f.org.ID, Flow: f.flow, Contact: f.ann})
	f.db.SetContactStatus(f.cat.ID, true, false, true)

	task := f.newTask(t, &domain.FlowStart{Contacts: []*domain.Contact{f.ann, f.bob, f.cat}})
	require.NoError(t, task.Execute(context.Background()))

	// Ann's earlier run plus a new one for Bob
	runs := f.runs(t)
	require.Len(t, runs, 2)
	started := 0
	for _, run := range runs {
		if run.StartID != domain.NilFlowStartID {
			started++
			assert.Equal(t, f.bob.ID, run.Contact.ID)
		}
	}
	assert.Equal(t, 1, started)
}

func TestStartFlowTask_RestartParticipants(t *testing.T) {
	f := newStartFixture(t)
	f.db.AddRun(domain.FlowRun{OrgID: f.org.ID, Flow: f.flow, Contact: f.ann})

	task := f.newTask(t, &domain.FlowStart{Contacts: []*domain.Contact{f.ann}, RestartParticipants: true})
	require.NoError(t, task.Execute(context.Background()))

	assert.Len(t, f.runs(t), 2)
}

func TestStartFlowTask_AlreadyHandled(t *testing.T) {
	f := newStartFixture(t)
	start := &domain.FlowStart{Contacts: []*domain.Contact{f.ann}, Status: domain.FlowStartStatusComplete}
	task := f.newTask(t, start)

	require.NoError(t, task.Execute(context.Background()))
	assert.Empty(t, f.runs(t))
	assert.Equal(t, domain.FlowStartStatusComplete, f.status(t, start.ID))
}

func TestStartFlowTask_MissingStart(t *testing.T) {
	f := newStartFixture(t)
	payload, err := json.Marshal(events.StartFlowPayload{OrgID: f.org.ID, StartID: 424242})
	require.NoError(t, err)

	task, err := NewStartFlowTask(uuid.New(), payload, f.deps)
	require.NoError(t, err)

	assert.ErrorIs(t, task.Execute(context.Background()), store.ErrFlowStartNotFound)
	assert.Equal(t, TaskStatusFailed, task.Status())
}

func TestNewStartFlowTask_Validation(t *testing.T) {
	deps := Deps{Stores: memstore.New().Stores(), Tx: store.NoTx, Logger: setupTestLogger()}

	_, err := NewStartFlowTask(uuid.New(), []byte(`{"org_id":1,"start_id":2}`), Deps{})
	assert.ErrorIs(t, err, ErrNilStores)

	_, err = NewStartFlowTask(uuid.New(), []byte(`{"start_id":2}`), deps)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	task, err := NewStartFlowTask(uuid.New(), []byte(`{"org_id":1,"start_id":2}`), deps)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeStartFlow, task.Type())
}
