package serializers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/events"
	"github.com/phrazzld/temba-api/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}

func (e *recordingEmitter) emitted() []*events.TaskRequestEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*events.TaskRequestEvent(nil), e.events...)
}

type fixture struct {
	db      *memstore.DB
	emitter *recordingEmitter
	deps    Deps
	org     *domain.Org
	user    *domain.User
	rc      *Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memstore.New()
	emitter := &recordingEmitter{}
	org := db.AddOrg(domain.Org{Name: "Nyaruka", PrimaryLanguage: "eng", Languages: []string{"eng", "fra"}})
	user := db.AddUser(domain.User{Email: "admin@nyaruka.com"})

	return &fixture{
		db:      db,
		emitter: emitter,
		deps:    Deps{Stores: db.Stores(), Events: emitter},
		org:     org,
		user:    user,
		rc:      &Context{Org: org, User: user},
	}
}

// requireErrors asserts err is a ValidationErrors and returns it.
func requireErrors(t *testing.T, err error) ValidationErrors {
	t.Helper()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation), "expected a validation error, got %v", err)

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %T", err)
	return verrs
}

func TestValidationErrorsError(t *testing.T) {
	errs := ValidationErrors{}
	errs.Add("name", msgRequired)
	errs.Add(NonFieldErrors, msgNoRecipients)

	assert.True(t, errs.Has("name"))
	assert.False(t, errs.Has("urns"))
	assert.Equal(t,
		"validation failed: name: This field is required.; non_field_errors: Must provide either urns, contacts or groups",
		errs.Error())
	assert.ErrorIs(t, errs, domain.ErrValidation)
}

func TestValidateBodyShape(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"list", `[{"name": "VIPs"}]`, msgNotObject},
		{"string", `"VIPs"`, msgNotObject},
		{"number", `42`, msgNotObject},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewGroupWriteSerializer(f.deps, f.rc, nil)
			errs := requireErrors(t, s.Validate(ctx, []byte(tc.body)))
			assert.Equal(t, ValidationErrors{NonFieldErrors: {tc.wantMsg}}, errs)
		})
	}

	t.Run("malformed", func(t *testing.T) {
		s := NewGroupWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, []byte(`{"name": `)))
		require.Len(t, errs[NonFieldErrors], 1)
		assert.Contains(t, errs[NonFieldErrors][0], "JSON parse error - ")
	})

	t.Run("empty body is an empty object", func(t *testing.T) {
		s := NewGroupWriteSerializer(f.deps, f.rc, nil)
		errs := requireErrors(t, s.Validate(ctx, nil))
		assert.Equal(t, ValidationErrors{"name": {msgRequired}}, errs)
	})
}

func TestValidateTypeErrors(t *testing.T) {
	f := newFixture(t)
	s := NewBroadcastWriteSerializer(f.deps, f.rc)

	body := `{"text": ["hi"], "urns": "tel:+250788123123", "contacts": [true], "groups": {"a": 1}, "channel": null}`
	errs := requireErrors(t, s.Validate(context.Background(), []byte(body)))

	assert.Equal(t, []string{msgNotString}, errs["text"])
	assert.Equal(t, []string{`Expected a list of items but got type "str".`}, errs["urns"])
	assert.Equal(t, []string{msgNotRef}, errs["contacts"])
	assert.Equal(t, []string{`Expected a list of items but got type "dict".`}, errs["groups"])
	assert.Equal(t, []string{msgNull}, errs["channel"])
}

func TestValidateInvalidURN(t *testing.T) {
	f := newFixture(t)
	s := NewBroadcastWriteSerializer(f.deps, f.rc)

	body := `{"text": "Hi", "urns": ["tel:+250788123123", "foo:bar"]}`
	errs := requireErrors(t, s.Validate(context.Background(), []byte(body)))
	assert.Equal(t, ValidationErrors{"urns": {"Invalid URN: foo:bar"}}, errs)
}

func TestSaveBeforeValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saves := map[string]func() error{
		"broadcast": func() error {
			_, err := NewBroadcastWriteSerializer(f.deps, f.rc).Save(ctx)
			return err
		},
		"campaign": func() error {
			_, err := NewCampaignWriteSerializer(f.deps, f.rc, nil).Save(ctx)
			return err
		},
		"campaign event": func() error {
			_, err := NewCampaignEventWriteSerializer(f.deps, f.rc, nil).Save(ctx)
			return err
		},
		"contact": func() error {
			_, err := NewContactWriteSerializer(f.deps, f.rc, nil).Save(ctx)
			return err
		},
		"group": func() error {
			_, err := NewGroupWriteSerializer(f.deps, f.rc, nil).Save(ctx)
			return err
		},
		"label": func() error {
			_, err := NewLabelWriteSerializer(f.deps, f.rc, nil).Save(ctx)
			return err
		},
		"flow start": func() error {
			_, err := NewFlowStartWriteSerializer(f.deps, f.rc).Save(ctx)
			return err
		},
		"subscriber": func() error {
			_, err := NewResthookSubscriberWriteSerializer(f.deps, f.rc).Save(ctx)
			return err
		},
	}

	for name, save := range saves {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, save(), ErrNotValidated)
		})
	}

	t.Run("after failed validation", func(t *testing.T) {
		s := NewGroupWriteSerializer(f.deps, f.rc, nil)
		require.Error(t, s.Validate(ctx, []byte(`{"name": ""}`)))
		_, err := s.Save(ctx)
		assert.ErrorIs(t, err, ErrNotValidated)
	})
}
