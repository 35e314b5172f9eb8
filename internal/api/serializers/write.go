package serializers

import (
	"context"
	"fmt"

	"github.com/phrazzld/temba-api/internal/events"
)

// writeBase holds what every write serializer shares. A serializer is used
// for a single request.
type writeBase struct {
	deps      Deps
	rc        *Context
	lookups   lookups
	validated bool
}

func newWriteBase(deps Deps, rc *Context) writeBase {
	return writeBase{deps: deps, rc: rc, lookups: newLookups(deps, rc)}
}

func (b *writeBase) run(ctx context.Context, body []byte, s stages) error {
	b.validated = false
	if err := runStages(ctx, body, s); err != nil {
		return err
	}
	b.validated = true
	return nil
}

func (b *writeBase) checkValidated() error {
	if !b.validated {
		return ErrNotValidated
	}
	return nil
}

// emit hands a task request to the event emitter. Inside a transaction
// the emitter holds it until commit.
func (b *writeBase) emit(ctx context.Context, event *events.TaskRequestEvent, err error) error {
	if err != nil {
		return fmt.Errorf("creating task event: %w", err)
	}
	if b.deps.Events == nil {
		return nil
	}
	if err := b.deps.Events.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("emitting %s event: %w", event.Type, err)
	}
	return nil
}
