package events

import (
	"context"
	"errors"
	"sync"
)

type batchKey struct{}

// Batch holds events emitted while a transaction is open. Tasks must not
// run against rows that may yet be rolled back, so writes emit into a batch
// which is flushed after commit or discarded on rollback.
type Batch struct {
	mu     sync.Mutex
	events []*TaskRequestEvent
}

// WithBatch returns a context which makes InMemoryEventEmitter.EmitEvent
// hold events in the returned batch instead of dispatching them.
func WithBatch(ctx context.Context) (context.Context, *Batch) {
	b := &Batch{}
	return context.WithValue(ctx, batchKey{}, b), b
}

func batchFromContext(ctx context.Context) *Batch {
	b, _ := ctx.Value(batchKey{}).(*Batch)
	return b
}

func (b *Batch) add(event *TaskRequestEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Len returns the number of held events.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Flush emits every held event through emitter, in order, and empties the
// batch. Errors from individual events are joined.
func (b *Batch) Flush(ctx context.Context, emitter EventEmitter) error {
	b.mu.Lock()
	pending := b.events
	b.events = nil
	b.mu.Unlock()

	// emit outside of any batch carried by ctx
	ctx = context.WithValue(ctx, batchKey{}, (*Batch)(nil))

	var errs []error
	for _, event := range pending {
		if err := emitter.EmitEvent(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every held event.
func (b *Batch) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
