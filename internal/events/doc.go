// Package events decouples writes from the background work they trigger.
// Creating a broadcast or a flow start emits a TaskRequestEvent; a handler
// registered by the server turns it into a persisted task. Events emitted
// inside a transaction are held in a Batch until commit.
package events
