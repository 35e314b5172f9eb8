package store

import "context"

// TxFn is a function that executes within a database transaction. Store
// calls made with the ctx it receives join the transaction.
type TxFn func(ctx context.Context) error

// TxManager runs functions inside a transaction carried on the context.
// The transaction is committed if fn returns nil, or rolled back if it
// returns an error or panics. Nested calls join the outer transaction.
type TxManager interface {
	RunInTx(ctx context.Context, fn TxFn) error
}

// TxManagerFunc adapts a function to the TxManager interface.
type TxManagerFunc func(ctx context.Context, fn TxFn) error

// RunInTx calls f(ctx, fn).
func (f TxManagerFunc) RunInTx(ctx context.Context, fn TxFn) error {
	return f(ctx, fn)
}

// NoTx is a TxManager which simply calls fn. It's used by stores without
// transactional semantics, such as the in-memory store.
var NoTx TxManager = TxManagerFunc(func(ctx context.Context, fn TxFn) error {
	return fn(ctx)
})
