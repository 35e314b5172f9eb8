// Package postgres implements the store contracts on PostgreSQL using pgx.
//
// Queries are built with squirrel and run against whichever Querier the
// context carries: the transaction opened by TxManager.RunInTx, or the pool
// when no transaction is active. The schema lives in embedded goose
// migrations (see Migrate).
package postgres
