// Package store declares the repositories the API reads and writes through.
//
// Every method is scoped to an org and only sees active rows. Lookups that
// miss return an error wrapping ErrNotFound. Implementations live in
// platform/postgres and store/memstore.
package store
