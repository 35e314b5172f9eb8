// Package api serves the v2 JSON API. Handlers authenticate the caller,
// page lists through the stores and render them with the read serializers,
// and run write serializers inside a transaction whose task events are only
// dispatched once it has committed.
package api
