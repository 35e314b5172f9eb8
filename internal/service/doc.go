// Package service holds the account operations used to provision API
// access: creating orgs and users, and issuing their bearer tokens.
//
// Message, contact and flow writes don't go through this package; the
// API's write serializers call the stores directly.
package service
