// Package task runs background work requested by API writes: sending a
// broadcast and starting a flow. Tasks are persisted before they are queued
// so that a restart recovers anything pending or interrupted.
package task
