// Package testing provides embedded NATS helpers for tests of the review
// library and its consumers.
//
// The embedded server runs in-process with JetStream enabled, stores data in
// a test temp directory, and is cleaned up automatically, so tests need no
// Docker or external NATS deployment.
package testing
