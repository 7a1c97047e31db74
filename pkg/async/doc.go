// Package async provides safe concurrent execution primitives for background
// tasks: goroutine launch with panic recovery and timeout enforcement, and
// bounded-concurrency slice processing with per-item error reporting.
//
// The mirror re-sync sweep uses ForEach to replay flagged records against
// the secondary store without letting one slow write stall the batch.
package async
