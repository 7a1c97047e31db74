// Package lifecycle orchestrates every record mutation.
//
// # Overview
//
// The Service is the only writer in the system. Each request moves through a
// fixed pipeline: scenario field validation, status policy and optimistic
// lock checks, the dependency guard, no-op rejection, change-log stamping,
// the version-checked persist, and finally the best-effort mirror write.
// Any failure short-circuits into a typed record error without touching
// storage.
//
// # Scenarios
//
// Each mutation runs under a named scenario (create, update, delete) that
// declares which input fields are permitted and which are required. Unknown
// fields are rejected rather than ignored.
//
// # Mirroring
//
// When a mirror store is configured, every successful write is copied to it
// fire-and-forget: a mirror failure flags the record (sync_flag = 1) and the
// request still succeeds. The Sweeper replays flagged records on a cron
// schedule until the mirror catches up.
//
// # Usage Example
//
//	svc := lifecycle.NewService(store, policy, lifecycle.Options{Mirror: mirror})
//	rec, err := svc.Create(ctx, actor, lifecycle.Input{"name": "Item A"})
//	if record.IsKind(err, record.KindValidation) {
//		// surface field errors to the caller
//	}
//
// # Related Packages
//
//   - pkg/record: Domain types, status policy, error taxonomy
//   - pkg/storage: Primary and mirror store interfaces
package lifecycle
