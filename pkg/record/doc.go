// Package record defines the core domain model for lifecycle-managed records.
//
// # Overview
//
// A Record is a soft-deleted, optimistically locked entity. Its status moves
// through a configured transition table, its audit trail lives in an embedded
// change log, and "deletion" is a status transition rather than row removal.
//
// # Status Transitions
//
// Statuses form a closed enumeration (Inactive, Active, Draft, Completed,
// Deleted, Maintenance, Approved, Rejected). A Policy holds the allowed
// successor set per status and answers whether a proposed transition is
// permitted for the acting identity. Reviving a Deleted record requires the
// superadmin privilege.
//
// # Optimistic Locking
//
// Every record carries a lock version starting at 1. Mutating requests must
// supply the version they read; the storage layer performs the
// compare-and-swap increment, and CheckVersion rejects stale versions up
// front with a LockConflict error.
//
// # Usage Example
//
// Check a transition and stamp the change log:
//
//	if err := policy.Check(rec.Status, next, actor.IsSuperadmin()); err != nil {
//		return err
//	}
//	rec.Detail.ChangeLog = rec.Detail.ChangeLog.Stamped(next == record.StatusDeleted, true, actor.Name, time.Now().UTC())
//
// # Related Packages
//
//   - pkg/lifecycle: Orchestrates create/update/delete over records
//   - pkg/query: Filter and pagination primitives for record reads
package record
