package record

import (
	"time"
)

// Record is a generic persisted entity under lifecycle management.
type Record struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Status      Status `json:"status" db:"status"`
	LockVersion int64  `json:"lock_version" db:"lock_version"`
	Detail      Detail `json:"detail" db:"detail"`
	SyncFlag    *int   `json:"sync_flag,omitempty" db:"sync_flag"`
}

// SyncPending is the SyncFlag value marking a record whose mirror copy is stale.
const SyncPending = 1

// NeedsSync reports whether the record is flagged for mirror re-sync.
func (r *Record) NeedsSync() bool {
	return r.SyncFlag != nil && *r.SyncFlag == SyncPending
}

// Detail is the structured blob persisted alongside a record. It always
// carries the change log; anything else stored in it is opaque to this core.
type Detail struct {
	ChangeLog ChangeLog `json:"changeLog"`
}

// ChangeLog is the embedded audit trail of a record. Created fields are set
// exactly once; updated fields on every effective non-delete mutation;
// deleted fields only when the record transitions to Deleted.
type ChangeLog struct {
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy string     `json:"updatedBy,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
}

// NewChangeLog builds the change log for a freshly created record.
func NewChangeLog(actor string, at time.Time) ChangeLog {
	return ChangeLog{
		CreatedAt: at,
		CreatedBy: actor,
	}
}

// Stamped returns the change log after a mutation. Deletions stamp the
// deleted fields, effective updates stamp the updated fields, and a no-op
// save returns the log unchanged so repeated saves stay idempotent.
func (c ChangeLog) Stamped(deleted, dirty bool, actor string, at time.Time) ChangeLog {
	switch {
	case deleted:
		c.DeletedAt = &at
		c.DeletedBy = actor
	case dirty:
		c.UpdatedAt = &at
		c.UpdatedBy = actor
	}
	return c
}

// PrivilegeSuperadmin permits otherwise-disallowed status transitions,
// most notably reviving a Deleted record.
const PrivilegeSuperadmin = "superadmin"

// Actor identifies who is performing a lifecycle operation. The zero value
// is not useful; use SystemActor when no identity is available.
type Actor struct {
	Name       string   `json:"name"`
	Privileges []string `json:"privileges,omitempty"`
}

// SystemActor is the fallback identity for unauthenticated callers.
func SystemActor() Actor {
	return Actor{Name: "system"}
}

// Has reports whether the actor holds the named privilege.
func (a Actor) Has(privilege string) bool {
	for _, p := range a.Privileges {
		if p == privilege {
			return true
		}
	}
	return false
}

// IsSuperadmin reports whether the actor holds the superadmin privilege.
func (a Actor) IsSuperadmin() bool {
	return a.Has(PrivilegeSuperadmin)
}
