package record

import (
	"fmt"
)

// Status is the lifecycle state of a record.
type Status int

const (
	StatusInactive    Status = 0
	StatusActive      Status = 1
	StatusDraft       Status = 2
	StatusCompleted   Status = 3
	StatusDeleted     Status = 4
	StatusMaintenance Status = 5
	StatusApproved    Status = 6
	StatusRejected    Status = 7
)

var statusNames = map[Status]string{
	StatusInactive:    "inactive",
	StatusActive:      "active",
	StatusDraft:       "draft",
	StatusCompleted:   "completed",
	StatusDeleted:     "deleted",
	StatusMaintenance: "maintenance",
	StatusApproved:    "approved",
	StatusRejected:    "rejected",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Valid reports whether s is a member of the closed status enumeration.
func (s Status) Valid() bool {
	_, ok := statusNames[s]
	return ok
}

// Policy validates proposed status transitions against a configured
// successor table. It is a pure predicate: it never mutates the record.
type Policy struct {
	// Transitions maps each status to its allowed successor set.
	Transitions map[Status][]Status

	// RevivalTargets limits where a superadmin may move a Deleted record.
	// Empty means any non-Deleted status.
	RevivalTargets []Status
}

// DefaultTransitions returns the stock transition table.
func DefaultTransitions() map[Status][]Status {
	return map[Status][]Status{
		StatusDraft:       {StatusInactive, StatusActive, StatusDeleted, StatusMaintenance},
		StatusInactive:    {StatusActive, StatusDeleted},
		StatusActive:      {StatusInactive, StatusCompleted, StatusApproved, StatusRejected, StatusMaintenance, StatusDeleted},
		StatusMaintenance: {StatusActive, StatusInactive, StatusDeleted},
		StatusCompleted:   {StatusApproved, StatusRejected, StatusDeleted},
		StatusApproved:    {StatusCompleted, StatusDeleted},
		StatusRejected:    {StatusDraft, StatusDeleted},
		StatusDeleted:     {},
	}
}

// NewPolicy builds a Policy and validates the table for referential
// completeness: every status must have an entry and every successor must be
// a known status.
func NewPolicy(transitions map[Status][]Status, revivalTargets []Status) (*Policy, error) {
	if len(transitions) == 0 {
		transitions = DefaultTransitions()
	}
	for s := range statusNames {
		successors, ok := transitions[s]
		if !ok {
			return nil, fmt.Errorf("transition table missing entry for status %s", s)
		}
		for _, next := range successors {
			if !next.Valid() {
				return nil, fmt.Errorf("transition table for %s references unknown status %d", s, int(next))
			}
		}
	}
	for s := range transitions {
		if !s.Valid() {
			return nil, fmt.Errorf("transition table keyed by unknown status %d", int(s))
		}
	}
	for _, t := range revivalTargets {
		if !t.Valid() || t == StatusDeleted {
			return nil, fmt.Errorf("invalid revival target %d", int(t))
		}
	}
	return &Policy{Transitions: transitions, RevivalTargets: revivalTargets}, nil
}

// CanTransition reports whether moving from current to next is allowed for
// an actor with (or without) elevated privilege.
func (p *Policy) CanTransition(current, next Status, privileged bool) bool {
	return p.Check(current, next, privileged) == nil
}

// Check validates a proposed transition and returns a typed error describing
// the refusal, or nil when the transition is allowed.
func (p *Policy) Check(current, next Status, privileged bool) error {
	if current == next {
		return nil // no-op update
	}
	if current == StatusDeleted {
		if !privileged {
			return NewError(KindPermissionDenied, "deleted records cannot be modified")
		}
		if !p.revivable(next) {
			return NewError(KindInvalidTransition,
				fmt.Sprintf("cannot revive record to status %s", next))
		}
		return nil
	}
	successors, ok := p.Transitions[current]
	if !ok {
		return NewError(KindInvalidTransition,
			fmt.Sprintf("no transitions configured for status %s", current))
	}
	for _, s := range successors {
		if s == next {
			return nil
		}
	}
	return NewError(KindInvalidTransition,
		fmt.Sprintf("status cannot change from %s to %s", current, next))
}

func (p *Policy) revivable(next Status) bool {
	if next == StatusDeleted {
		return false
	}
	if len(p.RevivalTargets) == 0 {
		return next.Valid()
	}
	for _, t := range p.RevivalTargets {
		if t == next {
			return true
		}
	}
	return false
}
