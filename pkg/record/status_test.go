package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicyValidatesTable(t *testing.T) {
	tests := []struct {
		name        string
		transitions map[Status][]Status
		revival     []Status
		wantErr     bool
	}{
		{
			name:        "default table is complete",
			transitions: DefaultTransitions(),
			wantErr:     false,
		},
		{
			name: "missing status entry",
			transitions: map[Status][]Status{
				StatusDraft: {StatusActive},
			},
			wantErr: true,
		},
		{
			name: "unknown successor",
			transitions: func() map[Status][]Status {
				m := DefaultTransitions()
				m[StatusDraft] = append(m[StatusDraft], Status(42))
				return m
			}(),
			wantErr: true,
		},
		{
			name: "unknown table key",
			transitions: func() map[Status][]Status {
				m := DefaultTransitions()
				m[Status(99)] = nil
				return m
			}(),
			wantErr: true,
		},
		{
			name:        "deleted is not a revival target",
			transitions: DefaultTransitions(),
			revival:     []Status{StatusDeleted},
			wantErr:     true,
		},
		{
			name:        "valid revival targets",
			transitions: DefaultTransitions(),
			revival:     []Status{StatusActive, StatusInactive},
			wantErr:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPolicy(tt.transitions, tt.revival)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyCheck(t *testing.T) {
	policy, err := NewPolicy(DefaultTransitions(), nil)
	require.NoError(t, err)

	tests := []struct {
		name       string
		current    Status
		next       Status
		privileged bool
		wantKind   Kind
		wantOK     bool
	}{
		{name: "no-op is always allowed", current: StatusCompleted, next: StatusCompleted, wantOK: true},
		{name: "draft to active", current: StatusDraft, next: StatusActive, wantOK: true},
		{name: "active to completed", current: StatusActive, next: StatusCompleted, wantOK: true},
		{name: "completed regression denied", current: StatusCompleted, next: StatusDraft, wantKind: KindInvalidTransition},
		{name: "plain actor cannot revive", current: StatusDeleted, next: StatusActive, wantKind: KindPermissionDenied},
		{name: "superadmin revival", current: StatusDeleted, next: StatusActive, privileged: true, wantOK: true},
		{name: "superadmin revival to any non-deleted status", current: StatusDeleted, next: StatusRejected, privileged: true, wantOK: true},
		{name: "unknown current status", current: Status(42), next: StatusActive, wantKind: KindInvalidTransition},
		{name: "privilege does not bypass the table", current: StatusApproved, next: StatusDraft, privileged: true, wantKind: KindInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Check(tt.current, tt.next, tt.privileged)
			if tt.wantOK {
				assert.NoError(t, err)
				assert.True(t, policy.CanTransition(tt.current, tt.next, tt.privileged))
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.False(t, policy.CanTransition(tt.current, tt.next, tt.privileged))
		})
	}
}

func TestPolicyCheckTableCompleteness(t *testing.T) {
	policy, err := NewPolicy(DefaultTransitions(), nil)
	require.NoError(t, err)

	// Every pair not listed in the table must be refused, except no-ops and
	// privileged revival from Deleted.
	for current, successors := range DefaultTransitions() {
		allowed := map[Status]bool{current: true}
		for _, s := range successors {
			allowed[s] = true
		}
		for next := range map[Status]string{
			StatusInactive: "", StatusActive: "", StatusDraft: "", StatusCompleted: "",
			StatusDeleted: "", StatusMaintenance: "", StatusApproved: "", StatusRejected: "",
		} {
			got := policy.CanTransition(current, next, false)
			assert.Equal(t, allowed[next], got, "transition %s -> %s", current, next)
		}
	}
}

func TestPolicyRevivalTargets(t *testing.T) {
	policy, err := NewPolicy(DefaultTransitions(), []Status{StatusInactive})
	require.NoError(t, err)

	assert.True(t, policy.CanTransition(StatusDeleted, StatusInactive, true))
	err = policy.Check(StatusDeleted, StatusActive, true)
	require.Error(t, err)
	assert.Equal(t, KindInvalidTransition, KindOf(err))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusDraft.Valid())
	assert.True(t, StatusRejected.Valid())
	assert.False(t, Status(8).Valid())
	assert.Equal(t, "draft", StatusDraft.String())
	assert.Equal(t, "status(42)", Status(42).String())
}
