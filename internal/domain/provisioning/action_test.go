package provisioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanApply(t *testing.T) {
	tests := []struct {
		name    string
		status  ServiceStatus
		action  Action
		allowed bool
	}{
		{"create from pending", ServiceStatusPending, ActionCreate, true},
		{"suspend from active", ServiceStatusActive, ActionSuspend, true},
		{"reactivate from suspended", ServiceStatusSuspended, ActionReactivate, true},
		{"delete from pending", ServiceStatusPending, ActionDelete, true},
		{"delete from active", ServiceStatusActive, ActionDelete, true},
		{"delete from suspended", ServiceStatusSuspended, ActionDelete, true},
		{"create from active", ServiceStatusActive, ActionCreate, false},
		{"suspend from pending", ServiceStatusPending, ActionSuspend, false},
		{"suspend from suspended", ServiceStatusSuspended, ActionSuspend, false},
		{"reactivate from active", ServiceStatusActive, ActionReactivate, false},
		{"anything from terminated", ServiceStatusTerminated, ActionDelete, false},
		{"create from terminated", ServiceStatusTerminated, ActionCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanApply(tt.status, tt.action))
		})
	}
}

func TestTargetStatus(t *testing.T) {
	target, ok := TargetStatus(ServiceStatusPending, ActionCreate)
	assert.True(t, ok)
	assert.Equal(t, ServiceStatusActive, target)

	target, ok = TargetStatus(ServiceStatusActive, ActionSuspend)
	assert.True(t, ok)
	assert.Equal(t, ServiceStatusSuspended, target)

	target, ok = TargetStatus(ServiceStatusSuspended, ActionReactivate)
	assert.True(t, ok)
	assert.Equal(t, ServiceStatusActive, target)

	_, ok = TargetStatus(ServiceStatusTerminated, ActionReactivate)
	assert.False(t, ok)
}
