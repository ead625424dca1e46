package provisioning

import "github.com/netbill/backend/internal/domain/shared"

// Action is a named provisioning action executed against a service
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionSuspend    Action = "SUSPEND"
	ActionReactivate Action = "REACTIVATE"
	ActionDelete     Action = "DELETE"
)

// IsValid checks if the action is a valid Action
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionSuspend, ActionReactivate, ActionDelete:
		return true
	}
	return false
}

// String returns the string representation of Action
func (a Action) String() string {
	return string(a)
}

// ErrInvalidTransition is returned when an action is not valid for the
// service's current status. It is never retried.
var ErrInvalidTransition = shared.NewDomainError("INVALID_TRANSITION", "Action not valid for current service status")

// transitions maps the current status to the actions allowed from it.
//
//	pending   --create-->     active
//	active    --suspend-->    suspended
//	suspended --reactivate--> active
//	{pending,active,suspended} --delete--> terminated
var transitions = map[ServiceStatus]map[Action]ServiceStatus{
	ServiceStatusPending: {
		ActionCreate: ServiceStatusActive,
		ActionDelete: ServiceStatusTerminated,
	},
	ServiceStatusActive: {
		ActionSuspend: ServiceStatusSuspended,
		ActionDelete:  ServiceStatusTerminated,
	},
	ServiceStatusSuspended: {
		ActionReactivate: ServiceStatusActive,
		ActionDelete:     ServiceStatusTerminated,
	},
}

// CanApply reports whether the action is a legal transition from the status
func CanApply(status ServiceStatus, action Action) bool {
	_, ok := transitions[status][action]
	return ok
}

// TargetStatus returns the status the service ends in after the action
// completes successfully. The second return is false for illegal transitions.
func TargetStatus(status ServiceStatus, action Action) (ServiceStatus, bool) {
	target, ok := transitions[status][action]
	return target, ok
}
