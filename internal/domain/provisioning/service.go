package provisioning

import (
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/shared"
)

// ServiceType identifies how a customer service is delivered on the router
type ServiceType string

const (
	ServiceTypePPPoE  ServiceType = "PPPOE"  // PPPoE secret + queue
	ServiceTypeStatic ServiceType = "STATIC" // static IP, address list + queue
)

// IsValid checks if the service type is a valid ServiceType
func (t ServiceType) IsValid() bool {
	switch t {
	case ServiceTypePPPoE, ServiceTypeStatic:
		return true
	}
	return false
}

// String returns the string representation of ServiceType
func (t ServiceType) String() string {
	return string(t)
}

// ServiceStatus represents the lifecycle status of a service
type ServiceStatus string

const (
	ServiceStatusPending    ServiceStatus = "PENDING"    // Created locally, not yet provisioned
	ServiceStatusActive     ServiceStatus = "ACTIVE"     // Provisioned and serving traffic
	ServiceStatusSuspended  ServiceStatus = "SUSPENDED"  // Throttled/blocked for non-payment
	ServiceStatusTerminated ServiceStatus = "TERMINATED" // Remote objects removed, terminal
)

// IsValid checks if the status is a valid ServiceStatus
func (s ServiceStatus) IsValid() bool {
	switch s {
	case ServiceStatusPending, ServiceStatusActive, ServiceStatusSuspended, ServiceStatusTerminated:
		return true
	}
	return false
}

// String returns the string representation of ServiceStatus
func (s ServiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the service is in a terminal state
func (s ServiceStatus) IsTerminal() bool {
	return s == ServiceStatusTerminated
}

// Service represents a customer's provisioned network connection.
// The remote handle fields (SecretRef, QueueRef, AddressListRef) mirror objects
// that exist on the router: a non-nil handle implies the remote object exists.
// The provisioning log bridges the gap when a crash lands between a device
// mutation and the next local write.
type Service struct {
	shared.BaseEntity
	CustomerID  uuid.UUID     `json:"customer_id"`
	Name        string        `json:"name"`
	ServiceType ServiceType   `json:"service_type"`
	Status      ServiceStatus `json:"status"`
	PlanID      uuid.UUID     `json:"plan_id"`
	RouterID    uuid.UUID     `json:"router_id"`

	// Credentials / addressing used to build router commands
	Username   string `json:"username"`
	Password   string `json:"password"`
	StaticIP   string `json:"static_ip"`
	MACAddress string `json:"mac_address"`

	// Notification recipients, resolved at reminder scheduling time
	NotifyEmail  string `json:"notify_email"`
	NotifyPhone  string `json:"notify_phone"`
	NotifyChatID string `json:"notify_chat_id"`

	// Remote object handles, each set by exactly one successful create step
	// and cleared by exactly one successful delete step
	SecretRef      *string `json:"secret_ref"`
	QueueRef       *string `json:"queue_ref"`
	AddressListRef *string `json:"address_list_ref"`

	ProvisioningLog   ProvisioningLog `json:"provisioning_log"`
	LastProvisionedAt *time.Time      `json:"last_provisioned_at"`
	SuspendedAt       *time.Time      `json:"suspended_at"`
	NextBillingDate   time.Time       `json:"next_billing_date"`
}

// NewService creates a new service in pending state
func NewService(customerID uuid.UUID, name string, serviceType ServiceType, planID, routerID uuid.UUID) (*Service, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_SERVICE_NAME", "Service name cannot be empty")
	}
	if !serviceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE_TYPE", "Unknown service type: "+string(serviceType))
	}
	return &Service{
		BaseEntity:      shared.NewBaseEntity(),
		CustomerID:      customerID,
		Name:            name,
		ServiceType:     serviceType,
		Status:          ServiceStatusPending,
		PlanID:          planID,
		RouterID:        routerID,
		ProvisioningLog: ProvisioningLog{},
		NextBillingDate: time.Now(),
	}, nil
}

// AppendLog appends an entry to the provisioning log. The log is append-only;
// existing entries are never rewritten.
func (s *Service) AppendLog(entry ProvisioningLogEntry) {
	s.ProvisioningLog = append(s.ProvisioningLog, entry)
}

// MarkActive transitions the service to active after successful provisioning
func (s *Service) MarkActive() {
	now := time.Now()
	s.Status = ServiceStatusActive
	s.LastProvisionedAt = &now
	s.SuspendedAt = nil
}

// MarkSuspended transitions the service to suspended
func (s *Service) MarkSuspended() {
	now := time.Now()
	s.Status = ServiceStatusSuspended
	s.LastProvisionedAt = &now
	s.SuspendedAt = &now
}

// MarkTerminated transitions the service to its terminal state
func (s *Service) MarkTerminated() {
	now := time.Now()
	s.Status = ServiceStatusTerminated
	s.LastProvisionedAt = &now
}

// HasRemoteObjects returns true if any remote handle is still set
func (s *Service) HasRemoteObjects() bool {
	return s.SecretRef != nil || s.QueueRef != nil || s.AddressListRef != nil
}
