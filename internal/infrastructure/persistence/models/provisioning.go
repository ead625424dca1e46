package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/shopspring/decimal"
)

// ServiceModel is the persistence model for the Service aggregate root
type ServiceModel struct {
	BaseModel
	CustomerID  uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Name        string                     `gorm:"type:varchar(100);not null;uniqueIndex"`
	ServiceType provisioning.ServiceType   `gorm:"type:varchar(20);not null"`
	Status      provisioning.ServiceStatus `gorm:"type:varchar(20);not null;index"`
	PlanID      uuid.UUID                  `gorm:"type:uuid;not null;index"`
	RouterID    uuid.UUID                  `gorm:"type:uuid;not null;index"`

	Username   string `gorm:"type:varchar(100)"`
	Password   string `gorm:"type:varchar(100)"`
	StaticIP   string `gorm:"type:varchar(45)"`
	MACAddress string `gorm:"type:varchar(17)"`

	NotifyEmail  string `gorm:"type:varchar(254)"`
	NotifyPhone  string `gorm:"type:varchar(20)"`
	NotifyChatID string `gorm:"type:varchar(64)"`

	SecretRef      *string `gorm:"type:varchar(32)"`
	QueueRef       *string `gorm:"type:varchar(32)"`
	AddressListRef *string `gorm:"type:varchar(32)"`

	ProvisioningLog   provisioning.ProvisioningLog `gorm:"type:jsonb;default:'[]'"`
	LastProvisionedAt *time.Time
	SuspendedAt       *time.Time
	NextBillingDate   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ServiceModel) TableName() string {
	return "services"
}

// ToDomain converts the persistence model to a domain Service
func (m *ServiceModel) ToDomain() *provisioning.Service {
	return &provisioning.Service{
		BaseEntity:        m.BaseModel.ToDomain(),
		CustomerID:        m.CustomerID,
		Name:              m.Name,
		ServiceType:       m.ServiceType,
		Status:            m.Status,
		PlanID:            m.PlanID,
		RouterID:          m.RouterID,
		Username:          m.Username,
		Password:          m.Password,
		StaticIP:          m.StaticIP,
		MACAddress:        m.MACAddress,
		NotifyEmail:       m.NotifyEmail,
		NotifyPhone:       m.NotifyPhone,
		NotifyChatID:      m.NotifyChatID,
		SecretRef:         m.SecretRef,
		QueueRef:          m.QueueRef,
		AddressListRef:    m.AddressListRef,
		ProvisioningLog:   m.ProvisioningLog,
		LastProvisionedAt: m.LastProvisionedAt,
		SuspendedAt:       m.SuspendedAt,
		NextBillingDate:   m.NextBillingDate,
	}
}

// ServiceModelFromDomain builds a persistence model from a domain Service
func ServiceModelFromDomain(s *provisioning.Service) *ServiceModel {
	m := &ServiceModel{
		CustomerID:        s.CustomerID,
		Name:              s.Name,
		ServiceType:       s.ServiceType,
		Status:            s.Status,
		PlanID:            s.PlanID,
		RouterID:          s.RouterID,
		Username:          s.Username,
		Password:          s.Password,
		StaticIP:          s.StaticIP,
		MACAddress:        s.MACAddress,
		NotifyEmail:       s.NotifyEmail,
		NotifyPhone:       s.NotifyPhone,
		NotifyChatID:      s.NotifyChatID,
		SecretRef:         s.SecretRef,
		QueueRef:          s.QueueRef,
		AddressListRef:    s.AddressListRef,
		ProvisioningLog:   s.ProvisioningLog,
		LastProvisionedAt: s.LastProvisionedAt,
		SuspendedAt:       s.SuspendedAt,
		NextBillingDate:   s.NextBillingDate,
	}
	m.FromDomainBaseEntity(s.BaseEntity)
	return m
}

// PlanModel is the persistence model for rate plans
type PlanModel struct {
	BaseModel
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`

	RateUpKbps   int64 `gorm:"not null"`
	RateDownKbps int64 `gorm:"not null"`

	BurstLimitUpKbps       int64
	BurstLimitDownKbps     int64
	BurstThresholdUpKbps   int64
	BurstThresholdDownKbps int64
	BurstTimeSeconds       int

	Price        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TaxRate      decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	GraceDays    int             `gorm:"not null"`
	ValidityDays int             `gorm:"not null"`

	Profile              string `gorm:"type:varchar(64);not null"`
	SuspendedProfile     string `gorm:"type:varchar(64);not null"`
	AddressList          string `gorm:"type:varchar(64);not null"`
	SuspendedAddressList string `gorm:"type:varchar(64);not null"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the persistence model to a domain Plan
func (m *PlanModel) ToDomain() *provisioning.Plan {
	return &provisioning.Plan{
		BaseEntity:             m.BaseModel.ToDomain(),
		Name:                   m.Name,
		RateUpKbps:             m.RateUpKbps,
		RateDownKbps:           m.RateDownKbps,
		BurstLimitUpKbps:       m.BurstLimitUpKbps,
		BurstLimitDownKbps:     m.BurstLimitDownKbps,
		BurstThresholdUpKbps:   m.BurstThresholdUpKbps,
		BurstThresholdDownKbps: m.BurstThresholdDownKbps,
		BurstTimeSeconds:       m.BurstTimeSeconds,
		Price:                  m.Price,
		TaxRate:                m.TaxRate,
		GraceDays:              m.GraceDays,
		ValidityDays:           m.ValidityDays,
		Profile:                m.Profile,
		SuspendedProfile:       m.SuspendedProfile,
		AddressList:            m.AddressList,
		SuspendedAddressList:   m.SuspendedAddressList,
	}
}

// PlanModelFromDomain builds a persistence model from a domain Plan
func PlanModelFromDomain(p *provisioning.Plan) *PlanModel {
	m := &PlanModel{
		Name:                   p.Name,
		RateUpKbps:             p.RateUpKbps,
		RateDownKbps:           p.RateDownKbps,
		BurstLimitUpKbps:       p.BurstLimitUpKbps,
		BurstLimitDownKbps:     p.BurstLimitDownKbps,
		BurstThresholdUpKbps:   p.BurstThresholdUpKbps,
		BurstThresholdDownKbps: p.BurstThresholdDownKbps,
		BurstTimeSeconds:       p.BurstTimeSeconds,
		Price:                  p.Price,
		TaxRate:                p.TaxRate,
		GraceDays:              p.GraceDays,
		ValidityDays:           p.ValidityDays,
		Profile:                p.Profile,
		SuspendedProfile:       p.SuspendedProfile,
		AddressList:            p.AddressList,
		SuspendedAddressList:   p.SuspendedAddressList,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// RouterModel is the persistence model for managed routers
type RouterModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Address  string `gorm:"type:varchar(255);not null"`
	Username string `gorm:"type:varchar(100);not null"`
	Password string `gorm:"type:varchar(100);not null"`

	SupportsBurst       bool `gorm:"not null;default:false"`
	SupportsAddressList bool `gorm:"not null;default:true"`
	Enabled             bool `gorm:"not null;default:true"`

	CurrentConnections int `gorm:"not null;default:0"`
	MaxConnections     int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (RouterModel) TableName() string {
	return "routers"
}

// ToDomain converts the persistence model to a domain Router
func (m *RouterModel) ToDomain() *provisioning.Router {
	return &provisioning.Router{
		BaseEntity:          m.BaseModel.ToDomain(),
		Name:                m.Name,
		Address:             m.Address,
		Username:            m.Username,
		Password:            m.Password,
		SupportsBurst:       m.SupportsBurst,
		SupportsAddressList: m.SupportsAddressList,
		Enabled:             m.Enabled,
		CurrentConnections:  m.CurrentConnections,
		MaxConnections:      m.MaxConnections,
	}
}

// RouterModelFromDomain builds a persistence model from a domain Router
func RouterModelFromDomain(r *provisioning.Router) *RouterModel {
	m := &RouterModel{
		Name:                r.Name,
		Address:             r.Address,
		Username:            r.Username,
		Password:            r.Password,
		SupportsBurst:       r.SupportsBurst,
		SupportsAddressList: r.SupportsAddressList,
		Enabled:             r.Enabled,
		CurrentConnections:  r.CurrentConnections,
		MaxConnections:      r.MaxConnections,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
