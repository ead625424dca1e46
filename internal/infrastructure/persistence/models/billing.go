package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for invoices.
// The partial unique index on (service_id, period_start) excluding cancelled
// invoices enforces the one-invoice-per-period invariant at the database level.
type InvoiceModel struct {
	BaseModel
	Number      string                `gorm:"type:varchar(32);not null;uniqueIndex"`
	ServiceID   uuid.UUID             `gorm:"type:uuid;not null;index:idx_invoices_service_period"`
	CustomerID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Status      billing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	PeriodStart time.Time             `gorm:"not null;index:idx_invoices_service_period"`
	PeriodEnd   time.Time             `gorm:"not null"`
	DueDate     time.Time             `gorm:"not null;index"`

	Amount   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Tax      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Discount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Total    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Items    billing.LineItems `gorm:"type:jsonb;default:'[]'"`

	PaidAt       *time.Time
	OverdueAt    *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	return &billing.Invoice{
		BaseEntity:   m.BaseModel.ToDomain(),
		Number:       m.Number,
		ServiceID:    m.ServiceID,
		CustomerID:   m.CustomerID,
		Status:       m.Status,
		PeriodStart:  m.PeriodStart,
		PeriodEnd:    m.PeriodEnd,
		DueDate:      m.DueDate,
		Amount:       m.Amount,
		Tax:          m.Tax,
		Discount:     m.Discount,
		Total:        m.Total,
		Items:        m.Items,
		PaidAt:       m.PaidAt,
		OverdueAt:    m.OverdueAt,
		CancelledAt:  m.CancelledAt,
		CancelReason: m.CancelReason,
	}
}

// InvoiceModelFromDomain builds a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		Number:       inv.Number,
		ServiceID:    inv.ServiceID,
		CustomerID:   inv.CustomerID,
		Status:       inv.Status,
		PeriodStart:  inv.PeriodStart,
		PeriodEnd:    inv.PeriodEnd,
		DueDate:      inv.DueDate,
		Amount:       inv.Amount,
		Tax:          inv.Tax,
		Discount:     inv.Discount,
		Total:        inv.Total,
		Items:        inv.Items,
		PaidAt:       inv.PaidAt,
		OverdueAt:    inv.OverdueAt,
		CancelledAt:  inv.CancelledAt,
		CancelReason: inv.CancelReason,
	}
	m.FromDomainBaseEntity(inv.BaseEntity)
	return m
}

// ReminderModel is the persistence model for payment reminders
type ReminderModel struct {
	BaseModel
	InvoiceID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	ServiceID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Channel     billing.ReminderChannel `gorm:"type:varchar(10);not null"`
	Recipient   string                  `gorm:"type:varchar(254);not null"`
	Template    string                  `gorm:"type:varchar(64);not null"`
	ScheduledAt time.Time               `gorm:"not null;index"`
	Status      billing.ReminderStatus  `gorm:"type:varchar(10);not null;index"`
	SentAt      *time.Time
	FailedAt    *time.Time
	LastError   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReminderModel) TableName() string {
	return "reminders"
}

// ToDomain converts the persistence model to a domain Reminder
func (m *ReminderModel) ToDomain() *billing.Reminder {
	return &billing.Reminder{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		ServiceID:   m.ServiceID,
		Channel:     m.Channel,
		Recipient:   m.Recipient,
		Template:    m.Template,
		ScheduledAt: m.ScheduledAt,
		Status:      m.Status,
		SentAt:      m.SentAt,
		FailedAt:    m.FailedAt,
		LastError:   m.LastError,
	}
}

// ReminderModelFromDomain builds a persistence model from a domain Reminder
func ReminderModelFromDomain(rem *billing.Reminder) *ReminderModel {
	m := &ReminderModel{
		InvoiceID:   rem.InvoiceID,
		ServiceID:   rem.ServiceID,
		Channel:     rem.Channel,
		Recipient:   rem.Recipient,
		Template:    rem.Template,
		ScheduledAt: rem.ScheduledAt,
		Status:      rem.Status,
		SentAt:      rem.SentAt,
		FailedAt:    rem.FailedAt,
		LastError:   rem.LastError,
	}
	m.FromDomainBaseEntity(rem.BaseEntity)
	return m
}

// PaymentModel is the persistence model for payments
type PaymentModel struct {
	BaseModel
	InvoiceID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount      decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Method      billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference   string                `gorm:"type:varchar(100)"`
	CompletedAt time.Time             `gorm:"not null"`
	Remark      string                `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity:  m.BaseModel.ToDomain(),
		InvoiceID:   m.InvoiceID,
		Amount:      m.Amount,
		Method:      m.Method,
		Reference:   m.Reference,
		CompletedAt: m.CompletedAt,
		Remark:      m.Remark,
	}
}

// PaymentModelFromDomain builds a persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount,
		Method:      p.Method,
		Reference:   p.Reference,
		CompletedAt: p.CompletedAt,
		Remark:      p.Remark,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}
