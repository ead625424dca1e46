package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	// InvoiceStatusDraft is reserved for manually edited invoices on the
	// admin CRUD surface. The billing cycle never produces drafts; generated
	// invoices start out unpaid.
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusUnpaid    InvoiceStatus = "UNPAID"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusUnpaid, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsOpen returns true while the invoice can still receive a payment
func (s InvoiceStatus) IsOpen() bool {
	return s == InvoiceStatusUnpaid || s == InvoiceStatusOverdue
}

// LineItem is a single invoice line
type LineItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineItems is a slice of LineItem that implements GORM Scanner/Valuer for JSONB storage
type LineItems []LineItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Invoice represents one billing period charge against a service.
// Invariant: at most one non-cancelled invoice exists per (service, period).
type Invoice struct {
	shared.BaseEntity
	Number      string        `json:"number"`
	ServiceID   uuid.UUID     `json:"service_id"`
	CustomerID  uuid.UUID     `json:"customer_id"`
	Status      InvoiceStatus `json:"status"`
	PeriodStart time.Time     `json:"period_start"`
	PeriodEnd   time.Time     `json:"period_end"`
	DueDate     time.Time     `json:"due_date"`

	Amount   decimal.Decimal `json:"amount"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	Items    LineItems       `json:"items"`

	PaidAt       *time.Time `json:"paid_at"`
	OverdueAt    *time.Time `json:"overdue_at"`
	CancelledAt  *time.Time `json:"cancelled_at"`
	CancelReason string     `json:"cancel_reason"`
}

// NewInvoice creates an unpaid invoice for a billing period
func NewInvoice(serviceID, customerID uuid.UUID, periodStart, periodEnd, dueDate time.Time, amount, tax decimal.Decimal, items LineItems) (*Invoice, error) {
	if periodEnd.Before(periodStart) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Invoice period end cannot precede period start")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount cannot be negative")
	}
	base := shared.NewBaseEntity()
	return &Invoice{
		BaseEntity:  base,
		Number:      generateInvoiceNumber(base.ID, periodStart),
		ServiceID:   serviceID,
		CustomerID:  customerID,
		Status:      InvoiceStatusUnpaid,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DueDate:     dueDate,
		Amount:      amount,
		Tax:         tax,
		Discount:    decimal.Zero,
		Total:       amount.Add(tax),
		Items:       items,
	}, nil
}

// generateInvoiceNumber builds a human-readable invoice number from the
// billing period and a stable unique suffix
func generateInvoiceNumber(id uuid.UUID, periodStart time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", periodStart.Format("200601"), suffix)
}

// MarkPaid transitions the invoice to paid
func (i *Invoice) MarkPaid() error {
	if !i.Status.IsOpen() {
		return shared.NewDomainError("INVALID_INVOICE_STATE", "Only unpaid or overdue invoices can be paid")
	}
	now := time.Now()
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
	return nil
}

// MarkOverdue transitions an unpaid invoice to overdue
func (i *Invoice) MarkOverdue() error {
	if i.Status != InvoiceStatusUnpaid {
		return shared.NewDomainError("INVALID_INVOICE_STATE", "Only unpaid invoices can become overdue")
	}
	now := time.Now()
	i.Status = InvoiceStatusOverdue
	i.OverdueAt = &now
	return nil
}

// Cancel cancels the invoice
func (i *Invoice) Cancel(reason string) error {
	if i.Status == InvoiceStatusPaid || i.Status == InvoiceStatusCancelled {
		return shared.NewDomainError("INVALID_INVOICE_STATE", "Paid or cancelled invoices cannot be cancelled")
	}
	now := time.Now()
	i.Status = InvoiceStatusCancelled
	i.CancelledAt = &now
	i.CancelReason = reason
	return nil
}

// IsPastGrace reports whether the invoice is past its due date plus the grace period
func (i *Invoice) IsPastGrace(graceDays int, now time.Time) bool {
	return now.After(i.DueDate.AddDate(0, 0, graceDays))
}
