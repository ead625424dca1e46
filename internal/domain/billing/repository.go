package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	Update(ctx context.Context, invoice *Invoice) error
	// FindOpenByServiceAndPeriod returns the non-cancelled invoice covering the
	// given period start for a service, or shared.ErrNotFound
	FindOpenByServiceAndPeriod(ctx context.Context, serviceID uuid.UUID, periodStart time.Time) (*Invoice, error)
	// FindEnforceableDueBefore returns unpaid and overdue invoices whose due
	// date is before the cutoff. Overdue invoices stay in the result until
	// they are paid or cancelled, so a suspension lost to an enqueue failure
	// is re-triggered by a later sweep.
	FindEnforceableDueBefore(ctx context.Context, cutoff time.Time) ([]Invoice, error)
}

// ReminderRepository defines persistence operations for reminders
type ReminderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	Save(ctx context.Context, reminder *Reminder) error
	Update(ctx context.Context, reminder *Reminder) error
	// FindDue returns pending reminders scheduled at or before now
	FindDue(ctx context.Context, now time.Time) ([]Reminder, error)
	// FindFailed returns permanently failed reminders for operator reporting
	FindFailed(ctx context.Context) ([]Reminder, error)
}

// PaymentRepository defines persistence operations for payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
}
