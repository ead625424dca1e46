package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a new invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to an existing invoice
func (r *GormInvoiceRepository) Update(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindOpenByServiceAndPeriod returns the non-cancelled invoice covering the
// given period start for a service, or shared.ErrNotFound
func (r *GormInvoiceRepository) FindOpenByServiceAndPeriod(ctx context.Context, serviceID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("service_id = ? AND period_start = ? AND status <> ?",
			serviceID, periodStart, billing.InvoiceStatusCancelled).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnforceableDueBefore returns unpaid and overdue invoices whose due
// date is before the cutoff
func (r *GormInvoiceRepository) FindEnforceableDueBefore(ctx context.Context, cutoff time.Time) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND due_date < ?",
			[]billing.InvoiceStatus{billing.InvoiceStatusUnpaid, billing.InvoiceStatusOverdue}, cutoff).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}
