package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.InvoiceModel{})
	require.NoError(t, err)

	return db
}

func newTestInvoice(t *testing.T, periodStart time.Time) *billing.Invoice {
	t.Helper()
	periodEnd := periodStart.AddDate(0, 0, 30)
	invoice, err := billing.NewInvoice(uuid.New(), uuid.New(), periodStart, periodEnd, periodStart,
		decimal.NewFromInt(100), decimal.NewFromInt(10), billing.LineItems{
			{Description: "Internet access home-10m", Quantity: 1, UnitPrice: decimal.NewFromInt(100), Amount: decimal.NewFromInt(100)},
		})
	require.NoError(t, err)
	return invoice
}

func TestGormInvoiceRepository_SaveAndFindByID(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	invoice := newTestInvoice(t, time.Now().Truncate(time.Second))
	require.NoError(t, repo.Save(ctx, invoice))

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.Number, found.Number)
	assert.Equal(t, billing.InvoiceStatusUnpaid, found.Status)
	assert.True(t, found.Total.Equal(decimal.NewFromInt(110)))
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Internet access home-10m", found.Items[0].Description)
}

func TestGormInvoiceRepository_FindByIDNotFound(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)

	invoice, err := repo.FindByID(context.Background(), uuid.New())

	assert.Nil(t, invoice)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormInvoiceRepository_Update(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	invoice := newTestInvoice(t, time.Now().Truncate(time.Second))
	require.NoError(t, repo.Save(ctx, invoice))

	require.NoError(t, invoice.MarkPaid())
	require.NoError(t, repo.Update(ctx, invoice))

	found, err := repo.FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.InvoiceStatusPaid, found.Status)
	assert.NotNil(t, found.PaidAt)
}

func TestGormInvoiceRepository_FindOpenByServiceAndPeriod(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	periodStart := time.Now().Truncate(time.Second)
	invoice := newTestInvoice(t, periodStart)
	require.NoError(t, repo.Save(ctx, invoice))

	t.Run("finds invoice for service and period", func(t *testing.T) {
		found, err := repo.FindOpenByServiceAndPeriod(ctx, invoice.ServiceID, periodStart)
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, found.ID)
	})

	t.Run("returns not found for another service", func(t *testing.T) {
		found, err := repo.FindOpenByServiceAndPeriod(ctx, uuid.New(), periodStart)
		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ignores cancelled invoices", func(t *testing.T) {
		require.NoError(t, invoice.Cancel("provisioning rolled back"))
		require.NoError(t, repo.Update(ctx, invoice))

		found, err := repo.FindOpenByServiceAndPeriod(ctx, invoice.ServiceID, periodStart)
		assert.Nil(t, found)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceRepository_FindEnforceableDueBefore(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	pastDue := newTestInvoice(t, now.AddDate(0, 0, -10))
	require.NoError(t, repo.Save(ctx, pastDue))

	// Already overdue invoices stay enforceable so a lost suspend is retried
	overdue := newTestInvoice(t, now.AddDate(0, 0, -15))
	require.NoError(t, overdue.MarkOverdue())
	require.NoError(t, repo.Save(ctx, overdue))

	notDue := newTestInvoice(t, now.AddDate(0, 0, 5))
	require.NoError(t, repo.Save(ctx, notDue))

	paid := newTestInvoice(t, now.AddDate(0, 0, -20))
	require.NoError(t, paid.MarkPaid())
	require.NoError(t, repo.Save(ctx, paid))

	invoices, err := repo.FindEnforceableDueBefore(ctx, now)

	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, overdue.ID, invoices[0].ID)
	assert.Equal(t, pastDue.ID, invoices[1].ID)
}
