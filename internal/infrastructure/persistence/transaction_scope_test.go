package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	appbilling "github.com/netbill/backend/internal/application/billing"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupScopeTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.ServiceModel{},
		&models.InvoiceModel{},
		&models.ReminderModel{},
		&models.PaymentModel{},
	)
	require.NoError(t, err)

	return db
}

func TestGormTransactionScope_CommitsOnSuccess(t *testing.T) {
	db := setupScopeTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	service := newTestService(t, "carol-home")
	invoice := newTestInvoice(t, time.Now().Truncate(time.Second))

	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		if err := repos.Services().Save(ctx, service); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, invoice)
	})
	require.NoError(t, err)

	found, err := NewGormServiceRepository(db).FindByID(ctx, service.ID)
	require.NoError(t, err)
	assert.Equal(t, service.ID, found.ID)

	foundInvoice, err := NewGormInvoiceRepository(db).FindByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, foundInvoice.ID)
}

func TestGormTransactionScope_RollsBackOnError(t *testing.T) {
	db := setupScopeTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	service := newTestService(t, "dave-home")
	scopeErr := errors.New("billing failed")

	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		if err := repos.Services().Save(ctx, service); err != nil {
			return err
		}
		return scopeErr
	})
	assert.ErrorIs(t, err, scopeErr)

	found, err := NewGormServiceRepository(db).FindByID(ctx, service.ID)
	assert.Nil(t, found)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormTransactionScope_RepositoriesShareTransaction(t *testing.T) {
	db := setupScopeTestDB(t)
	scope := NewGormTransactionScope(db)
	ctx := context.Background()

	service := newTestService(t, "erin-home")

	err := scope.Execute(ctx, func(repos appbilling.TransactionalRepositories) error {
		if err := repos.Services().Save(ctx, service); err != nil {
			return err
		}
		// the uncommitted row must be visible within the same transaction
		found, err := repos.Services().FindByID(ctx, service.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, service.ID, found.ID)
		return nil
	})
	require.NoError(t, err)
}
