package billing

import (
	"context"

	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/provisioning"
)

// TransactionScope provides transactional access to billing repositories.
// When a function is executed within a transaction scope, all repository
// operations share one database transaction and commit or roll back
// atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories one billing
// transaction touches. All repositories returned share the same underlying
// database transaction.
type TransactionalRepositories interface {
	Services() provisioning.ServiceRepository
	Invoices() billing.InvoiceRepository
	Reminders() billing.ReminderRepository
	Payments() billing.PaymentRepository
}
