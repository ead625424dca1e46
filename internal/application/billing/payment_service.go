package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records payments against invoices and drives the follow-up
// effects: reactivating a suspended service and confirming the payment to
// the customer.
type PaymentService struct {
	scope    TransactionScope
	enqueuer ActionEnqueuer
	renderer TemplateRenderer
	channels *notify.Registry
	logger   *zap.Logger
}

// NewPaymentService creates a payment service
func NewPaymentService(
	scope TransactionScope,
	enqueuer ActionEnqueuer,
	renderer TemplateRenderer,
	channels *notify.Registry,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		scope:    scope,
		enqueuer: enqueuer,
		renderer: renderer,
		channels: channels,
		logger:   logger.Named("billing.payment"),
	}
}

// RecordPayment applies a payment to an invoice. The payment row and the
// invoice status change commit atomically; reactivation of a suspended
// service is enqueued after commit, and the confirmation notification goes
// out regardless of the reactivation outcome.
func (s *PaymentService) RecordPayment(
	ctx context.Context,
	invoiceID uuid.UUID,
	amount decimal.Decimal,
	method billing.PaymentMethod,
	reference string,
) (*billing.Payment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PAYMENT_AMOUNT", "Payment amount must be positive")
	}

	var (
		payment *billing.Payment
		invoice *billing.Invoice
		service *provisioning.Service
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		invoice, err = repos.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("load invoice: %w", err)
		}
		if amount.LessThan(invoice.Total) {
			return shared.NewDomainError("PARTIAL_PAYMENT",
				fmt.Sprintf("Payment %s does not cover invoice total %s",
					amount.StringFixed(2), invoice.Total.StringFixed(2)))
		}

		payment, err = billing.NewPayment(invoice.ID, amount, method, reference)
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		if err := invoice.MarkPaid(); err != nil {
			return err
		}
		if err := repos.Invoices().Update(ctx, invoice); err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}

		service, err = repos.Services().FindByID(ctx, invoice.ServiceID)
		if err != nil {
			return fmt.Errorf("load service: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("invoice", invoice.Number),
		zap.String("payment_id", payment.ID.String()),
		zap.String("service", service.Name),
	)
	log.Info("payment recorded", zap.String("amount", amount.StringFixed(2)))

	if service.Status == provisioning.ServiceStatusSuspended {
		if err := s.enqueuer.EnqueueAction(ctx, service.ID, provisioning.ActionReactivate); err != nil {
			// The payment is already committed; reactivation will be retried
			// by the next enforcement cycle or an operator.
			log.Error("enqueue reactivation failed", zap.Error(err))
		}
	}

	s.sendConfirmation(ctx, invoice, service, log)
	return payment, nil
}

// sendConfirmation delivers the payment confirmation on the service's
// preferred channel. Delivery problems are logged, never surfaced: the
// payment itself already succeeded.
func (s *PaymentService) sendConfirmation(
	ctx context.Context,
	invoice *billing.Invoice,
	service *provisioning.Service,
	log *zap.Logger,
) {
	channelName, recipient, ok := notifyTarget(service)
	if !ok {
		log.Warn("service has no notification recipient, skipping confirmation")
		return
	}

	msg, err := s.renderer.Render(TemplatePaymentConfirmation, invoiceVars(invoice, service))
	if err != nil {
		log.Error("render payment confirmation failed", zap.Error(err))
		return
	}
	channel, err := s.channels.Get(channelName.String())
	if err != nil {
		log.Error("no channel for payment confirmation", zap.Error(err))
		return
	}
	if err := channel.Send(ctx, recipient, msg); err != nil {
		log.Error("payment confirmation delivery failed", zap.Error(err))
		return
	}
	log.Info("payment confirmation sent", zap.String("channel", channelName.String()))
}
