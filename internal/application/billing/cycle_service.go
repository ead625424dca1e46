package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActionEnqueuer submits provisioning actions for asynchronous execution
type ActionEnqueuer interface {
	EnqueueAction(ctx context.Context, serviceID uuid.UUID, action provisioning.Action) error
}

// reminderOffsetDays are the reminder schedule offsets relative to the
// invoice due date. Offsets resolving to a past instant are skipped, never
// sent retroactively.
var reminderOffsetDays = []int{-7, -3, 0, 3}

// defaultLookahead is how far ahead of the next billing date invoices are
// generated. Matches the earliest reminder offset so the -7d reminder can
// be scheduled the moment its invoice exists.
const defaultLookahead = 7 * 24 * time.Hour

// SweepResult summarizes one sweep run
type SweepResult struct {
	Processed int
	Skipped   int
	Failed    int
}

// CycleService drives the recurring billing cycle: generating invoices for
// services approaching their next billing date, scheduling payment
// reminders, and enforcing suspension on invoices past their grace period.
type CycleService struct {
	scope     TransactionScope
	services  provisioning.ServiceRepository
	plans     provisioning.PlanRepository
	invoices  billing.InvoiceRepository
	enqueuer  ActionEnqueuer
	logger    *zap.Logger
	lookahead time.Duration
	now       func() time.Time
}

// NewCycleService creates a billing cycle service
func NewCycleService(
	scope TransactionScope,
	services provisioning.ServiceRepository,
	plans provisioning.PlanRepository,
	invoices billing.InvoiceRepository,
	enqueuer ActionEnqueuer,
	logger *zap.Logger,
) *CycleService {
	return &CycleService{
		scope:     scope,
		services:  services,
		plans:     plans,
		invoices:  invoices,
		enqueuer:  enqueuer,
		logger:    logger.Named("billing.cycle"),
		lookahead: defaultLookahead,
		now:       time.Now,
	}
}

// WithLookahead overrides the invoice generation window
func (s *CycleService) WithLookahead(d time.Duration) *CycleService {
	if d > 0 {
		s.lookahead = d
	}
	return s
}

// RunDueInvoiceSweep generates invoices for every active service whose next
// billing date falls within the lookahead window. Each service is processed
// in its own transaction; a failure on one service is logged and does not
// stop the sweep.
func (s *CycleService) RunDueInvoiceSweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	cutoff := now.Add(s.lookahead)

	services, err := s.services.FindDueForBilling(ctx, cutoff)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find services due for billing: %w", err)
	}

	var result SweepResult
	for i := range services {
		created, err := s.billService(ctx, services[i].ID, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("billing a service failed, skipping",
				zap.String("service_id", services[i].ID.String()),
				zap.String("service", services[i].Name),
				zap.Error(err),
			)
		case created:
			result.Processed++
		default:
			result.Skipped++
		}
	}

	s.logger.Info("due invoice sweep finished",
		zap.Int("candidates", len(services)),
		zap.Int("invoiced", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// billService generates the invoice and its reminders for one service inside
// a transaction. Returns false when the period is already invoiced.
func (s *CycleService) billService(ctx context.Context, serviceID uuid.UUID, now time.Time) (bool, error) {
	created := false
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		service, err := repos.Services().FindByID(ctx, serviceID)
		if err != nil {
			return fmt.Errorf("load service: %w", err)
		}

		plan, err := s.plans.FindByID(ctx, service.PlanID)
		if err != nil {
			return fmt.Errorf("load plan: %w", err)
		}

		periodStart := service.NextBillingDate
		periodEnd := periodStart.AddDate(0, 0, plan.ValidityDays)

		// At most one open invoice per (service, period). A concurrent or
		// crashed earlier sweep may have created it already; then only the
		// billing date advance is still owed.
		_, err = repos.Invoices().FindOpenByServiceAndPeriod(ctx, service.ID, periodStart)
		switch {
		case err == nil:
			service.NextBillingDate = periodEnd
			return repos.Services().Update(ctx, service)
		case !errors.Is(err, shared.ErrNotFound):
			return fmt.Errorf("check existing invoice: %w", err)
		}

		invoice, err := billing.NewInvoice(
			service.ID, service.CustomerID,
			periodStart, periodEnd, periodStart,
			plan.Price, plan.Tax(),
			billing.LineItems{{
				Description: plan.Name,
				Quantity:    1,
				UnitPrice:   plan.Price,
				Amount:      plan.Price,
			}},
		)
		if err != nil {
			return fmt.Errorf("build invoice: %w", err)
		}
		if err := repos.Invoices().Save(ctx, invoice); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}

		if err := s.scheduleReminders(ctx, repos, service, invoice, now); err != nil {
			return err
		}

		service.NextBillingDate = periodEnd
		if err := repos.Services().Update(ctx, service); err != nil {
			return fmt.Errorf("advance billing date: %w", err)
		}

		created = true
		return nil
	})
	return created, err
}

// scheduleReminders creates the reminder schedule for a new invoice on the
// service's preferred notification channel, dropping offsets already in the past
func (s *CycleService) scheduleReminders(
	ctx context.Context,
	repos TransactionalRepositories,
	service *provisioning.Service,
	invoice *billing.Invoice,
	now time.Time,
) error {
	channel, recipient, ok := notifyTarget(service)
	if !ok {
		s.logger.Warn("service has no notification recipient, skipping reminders",
			zap.String("service_id", service.ID.String()))
		return nil
	}

	for _, offset := range reminderOffsetDays {
		at := invoice.DueDate.AddDate(0, 0, offset)
		if at.Before(now) {
			continue
		}
		reminder, err := billing.NewReminder(invoice.ID, service.ID, channel, recipient,
			TemplateInvoiceReminder, at)
		if err != nil {
			return fmt.Errorf("schedule reminder at %s: %w", at.Format(time.RFC3339), err)
		}
		if err := repos.Reminders().Save(ctx, reminder); err != nil {
			return fmt.Errorf("save reminder: %w", err)
		}
	}
	return nil
}

// RunOverdueEnforcementSweep marks unpaid invoices past their plan's grace
// period overdue and enqueues suspension of the backing service. Overdue
// invoices whose service is still active re-enqueue the suspend on every
// sweep until the suspension lands; the per-key coalescing in the job
// runner and the already-suspended no-op in the orchestrator keep that
// re-triggering idempotent.
func (s *CycleService) RunOverdueEnforcementSweep(ctx context.Context) (SweepResult, error) {
	now := s.now()

	candidates, err := s.invoices.FindEnforceableDueBefore(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("find unpaid invoices: %w", err)
	}

	var result SweepResult
	for i := range candidates {
		suspended, err := s.enforceInvoice(ctx, candidates[i].ID, now)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Error("overdue enforcement failed, skipping",
				zap.String("invoice_id", candidates[i].ID.String()),
				zap.String("invoice", candidates[i].Number),
				zap.Error(err),
			)
		case suspended:
			result.Processed++
		default:
			result.Skipped++
		}
	}

	s.logger.Info("overdue enforcement sweep finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("enforced", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// enforceInvoice handles one overdue candidate in a transaction, then
// triggers the suspend action outside it
func (s *CycleService) enforceInvoice(ctx context.Context, invoiceID uuid.UUID, now time.Time) (bool, error) {
	var suspendServiceID uuid.UUID

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.Invoices().FindByID(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("load invoice: %w", err)
		}
		if invoice.Status != billing.InvoiceStatusUnpaid && invoice.Status != billing.InvoiceStatusOverdue {
			return nil
		}

		service, err := repos.Services().FindByID(ctx, invoice.ServiceID)
		if err != nil {
			return fmt.Errorf("load service: %w", err)
		}

		if invoice.Status == billing.InvoiceStatusUnpaid {
			plan, err := s.plans.FindByID(ctx, service.PlanID)
			if err != nil {
				return fmt.Errorf("load plan: %w", err)
			}
			if !invoice.IsPastGrace(plan.GraceDays, now) {
				return nil
			}
			if err := invoice.MarkOverdue(); err != nil {
				return err
			}
			if err := repos.Invoices().Update(ctx, invoice); err != nil {
				return fmt.Errorf("mark invoice overdue: %w", err)
			}
		}

		// An invoice already marked overdue lands here again when a prior
		// enqueue failed or the suspension has not run yet.
		if service.Status == provisioning.ServiceStatusActive {
			suspendServiceID = service.ID
		}
		return nil
	})
	if err != nil || suspendServiceID == uuid.Nil {
		return false, err
	}

	if err := s.enqueuer.EnqueueAction(ctx, suspendServiceID, provisioning.ActionSuspend); err != nil {
		return false, fmt.Errorf("enqueue suspend: %w", err)
	}
	return true, nil
}

// notifyTarget picks the notification channel and recipient for a service.
// Preference order: email, chat, sms.
func notifyTarget(service *provisioning.Service) (billing.ReminderChannel, string, bool) {
	switch {
	case service.NotifyEmail != "":
		return billing.ChannelEmail, service.NotifyEmail, true
	case service.NotifyChatID != "":
		return billing.ChannelChat, service.NotifyChatID, true
	case service.NotifyPhone != "":
		return billing.ChannelSMS, service.NotifyPhone, true
	}
	return "", "", false
}
