package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/infrastructure/jobs"
	"github.com/netbill/backend/internal/infrastructure/notify"
	"go.uber.org/zap"
)

// reminderKeyPrefix prefixes the job key of reminder delivery jobs
const reminderKeyPrefix = "reminder:"

// JobEnqueuer submits delivery work to the job runner
type JobEnqueuer interface {
	Enqueue(ctx context.Context, key, name string, notBefore time.Time, run jobs.RunFunc) (uuid.UUID, error)
}

// Dispatcher delivers due reminders. Each reminder is handed to the job
// runner as its own unit of work, so transient channel failures retry with
// backoff while a second dispatch of the same reminder coalesces away.
type Dispatcher struct {
	reminders billing.ReminderRepository
	invoices  billing.InvoiceRepository
	services  provisioning.ServiceRepository
	renderer  TemplateRenderer
	channels  *notify.Registry
	runner    JobEnqueuer
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher creates a reminder dispatcher
func NewDispatcher(
	reminders billing.ReminderRepository,
	invoices billing.InvoiceRepository,
	services provisioning.ServiceRepository,
	renderer TemplateRenderer,
	channels *notify.Registry,
	runner JobEnqueuer,
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		reminders: reminders,
		invoices:  invoices,
		services:  services,
		renderer:  renderer,
		channels:  channels,
		runner:    runner,
		logger:    logger.Named("billing.dispatcher"),
		now:       time.Now,
	}
}

// DispatchDue enqueues delivery of every pending reminder whose scheduled
// time has arrived. Returns the number of deliveries enqueued.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	due, err := d.reminders.FindDue(ctx, d.now())
	if err != nil {
		return 0, fmt.Errorf("find due reminders: %w", err)
	}

	enqueued := 0
	for i := range due {
		id := due[i].ID
		key := reminderKeyPrefix + id.String()
		_, err := d.runner.Enqueue(ctx, key, "send-reminder", time.Time{},
			func(ctx context.Context) error { return d.Deliver(ctx, id) })
		switch {
		case errors.Is(err, jobs.ErrCoalesced):
			continue
		case err != nil:
			d.logger.Error("enqueue reminder delivery failed",
				zap.String("reminder_id", id.String()), zap.Error(err))
		default:
			enqueued++
		}
	}

	if len(due) > 0 {
		d.logger.Info("dispatched due reminders",
			zap.Int("due", len(due)), zap.Int("enqueued", enqueued))
	}
	return enqueued, nil
}

// Deliver renders and sends one reminder, then marks it sent. A reminder
// that is no longer pending (sent by an earlier attempt, or failed by the
// operator) is left untouched. Rendering and channel-resolution failures are
// permanent; delivery failures are transient and retried by the runner.
func (d *Dispatcher) Deliver(ctx context.Context, reminderID uuid.UUID) error {
	reminder, err := d.reminders.FindByID(ctx, reminderID)
	if err != nil {
		return fmt.Errorf("load reminder: %w", err)
	}
	if reminder.Status != billing.ReminderStatusPending {
		return nil
	}

	invoice, err := d.invoices.FindByID(ctx, reminder.InvoiceID)
	if err != nil {
		return fmt.Errorf("load invoice: %w", err)
	}
	// A closed invoice no longer warrants a reminder
	if !invoice.Status.IsOpen() {
		d.logger.Info("invoice closed, dropping reminder",
			zap.String("reminder_id", reminderID.String()),
			zap.String("invoice", invoice.Number),
		)
		if err := reminder.MarkSent(); err != nil {
			return err
		}
		return d.reminders.Update(ctx, reminder)
	}

	service, err := d.services.FindByID(ctx, reminder.ServiceID)
	if err != nil {
		return fmt.Errorf("load service: %w", err)
	}

	msg, err := d.renderer.Render(reminder.Template, invoiceVars(invoice, service))
	if err != nil {
		return jobs.Permanent(err)
	}
	channel, err := d.channels.Get(reminder.Channel.String())
	if err != nil {
		return jobs.Permanent(err)
	}

	if err := channel.Send(ctx, reminder.Recipient, msg); err != nil {
		return fmt.Errorf("send via %s: %w", reminder.Channel, err)
	}

	if err := reminder.MarkSent(); err != nil {
		return err
	}
	if err := d.reminders.Update(ctx, reminder); err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}

	d.logger.Info("reminder delivered",
		zap.String("reminder_id", reminderID.String()),
		zap.String("channel", reminder.Channel.String()),
		zap.String("invoice", invoice.Number),
	)
	return nil
}

// FindFailed lists reminders whose delivery exhausted all attempts, so an
// operator can inspect them and re-send out of band.
func (d *Dispatcher) FindFailed(ctx context.Context) ([]billing.Reminder, error) {
	return d.reminders.FindFailed(ctx)
}

// HandlePermanentFailure marks a reminder failed after its delivery job
// exhausted retries. Wired into the job runner's permanent-failure hook;
// non-reminder jobs pass through untouched.
func (d *Dispatcher) HandlePermanentFailure(job *jobs.Job, jobErr error) {
	raw, ok := strings.CutPrefix(job.Key, reminderKeyPrefix)
	if !ok {
		return
	}
	reminderID, err := uuid.Parse(raw)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reminder, err := d.reminders.FindByID(ctx, reminderID)
	if err != nil {
		d.logger.Error("cannot load reminder to mark failed",
			zap.String("reminder_id", raw), zap.Error(err))
		return
	}
	if err := reminder.MarkFailed(jobErr); err != nil {
		return
	}
	if err := d.reminders.Update(ctx, reminder); err != nil {
		d.logger.Error("cannot persist failed reminder",
			zap.String("reminder_id", raw), zap.Error(err))
		return
	}

	d.logger.Warn("reminder marked failed",
		zap.String("reminder_id", raw),
		zap.String("recipient", reminder.Recipient),
		zap.Error(jobErr),
	)
}

// invoiceVars builds the template variables shared by billing notifications
func invoiceVars(invoice *billing.Invoice, service *provisioning.Service) map[string]string {
	return map[string]string{
		"InvoiceNumber": invoice.Number,
		"ServiceName":   service.Name,
		"Total":         invoice.Total.StringFixed(2),
		"DueDate":       invoice.DueDate.Format("2006-01-02"),
	}
}
