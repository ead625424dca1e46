package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/jobs"
	"github.com/netbill/backend/internal/infrastructure/notify"
)

type memServiceRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*provisioning.Service
}

func newMemServiceRepo() *memServiceRepo {
	return &memServiceRepo{items: make(map[uuid.UUID]*provisioning.Service)}
}

func (r *memServiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*provisioning.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

func (r *memServiceRepo) Save(ctx context.Context, s *provisioning.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[s.ID] = s
	return nil
}

func (r *memServiceRepo) Update(ctx context.Context, s *provisioning.Service) error {
	return r.Save(ctx, s)
}

func (r *memServiceRepo) FindDueForBilling(ctx context.Context, cutoff time.Time) ([]provisioning.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []provisioning.Service
	for _, s := range r.items {
		if s.Status == provisioning.ServiceStatusActive && !s.NextBillingDate.After(cutoff) {
			due = append(due, *s)
		}
	}
	return due, nil
}

type memPlanRepo struct {
	items map[uuid.UUID]*provisioning.Plan
}

func newMemPlanRepo(plans ...*provisioning.Plan) *memPlanRepo {
	r := &memPlanRepo{items: make(map[uuid.UUID]*provisioning.Plan)}
	for _, p := range plans {
		r.items[p.ID] = p
	}
	return r
}

func (r *memPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*provisioning.Plan, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memPlanRepo) Save(ctx context.Context, p *provisioning.Plan) error {
	r.items[p.ID] = p
	return nil
}

type memInvoiceRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*billing.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{items: make(map[uuid.UUID]*billing.Invoice)}
}

func (r *memInvoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memInvoiceRepo) Save(ctx context.Context, inv *billing.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inv.ID] = inv
	return nil
}

func (r *memInvoiceRepo) Update(ctx context.Context, inv *billing.Invoice) error {
	return r.Save(ctx, inv)
}

func (r *memInvoiceRepo) FindOpenByServiceAndPeriod(ctx context.Context, serviceID uuid.UUID, periodStart time.Time) (*billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.items {
		if inv.ServiceID == serviceID && inv.PeriodStart.Equal(periodStart) &&
			inv.Status != billing.InvoiceStatusCancelled {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInvoiceRepo) FindEnforceableDueBefore(ctx context.Context, cutoff time.Time) ([]billing.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Invoice
	for _, inv := range r.items {
		enforceable := inv.Status == billing.InvoiceStatusUnpaid || inv.Status == billing.InvoiceStatusOverdue
		if enforceable && inv.DueDate.Before(cutoff) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) all() []*billing.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*billing.Invoice, 0, len(r.items))
	for _, inv := range r.items {
		out = append(out, inv)
	}
	return out
}

type memReminderRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*billing.Reminder
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{items: make(map[uuid.UUID]*billing.Reminder)}
}

func (r *memReminderRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rem, nil
}

func (r *memReminderRepo) Save(ctx context.Context, rem *billing.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rem.ID] = rem
	return nil
}

func (r *memReminderRepo) Update(ctx context.Context, rem *billing.Reminder) error {
	return r.Save(ctx, rem)
}

func (r *memReminderRepo) FindDue(ctx context.Context, now time.Time) ([]billing.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Reminder
	for _, rem := range r.items {
		if rem.IsDue(now) {
			out = append(out, *rem)
		}
	}
	return out, nil
}

func (r *memReminderRepo) FindFailed(ctx context.Context) ([]billing.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Reminder
	for _, rem := range r.items {
		if rem.Status == billing.ReminderStatusFailed {
			out = append(out, *rem)
		}
	}
	return out, nil
}

func (r *memReminderRepo) all() []*billing.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*billing.Reminder, 0, len(r.items))
	for _, rem := range r.items {
		out = append(out, rem)
	}
	return out
}

type memPaymentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*billing.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{items: make(map[uuid.UUID]*billing.Payment)}
}

func (r *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (r *memPaymentRepo) Save(ctx context.Context, p *billing.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = p
	return nil
}

func (r *memPaymentRepo) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []billing.Payment
	for _, p := range r.items {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// enqueuedAction is one recorded call to the fake enqueuer
type enqueuedAction struct {
	serviceID uuid.UUID
	action    provisioning.Action
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	actions []enqueuedAction
	err     error
}

func (e *fakeEnqueuer) EnqueueAction(ctx context.Context, serviceID uuid.UUID, action provisioning.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.actions = append(e.actions, enqueuedAction{serviceID: serviceID, action: action})
	return nil
}

func (e *fakeEnqueuer) recorded() []enqueuedAction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]enqueuedAction(nil), e.actions...)
}

// inlineRunner executes enqueued work synchronously, recording run errors
type inlineRunner struct {
	runErrs []error
	keys    []string
}

func (r *inlineRunner) Enqueue(ctx context.Context, key, name string, notBefore time.Time, run jobs.RunFunc) (uuid.UUID, error) {
	r.keys = append(r.keys, key)
	r.runErrs = append(r.runErrs, run(ctx))
	return uuid.New(), nil
}

// fakeChannel records deliveries and can be told to fail
type fakeChannel struct {
	name string
	sent []notify.Message
	to   []string
	err  error
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(ctx context.Context, recipient string, msg notify.Message) error {
	if c.err != nil {
		return c.err
	}
	c.to = append(c.to, recipient)
	c.sent = append(c.sent, msg)
	return nil
}

// noOpTransactionScope runs scope functions without a real transaction,
// handing back the in-memory repositories directly
type noOpTransactionScope struct {
	services  provisioning.ServiceRepository
	invoices  billing.InvoiceRepository
	reminders billing.ReminderRepository
	payments  billing.PaymentRepository
}

func newNoOpTransactionScope(
	services provisioning.ServiceRepository,
	invoices billing.InvoiceRepository,
	reminders billing.ReminderRepository,
	payments billing.PaymentRepository,
) *noOpTransactionScope {
	return &noOpTransactionScope{
		services:  services,
		invoices:  invoices,
		reminders: reminders,
		payments:  payments,
	}
}

func (s *noOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *noOpTransactionScope) Services() provisioning.ServiceRepository { return s.services }

func (s *noOpTransactionScope) Invoices() billing.InvoiceRepository { return s.invoices }

func (s *noOpTransactionScope) Reminders() billing.ReminderRepository { return s.reminders }

func (s *noOpTransactionScope) Payments() billing.PaymentRepository { return s.payments }
