package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/shared"
)

// ReminderChannel identifies the delivery channel for a reminder
type ReminderChannel string

const (
	ChannelEmail ReminderChannel = "EMAIL"
	ChannelSMS   ReminderChannel = "SMS"
	ChannelChat  ReminderChannel = "CHAT"
)

// IsValid checks if the channel is a valid ReminderChannel
func (c ReminderChannel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelChat:
		return true
	}
	return false
}

// String returns the string representation of ReminderChannel
func (c ReminderChannel) String() string {
	return string(c)
}

// ReminderStatus represents the delivery status of a reminder
type ReminderStatus string

const (
	ReminderStatusPending ReminderStatus = "PENDING"
	ReminderStatusSent    ReminderStatus = "SENT"
	ReminderStatusFailed  ReminderStatus = "FAILED"
)

// IsValid checks if the status is a valid ReminderStatus
func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderStatusPending, ReminderStatusSent, ReminderStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of ReminderStatus
func (s ReminderStatus) String() string {
	return string(s)
}

// Reminder is a scheduled payment reminder for an invoice. A reminder moves
// pending -> sent or pending -> failed exactly once; delivery retries happen
// below this contract in the job runner.
type Reminder struct {
	shared.BaseEntity
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	ServiceID   uuid.UUID       `json:"service_id"`
	Channel     ReminderChannel `json:"channel"`
	Recipient   string          `json:"recipient"`
	Template    string          `json:"template"`
	ScheduledAt time.Time       `json:"scheduled_at"`
	Status      ReminderStatus  `json:"status"`
	SentAt      *time.Time      `json:"sent_at"`
	FailedAt    *time.Time      `json:"failed_at"`
	LastError   string          `json:"last_error"`
}

// NewReminder schedules a reminder. The scheduled time must not be in the
// past relative to creation; callers skip offsets that would resolve there.
func NewReminder(invoiceID, serviceID uuid.UUID, channel ReminderChannel, recipient, template string, scheduledAt time.Time) (*Reminder, error) {
	if !channel.IsValid() {
		return nil, shared.NewDomainError("INVALID_CHANNEL", "Unknown reminder channel: "+string(channel))
	}
	if recipient == "" {
		return nil, shared.NewDomainError("INVALID_RECIPIENT", "Reminder recipient cannot be empty")
	}
	if scheduledAt.Before(time.Now()) {
		return nil, shared.NewDomainError("RETROACTIVE_REMINDER", "Reminder cannot be scheduled in the past")
	}
	return &Reminder{
		BaseEntity:  shared.NewBaseEntity(),
		InvoiceID:   invoiceID,
		ServiceID:   serviceID,
		Channel:     channel,
		Recipient:   recipient,
		Template:    template,
		ScheduledAt: scheduledAt,
		Status:      ReminderStatusPending,
	}, nil
}

// IsDue reports whether the reminder should be dispatched now
func (r *Reminder) IsDue(now time.Time) bool {
	return r.Status == ReminderStatusPending && !now.Before(r.ScheduledAt)
}

// MarkSent transitions the reminder to sent
func (r *Reminder) MarkSent() error {
	if r.Status != ReminderStatusPending {
		return shared.NewDomainError("INVALID_REMINDER_STATE", "Only pending reminders can be marked sent")
	}
	now := time.Now()
	r.Status = ReminderStatusSent
	r.SentAt = &now
	return nil
}

// MarkFailed transitions the reminder to failed, recording the delivery error
func (r *Reminder) MarkFailed(deliveryErr error) error {
	if r.Status != ReminderStatusPending {
		return shared.NewDomainError("INVALID_REMINDER_STATE", "Only pending reminders can be marked failed")
	}
	now := time.Now()
	r.Status = ReminderStatusFailed
	r.FailedAt = &now
	if deliveryErr != nil {
		r.LastError = deliveryErr.Error()
	}
	return nil
}
