package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReminder(t *testing.T) {
	future := time.Now().Add(time.Hour)

	t.Run("schedules pending reminder", func(t *testing.T) {
		r, err := NewReminder(uuid.New(), uuid.New(), ChannelEmail, "john@example.com", "invoice_due", future)
		require.NoError(t, err)
		assert.Equal(t, ReminderStatusPending, r.Status)
	})

	t.Run("rejects past schedule", func(t *testing.T) {
		_, err := NewReminder(uuid.New(), uuid.New(), ChannelEmail, "john@example.com", "invoice_due", time.Now().Add(-time.Minute))
		assert.Error(t, err)
	})

	t.Run("rejects unknown channel", func(t *testing.T) {
		_, err := NewReminder(uuid.New(), uuid.New(), ReminderChannel("FAX"), "x", "invoice_due", future)
		assert.Error(t, err)
	})

	t.Run("rejects empty recipient", func(t *testing.T) {
		_, err := NewReminder(uuid.New(), uuid.New(), ChannelSMS, "", "invoice_due", future)
		assert.Error(t, err)
	})
}

func TestReminderIsDue(t *testing.T) {
	r, err := NewReminder(uuid.New(), uuid.New(), ChannelSMS, "+628123", "invoice_due", time.Now().Add(time.Minute))
	require.NoError(t, err)

	assert.False(t, r.IsDue(time.Now()))
	assert.True(t, r.IsDue(time.Now().Add(2*time.Minute)))

	require.NoError(t, r.MarkSent())
	assert.False(t, r.IsDue(time.Now().Add(2*time.Minute)), "sent reminders are never due")
}

func TestReminderTransitionsOnce(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		r, err := NewReminder(uuid.New(), uuid.New(), ChannelChat, "12345", "invoice_due", time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, r.MarkSent())
		assert.NotNil(t, r.SentAt)
		assert.Error(t, r.MarkSent())
		assert.Error(t, r.MarkFailed(errors.New("late")))
	})

	t.Run("failed", func(t *testing.T) {
		r, err := NewReminder(uuid.New(), uuid.New(), ChannelChat, "12345", "invoice_due", time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.NoError(t, r.MarkFailed(errors.New("gateway down")))
		assert.Equal(t, ReminderStatusFailed, r.Status)
		assert.Equal(t, "gateway down", r.LastError)
		assert.Error(t, r.MarkSent())
	})
}
