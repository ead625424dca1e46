package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReminderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.ReminderModel{})
	require.NoError(t, err)

	return db
}

func newTestReminder(t *testing.T, scheduledAt time.Time) *billing.Reminder {
	t.Helper()
	// NewReminder rejects retroactive schedules, so create in the future and
	// backdate when a test needs an already-due reminder.
	reminder, err := billing.NewReminder(uuid.New(), uuid.New(), billing.ChannelEmail,
		"customer@example.com", "invoice-reminder", time.Now().Add(time.Hour))
	require.NoError(t, err)
	reminder.ScheduledAt = scheduledAt
	return reminder
}

func TestGormReminderRepository_SaveAndFindByID(t *testing.T) {
	db := setupReminderTestDB(t)
	repo := NewGormReminderRepository(db)
	ctx := context.Background()

	reminder := newTestReminder(t, time.Now().Add(time.Hour))
	require.NoError(t, repo.Save(ctx, reminder))

	found, err := repo.FindByID(ctx, reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.ChannelEmail, found.Channel)
	assert.Equal(t, "customer@example.com", found.Recipient)
	assert.Equal(t, billing.ReminderStatusPending, found.Status)
}

func TestGormReminderRepository_FindByIDNotFound(t *testing.T) {
	db := setupReminderTestDB(t)
	repo := NewGormReminderRepository(db)

	reminder, err := repo.FindByID(context.Background(), uuid.New())

	assert.Nil(t, reminder)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormReminderRepository_FindDue(t *testing.T) {
	db := setupReminderTestDB(t)
	repo := NewGormReminderRepository(db)
	ctx := context.Background()
	now := time.Now()

	due := newTestReminder(t, now.Add(-time.Minute))
	require.NoError(t, repo.Save(ctx, due))

	future := newTestReminder(t, now.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, future))

	sent := newTestReminder(t, now.Add(-time.Minute))
	require.NoError(t, sent.MarkSent())
	require.NoError(t, repo.Save(ctx, sent))

	reminders, err := repo.FindDue(ctx, now)

	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, due.ID, reminders[0].ID)
}

func TestGormReminderRepository_FindFailed(t *testing.T) {
	db := setupReminderTestDB(t)
	repo := NewGormReminderRepository(db)
	ctx := context.Background()

	failed := newTestReminder(t, time.Now().Add(-time.Minute))
	require.NoError(t, failed.MarkFailed(errors.New("smtp connection refused")))
	require.NoError(t, repo.Save(ctx, failed))

	pending := newTestReminder(t, time.Now().Add(time.Hour))
	require.NoError(t, repo.Save(ctx, pending))

	reminders, err := repo.FindFailed(ctx)

	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, failed.ID, reminders[0].ID)
	assert.Equal(t, "smtp connection refused", reminders[0].LastError)
}
