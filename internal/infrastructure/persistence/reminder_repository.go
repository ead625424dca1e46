package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/billing"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormReminderRepository implements ReminderRepository using GORM
type GormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GormReminderRepository
func NewGormReminderRepository(db *gorm.DB) *GormReminderRepository {
	return &GormReminderRepository{db: db}
}

// FindByID finds a reminder by its ID
func (r *GormReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reminder, error) {
	var model models.ReminderModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a new reminder
func (r *GormReminderRepository) Save(ctx context.Context, reminder *billing.Reminder) error {
	model := models.ReminderModelFromDomain(reminder)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to an existing reminder
func (r *GormReminderRepository) Update(ctx context.Context, reminder *billing.Reminder) error {
	model := models.ReminderModelFromDomain(reminder)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindDue returns pending reminders scheduled at or before now
func (r *GormReminderRepository) FindDue(ctx context.Context, now time.Time) ([]billing.Reminder, error) {
	var reminderModels []models.ReminderModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", billing.ReminderStatusPending, now).
		Order("scheduled_at ASC").
		Find(&reminderModels).Error; err != nil {
		return nil, err
	}
	return toDomainReminders(reminderModels), nil
}

// FindFailed returns permanently failed reminders for operator reporting
func (r *GormReminderRepository) FindFailed(ctx context.Context) ([]billing.Reminder, error) {
	var reminderModels []models.ReminderModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", billing.ReminderStatusFailed).
		Order("failed_at DESC").
		Find(&reminderModels).Error; err != nil {
		return nil, err
	}
	return toDomainReminders(reminderModels), nil
}

func toDomainReminders(reminderModels []models.ReminderModel) []billing.Reminder {
	reminders := make([]billing.Reminder, len(reminderModels))
	for i, model := range reminderModels {
		reminders[i] = *model.ToDomain()
	}
	return reminders
}
