package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPlanRepository implements PlanRepository using GORM
type GormPlanRepository struct {
	db *gorm.DB
}

// NewGormPlanRepository creates a new GormPlanRepository
func NewGormPlanRepository(db *gorm.DB) *GormPlanRepository {
	return &GormPlanRepository{db: db}
}

// FindByID finds a plan by its ID
func (r *GormPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*provisioning.Plan, error) {
	var model models.PlanModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a plan
func (r *GormPlanRepository) Save(ctx context.Context, plan *provisioning.Plan) error {
	model := models.PlanModelFromDomain(plan)
	return r.db.WithContext(ctx).Save(model).Error
}
