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

// GormRouterRepository implements RouterRepository using GORM
type GormRouterRepository struct {
	db *gorm.DB
}

// NewGormRouterRepository creates a new GormRouterRepository
func NewGormRouterRepository(db *gorm.DB) *GormRouterRepository {
	return &GormRouterRepository{db: db}
}

// FindByID finds a router by its ID
func (r *GormRouterRepository) FindByID(ctx context.Context, id uuid.UUID) (*provisioning.Router, error) {
	var model models.RouterModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a router
func (r *GormRouterRepository) Save(ctx context.Context, router *provisioning.Router) error {
	model := models.RouterModelFromDomain(router)
	return r.db.WithContext(ctx).Save(model).Error
}
