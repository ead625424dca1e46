package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/netbill/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormServiceRepository implements ServiceRepository using GORM
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GormServiceRepository
func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

// FindByID finds a service by its ID
func (r *GormServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*provisioning.Service, error) {
	var model models.ServiceModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists a new service
func (r *GormServiceRepository) Save(ctx context.Context, service *provisioning.Service) error {
	model := models.ServiceModelFromDomain(service)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists changes to an existing service
func (r *GormServiceRepository) Update(ctx context.Context, service *provisioning.Service) error {
	model := models.ServiceModelFromDomain(service)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindDueForBilling returns active services whose next billing date falls on
// or before the cutoff
func (r *GormServiceRepository) FindDueForBilling(ctx context.Context, cutoff time.Time) ([]provisioning.Service, error) {
	var serviceModels []models.ServiceModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_billing_date <= ?", provisioning.ServiceStatusActive, cutoff).
		Order("next_billing_date ASC").
		Find(&serviceModels).Error; err != nil {
		return nil, err
	}
	services := make([]provisioning.Service, len(serviceModels))
	for i, model := range serviceModels {
		services[i] = *model.ToDomain()
	}
	return services, nil
}
