package provisioning

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ServiceRepository defines persistence operations for services
type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Service, error)
	Save(ctx context.Context, service *Service) error
	Update(ctx context.Context, service *Service) error
	// FindDueForBilling returns active services whose next billing date falls
	// on or before the given cutoff
	FindDueForBilling(ctx context.Context, cutoff time.Time) ([]Service, error)
}

// PlanRepository defines persistence operations for plans
type PlanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	Save(ctx context.Context, plan *Plan) error
}

// RouterRepository defines persistence operations for routers
type RouterRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Router, error)
	Save(ctx context.Context, router *Router) error
}
