package provisioning

import (
	"github.com/netbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Plan describes a sellable rate plan. Rate and burst values map directly
// onto router queue parameters; price/tax/validity drive the billing cycle.
type Plan struct {
	shared.BaseEntity
	Name string `json:"name"`

	// Rate limits in kbps
	RateUpKbps   int64 `json:"rate_up_kbps"`
	RateDownKbps int64 `json:"rate_down_kbps"`

	// Burst parameters (zero values disable burst)
	BurstLimitUpKbps       int64 `json:"burst_limit_up_kbps"`
	BurstLimitDownKbps     int64 `json:"burst_limit_down_kbps"`
	BurstThresholdUpKbps   int64 `json:"burst_threshold_up_kbps"`
	BurstThresholdDownKbps int64 `json:"burst_threshold_down_kbps"`
	BurstTimeSeconds       int   `json:"burst_time_seconds"`

	Price        decimal.Decimal `json:"price"`
	TaxRate      decimal.Decimal `json:"tax_rate"` // fraction, e.g. 0.11
	GraceDays    int             `json:"grace_days"`
	ValidityDays int             `json:"validity_days"`

	// Profile is the PPP profile assigned to active pppoe secrets
	Profile string `json:"profile"`
	// SuspendedProfile is assigned instead while the service is suspended
	SuspendedProfile string `json:"suspended_profile"`
	// AddressList is the router address list active static services join
	AddressList string `json:"address_list"`
	// SuspendedAddressList holds suspended static services
	SuspendedAddressList string `json:"suspended_address_list"`
}

// NewPlan creates a new plan
func NewPlan(name string, rateUpKbps, rateDownKbps int64, price, taxRate decimal.Decimal, graceDays, validityDays int) (*Plan, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PLAN_NAME", "Plan name cannot be empty")
	}
	if rateUpKbps <= 0 || rateDownKbps <= 0 {
		return nil, shared.NewDomainError("INVALID_PLAN_RATE", "Plan rate limits must be positive")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PLAN_PRICE", "Plan price cannot be negative")
	}
	if validityDays <= 0 {
		return nil, shared.NewDomainError("INVALID_PLAN_VALIDITY", "Plan validity period must be positive")
	}
	return &Plan{
		BaseEntity:           shared.NewBaseEntity(),
		Name:                 name,
		RateUpKbps:           rateUpKbps,
		RateDownKbps:         rateDownKbps,
		Price:                price,
		TaxRate:              taxRate,
		GraceDays:            graceDays,
		ValidityDays:         validityDays,
		Profile:              "default",
		SuspendedProfile:     "suspended",
		AddressList:          name,
		SuspendedAddressList: "suspended",
	}, nil
}

// Tax returns the tax amount for one billing period
func (p *Plan) Tax() decimal.Decimal {
	return p.Price.Mul(p.TaxRate)
}

// Total returns price plus tax for one billing period
func (p *Plan) Total() decimal.Decimal {
	return p.Price.Add(p.Tax())
}

// HasBurst reports whether burst parameters are configured
func (p *Plan) HasBurst() bool {
	return p.BurstLimitUpKbps > 0 && p.BurstLimitDownKbps > 0 && p.BurstTimeSeconds > 0
}
