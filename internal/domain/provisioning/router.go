package provisioning

import (
	"github.com/netbill/backend/internal/domain/shared"
)

// Router holds connection parameters for a remote configuration device.
// Connection counters are advisory only; the device remains authoritative.
type Router struct {
	shared.BaseEntity
	Name     string `json:"name"`
	Address  string `json:"address"` // host:port of the device API
	Username string `json:"username"`
	Password string `json:"password"`

	// Capability flags
	SupportsBurst       bool `json:"supports_burst"`
	SupportsAddressList bool `json:"supports_address_list"`

	Enabled            bool `json:"enabled"`
	CurrentConnections int  `json:"current_connections"`
	MaxConnections     int  `json:"max_connections"`
}

// NewRouter creates a new router record
func NewRouter(name, address, username, password string) (*Router, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ROUTER_NAME", "Router name cannot be empty")
	}
	if address == "" {
		return nil, shared.NewDomainError("INVALID_ROUTER_ADDRESS", "Router address cannot be empty")
	}
	return &Router{
		BaseEntity:          shared.NewBaseEntity(),
		Name:                name,
		Address:             address,
		Username:            username,
		Password:            password,
		SupportsBurst:       true,
		SupportsAddressList: true,
		Enabled:             true,
	}, nil
}
