package provisioning

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StepOutcome is the recorded result of a single provisioning step
type StepOutcome string

const (
	StepOutcomeSuccess     StepOutcome = "SUCCESS"
	StepOutcomeFailure     StepOutcome = "FAILURE"
	StepOutcomeCompensated StepOutcome = "COMPENSATED"
	StepOutcomeSkipped     StepOutcome = "SKIPPED"
)

// ProvisioningLogEntry is one timestamped step outcome in the trail
type ProvisioningLogEntry struct {
	Action  Action      `json:"action"`
	Step    string      `json:"step"`
	Outcome StepOutcome `json:"outcome"`
	Error   string      `json:"error,omitempty"`
	At      time.Time   `json:"at"`
}

// ProvisioningLog is an append-only slice of step outcomes. It implements
// GORM Scanner/Valuer for JSONB storage.
type ProvisioningLog []ProvisioningLogEntry

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l ProvisioningLog) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *ProvisioningLog) Scan(value interface{}) error {
	if value == nil {
		*l = ProvisioningLog{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan ProvisioningLog: unsupported type")
	}

	if len(bytes) == 0 {
		*l = ProvisioningLog{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// NewLogEntry builds a log entry stamped with the current time
func NewLogEntry(action Action, step string, outcome StepOutcome, stepErr error) ProvisioningLogEntry {
	entry := ProvisioningLogEntry{
		Action:  action,
		Step:    step,
		Outcome: outcome,
		At:      time.Now(),
	}
	if stepErr != nil {
		entry.Error = stepErr.Error()
	}
	return entry
}
