package jobs

import "time"

// Policy is an explicit retry policy: a fixed attempt budget with a backoff
// delay schedule between attempts.
type Policy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// DefaultPolicy returns the standard provisioning retry policy:
// 3 attempts with 30s/60s/120s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Delays:      []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
	}
}

// DelayFor returns the delay to wait after the given 1-based attempt fails.
// Attempts beyond the schedule reuse the last delay.
func (p Policy) DelayFor(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	return p.Delays[idx]
}
