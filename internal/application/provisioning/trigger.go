package provisioning

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/infrastructure/jobs"
)

// ActionEnqueuer triggers a provisioning action asynchronously. The billing
// layer depends on this interface rather than on the orchestrator directly.
type ActionEnqueuer interface {
	EnqueueAction(ctx context.Context, serviceID uuid.UUID, action provisioning.Action) error
}

// JobTrigger wraps every orchestrator invocation in the job runner, giving
// each action retry/backoff and per-(service, action) serialization.
type JobTrigger struct {
	orchestrator *Orchestrator
	runner       *jobs.Runner
}

// NewJobTrigger creates a job-runner-backed action trigger
func NewJobTrigger(orchestrator *Orchestrator, runner *jobs.Runner) *JobTrigger {
	return &JobTrigger{orchestrator: orchestrator, runner: runner}
}

// EnqueueAction submits the action. A duplicate trigger for a key already in
// flight is coalesced and reported as success; state is re-checked when the
// in-flight execution lands.
func (t *JobTrigger) EnqueueAction(ctx context.Context, serviceID uuid.UUID, action provisioning.Action) error {
	key := serviceID.String() + ":" + action.String()
	name := "provision-" + strings.ToLower(action.String())
	_, err := t.runner.Enqueue(ctx, key, name, time.Time{}, func(ctx context.Context) error {
		return t.orchestrator.Execute(ctx, serviceID, action)
	})
	if errors.Is(err, jobs.ErrCoalesced) {
		return nil
	}
	return err
}
