package provisioning

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/infrastructure/device"
	"github.com/netbill/backend/internal/infrastructure/jobs"
	"go.uber.org/zap"
)

// Orchestrator executes named provisioning actions as ordered step sequences
// with compensation. Each step's remote mutation is persisted before the next
// step runs, so a crash mid-sequence leaves the provisioning log and remote
// handles consistent with the steps executed so far.
type Orchestrator struct {
	services provisioning.ServiceRepository
	plans    provisioning.PlanRepository
	routers  provisioning.RouterRepository
	gateway  device.Gateway
	logger   *zap.Logger
}

// NewOrchestrator creates a provisioning orchestrator
func NewOrchestrator(
	services provisioning.ServiceRepository,
	plans provisioning.PlanRepository,
	routers provisioning.RouterRepository,
	gateway device.Gateway,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		services: services,
		plans:    plans,
		routers:  routers,
		gateway:  gateway,
		logger:   logger.Named("orchestrator"),
	}
}

// terminalStatus is the status a service ends in after each action
var terminalStatus = map[provisioning.Action]provisioning.ServiceStatus{
	provisioning.ActionCreate:     provisioning.ServiceStatusActive,
	provisioning.ActionSuspend:    provisioning.ServiceStatusSuspended,
	provisioning.ActionReactivate: provisioning.ServiceStatusActive,
	provisioning.ActionDelete:     provisioning.ServiceStatusTerminated,
}

// Execute runs one action against a service. Transient device failures
// propagate as plain errors for the job runner to retry; permanent failures
// roll back completed steps and return a jobs.Permanent error.
func (o *Orchestrator) Execute(ctx context.Context, serviceID uuid.UUID, action provisioning.Action) error {
	service, err := o.services.FindByID(ctx, serviceID)
	if err != nil {
		return fmt.Errorf("load service %s: %w", serviceID, err)
	}

	log := o.logger.With(
		zap.String("service_id", serviceID.String()),
		zap.String("service", service.Name),
		zap.String("action", action.String()),
	)

	if !provisioning.CanApply(service.Status, action) {
		// An action whose end state the service already occupies is a no-op:
		// no device commands, no log entries.
		if terminalStatus[action] == service.Status {
			log.Debug("action is a no-op, service already in target status",
				zap.String("status", service.Status.String()))
			return nil
		}
		log.Warn("invalid transition rejected", zap.String("status", service.Status.String()))
		return jobs.Permanent(fmt.Errorf("%s from %s: %w", action, service.Status, provisioning.ErrInvalidTransition))
	}

	plan, err := o.plans.FindByID(ctx, service.PlanID)
	if err != nil {
		return fmt.Errorf("load plan %s: %w", service.PlanID, err)
	}
	router, err := o.routers.FindByID(ctx, service.RouterID)
	if err != nil {
		return fmt.Errorf("load router %s: %w", service.RouterID, err)
	}

	steps, err := stepsFor(service.ServiceType, action)
	if err != nil {
		return jobs.Permanent(err)
	}

	// Scoped connection: opened per invocation, closed on every exit path,
	// never shared across concurrent units.
	conn, err := o.gateway.Connect(ctx, router)
	if err != nil {
		log.Warn("device connect failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	sc := &stepContext{service: service, plan: plan, router: router, conn: conn}

	if err := o.runSteps(ctx, log, sc, action, steps); err != nil {
		return err
	}

	switch terminalStatus[action] {
	case provisioning.ServiceStatusActive:
		service.MarkActive()
	case provisioning.ServiceStatusSuspended:
		service.MarkSuspended()
	case provisioning.ServiceStatusTerminated:
		service.MarkTerminated()
	}
	if err := o.services.Update(ctx, service); err != nil {
		return fmt.Errorf("persist terminal status: %w", err)
	}

	log.Info("action completed", zap.String("status", service.Status.String()))
	return nil
}

// runSteps executes the step list strictly in order, persisting after every
// successful step. Permanent failures compensate completed steps in reverse.
func (o *Orchestrator) runSteps(ctx context.Context, log *zap.Logger, sc *stepContext, action provisioning.Action, steps []Step) error {
	var completed []Step

	for _, step := range steps {
		if step.Done != nil && step.Done(sc.service) {
			sc.service.AppendLog(provisioning.NewLogEntry(action, step.Name, provisioning.StepOutcomeSkipped, nil))
			if err := o.services.Update(ctx, sc.service); err != nil {
				return fmt.Errorf("persist after skipped step %s: %w", step.Name, err)
			}
			continue
		}

		if err := step.Run(ctx, sc); err != nil {
			sc.service.AppendLog(provisioning.NewLogEntry(action, step.Name, provisioning.StepOutcomeFailure, err))
			if persistErr := o.services.Update(ctx, sc.service); persistErr != nil {
				log.Error("failed to persist failure log entry", zap.Error(persistErr))
			}

			if device.IsTransient(err) {
				log.Warn("step failed transiently, leaving retry to job runner",
					zap.String("step", step.Name), zap.Error(err))
				return fmt.Errorf("step %s: %w", step.Name, err)
			}

			log.Error("step failed permanently, compensating completed steps",
				zap.String("step", step.Name), zap.Error(err))
			o.compensate(ctx, log, sc, action, completed)
			return jobs.Permanent(fmt.Errorf("step %s: %w", step.Name, err))
		}

		sc.service.AppendLog(provisioning.NewLogEntry(action, step.Name, provisioning.StepOutcomeSuccess, nil))
		if err := o.services.Update(ctx, sc.service); err != nil {
			return fmt.Errorf("persist after step %s: %w", step.Name, err)
		}
		completed = append(completed, step)
	}
	return nil
}

// compensate undoes completed steps in reverse order. A compensation hitting
// an already-absent remote object counts as success.
func (o *Orchestrator) compensate(ctx context.Context, log *zap.Logger, sc *stepContext, action provisioning.Action, completed []Step) {
	for i := len(completed) - 1; i >= 0; i-- {
		step := completed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx, sc); err != nil && !device.IsNotFound(err) {
			log.Error("compensation failed, manual cleanup required",
				zap.String("step", step.Name), zap.Error(err))
			sc.service.AppendLog(provisioning.NewLogEntry(action, step.Name+"-rollback", provisioning.StepOutcomeFailure, err))
			continue
		}
		sc.service.AppendLog(provisioning.NewLogEntry(action, step.Name, provisioning.StepOutcomeCompensated, nil))
	}
	if err := o.services.Update(ctx, sc.service); err != nil {
		log.Error("failed to persist compensation results", zap.Error(err))
	}
}
