package provisioning

import (
	"context"
	"fmt"

	"github.com/netbill/backend/internal/domain/provisioning"
	"github.com/netbill/backend/internal/infrastructure/device"
)

// Device resource paths
const (
	pathPPPSecret   = "/ppp/secret"
	pathSimpleQueue = "/queue/simple"
	pathAddressList = "/ip/firewall/address-list"
)

// throttledRate is the queue limit applied to suspended static services.
// Suspension throttles rather than removes the queue.
const throttledRate = "64k/64k"

// stepContext carries the loaded aggregates and the device session one
// action execution works against
type stepContext struct {
	service *provisioning.Service
	plan    *provisioning.Plan
	router  *provisioning.Router
	conn    device.Conn
}

// Step is one ordered unit of an action: a forward device operation that
// mutates the service on success, and a compensating operation undoing it.
// Done reports whether a previous attempt already completed the step, making
// retried actions idempotent.
type Step struct {
	Name       string
	Done       func(service *provisioning.Service) bool
	Run        func(ctx context.Context, sc *stepContext) error
	Compensate func(ctx context.Context, sc *stepContext) error
}

// stepsFor returns the ordered step list for a (service type, action) pair
func stepsFor(serviceType provisioning.ServiceType, action provisioning.Action) ([]Step, error) {
	switch action {
	case provisioning.ActionCreate:
		if serviceType == provisioning.ServiceTypePPPoE {
			return []Step{createSecretStep(), createQueueStep()}, nil
		}
		return []Step{addAddressListStep(), createQueueStep()}, nil

	case provisioning.ActionSuspend:
		if serviceType == provisioning.ServiceTypePPPoE {
			return []Step{setSecretProfileStep("set-secret-profile-suspended", false)}, nil
		}
		return []Step{
			moveAddressListStep("move-to-suspended-list", false),
			setQueueLimitStep("throttle-queue", false),
		}, nil

	case provisioning.ActionReactivate:
		if serviceType == provisioning.ServiceTypePPPoE {
			return []Step{setSecretProfileStep("restore-secret-profile", true)}, nil
		}
		return []Step{
			moveAddressListStep("move-to-active-list", true),
			setQueueLimitStep("restore-queue", true),
		}, nil

	case provisioning.ActionDelete:
		if serviceType == provisioning.ServiceTypePPPoE {
			// Reverse creation order: queue first, then secret
			return []Step{removeQueueStep(), removeSecretStep()}, nil
		}
		return []Step{removeQueueStep(), removeAddressListStep()}, nil
	}
	return nil, fmt.Errorf("no step list for action %s", action)
}

// rateLimit renders the plan rate as the device "up/down" limit string
func rateLimit(plan *provisioning.Plan) string {
	return fmt.Sprintf("%dk/%dk", plan.RateUpKbps, plan.RateDownKbps)
}

// queueParams builds the simple-queue parameters for a service on its plan
func queueParams(sc *stepContext) map[string]string {
	params := map[string]string{
		"name":      sc.service.Name,
		"target":    queueTarget(sc.service),
		"max-limit": rateLimit(sc.plan),
	}
	if sc.plan.HasBurst() && sc.router.SupportsBurst {
		params["burst-limit"] = fmt.Sprintf("%dk/%dk", sc.plan.BurstLimitUpKbps, sc.plan.BurstLimitDownKbps)
		params["burst-threshold"] = fmt.Sprintf("%dk/%dk", sc.plan.BurstThresholdUpKbps, sc.plan.BurstThresholdDownKbps)
		params["burst-time"] = fmt.Sprintf("%ds/%ds", sc.plan.BurstTimeSeconds, sc.plan.BurstTimeSeconds)
	}
	return params
}

func queueTarget(service *provisioning.Service) string {
	if service.ServiceType == provisioning.ServiceTypeStatic {
		return service.StaticIP
	}
	return "<pppoe-" + service.Username + ">"
}

// removeByRef removes a remote object by handle, treating not-found as
// success: remove idempotency is the orchestrator's responsibility.
func removeByRef(ctx context.Context, sc *stepContext, path, ref string) error {
	_, err := sc.conn.Execute(ctx, device.Command{
		Verb:   device.VerbRemove,
		Path:   path,
		Params: map[string]string{".id": ref},
	})
	if err != nil && !device.IsNotFound(err) {
		return err
	}
	return nil
}

func createSecretStep() Step {
	return Step{
		Name: "create-secret",
		Done: func(s *provisioning.Service) bool { return s.SecretRef != nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			reply, err := sc.conn.Execute(ctx, device.Command{
				Verb: device.VerbAdd,
				Path: pathPPPSecret,
				Params: map[string]string{
					"name":     sc.service.Username,
					"password": sc.service.Password,
					"service":  "pppoe",
					"profile":  sc.plan.Profile,
				},
			})
			if err != nil {
				return err
			}
			sc.service.SecretRef = &reply.ID
			return nil
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			if sc.service.SecretRef == nil {
				return nil
			}
			if err := removeByRef(ctx, sc, pathPPPSecret, *sc.service.SecretRef); err != nil {
				return err
			}
			sc.service.SecretRef = nil
			return nil
		},
	}
}

func createQueueStep() Step {
	return Step{
		Name: "create-queue",
		Done: func(s *provisioning.Service) bool { return s.QueueRef != nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			reply, err := sc.conn.Execute(ctx, device.Command{
				Verb:   device.VerbAdd,
				Path:   pathSimpleQueue,
				Params: queueParams(sc),
			})
			if err != nil {
				return err
			}
			sc.service.QueueRef = &reply.ID
			return nil
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			if sc.service.QueueRef == nil {
				return nil
			}
			if err := removeByRef(ctx, sc, pathSimpleQueue, *sc.service.QueueRef); err != nil {
				return err
			}
			sc.service.QueueRef = nil
			return nil
		},
	}
}

func addAddressListStep() Step {
	return Step{
		Name: "add-address-list-entry",
		Done: func(s *provisioning.Service) bool { return s.AddressListRef != nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			reply, err := sc.conn.Execute(ctx, device.Command{
				Verb: device.VerbAdd,
				Path: pathAddressList,
				Params: map[string]string{
					"list":    sc.plan.AddressList,
					"address": sc.service.StaticIP,
					"comment": sc.service.Name,
				},
			})
			if err != nil {
				return err
			}
			sc.service.AddressListRef = &reply.ID
			return nil
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			if sc.service.AddressListRef == nil {
				return nil
			}
			if err := removeByRef(ctx, sc, pathAddressList, *sc.service.AddressListRef); err != nil {
				return err
			}
			sc.service.AddressListRef = nil
			return nil
		},
	}
}

// setSecretProfileStep flips the PPP profile between active and suspended.
// Set operations are idempotent to repeat, so no Done check is needed.
func setSecretProfileStep(name string, toActive bool) Step {
	profile := func(sc *stepContext, active bool) string {
		if active {
			return sc.plan.Profile
		}
		return sc.plan.SuspendedProfile
	}
	return Step{
		Name: name,
		Run: func(ctx context.Context, sc *stepContext) error {
			if sc.service.SecretRef == nil {
				return fmt.Errorf("service %s has no secret handle", sc.service.Name)
			}
			_, err := sc.conn.Execute(ctx, device.Command{
				Verb: device.VerbSet,
				Path: pathPPPSecret,
				Params: map[string]string{
					".id":     *sc.service.SecretRef,
					"profile": profile(sc, toActive),
				},
			})
			return err
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			_, err := sc.conn.Execute(ctx, device.Command{
				Verb: device.VerbSet,
				Path: pathPPPSecret,
				Params: map[string]string{
					".id":     *sc.service.SecretRef,
					"profile": profile(sc, !toActive),
				},
			})
			return err
		},
	}
}

// moveAddressListStep moves the service's address-list entry between the
// plan's active and suspended lists. Removing the old entry and adding the
// new one form a single step: the handle cannot record which list it points
// to, so only the combined move is safely re-runnable.
func moveAddressListStep(name string, toActive bool) Step {
	targetList := func(sc *stepContext, active bool) string {
		if active {
			return sc.plan.AddressList
		}
		return sc.plan.SuspendedAddressList
	}
	move := func(ctx context.Context, sc *stepContext, active bool) error {
		if sc.service.AddressListRef != nil {
			if err := removeByRef(ctx, sc, pathAddressList, *sc.service.AddressListRef); err != nil {
				return err
			}
			sc.service.AddressListRef = nil
		}
		reply, err := sc.conn.Execute(ctx, device.Command{
			Verb: device.VerbAdd,
			Path: pathAddressList,
			Params: map[string]string{
				"list":    targetList(sc, active),
				"address": sc.service.StaticIP,
				"comment": sc.service.Name,
			},
		})
		if err != nil {
			return err
		}
		sc.service.AddressListRef = &reply.ID
		return nil
	}
	return Step{
		Name: name,
		Run: func(ctx context.Context, sc *stepContext) error {
			return move(ctx, sc, toActive)
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			return move(ctx, sc, !toActive)
		},
	}
}

// setQueueLimitStep throttles or restores the service queue
func setQueueLimitStep(name string, toActive bool) Step {
	limit := func(sc *stepContext, active bool) string {
		if active {
			return rateLimit(sc.plan)
		}
		return throttledRate
	}
	set := func(ctx context.Context, sc *stepContext, active bool) error {
		if sc.service.QueueRef == nil {
			return fmt.Errorf("service %s has no queue handle", sc.service.Name)
		}
		_, err := sc.conn.Execute(ctx, device.Command{
			Verb: device.VerbSet,
			Path: pathSimpleQueue,
			Params: map[string]string{
				".id":       *sc.service.QueueRef,
				"max-limit": limit(sc, active),
			},
		})
		return err
	}
	return Step{
		Name: name,
		Run: func(ctx context.Context, sc *stepContext) error {
			return set(ctx, sc, toActive)
		},
		Compensate: func(ctx context.Context, sc *stepContext) error {
			return set(ctx, sc, !toActive)
		},
	}
}

func removeQueueStep() Step {
	return Step{
		Name: "remove-queue",
		Done: func(s *provisioning.Service) bool { return s.QueueRef == nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			if err := removeByRef(ctx, sc, pathSimpleQueue, *sc.service.QueueRef); err != nil {
				return err
			}
			sc.service.QueueRef = nil
			return nil
		},
	}
}

func removeSecretStep() Step {
	return Step{
		Name: "remove-secret",
		Done: func(s *provisioning.Service) bool { return s.SecretRef == nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			if err := removeByRef(ctx, sc, pathPPPSecret, *sc.service.SecretRef); err != nil {
				return err
			}
			sc.service.SecretRef = nil
			return nil
		},
	}
}

func removeAddressListStep() Step {
	return Step{
		Name: "remove-address-list-entry",
		Done: func(s *provisioning.Service) bool { return s.AddressListRef == nil },
		Run: func(ctx context.Context, sc *stepContext) error {
			if err := removeByRef(ctx, sc, pathAddressList, *sc.service.AddressListRef); err != nil {
				return err
			}
			sc.service.AddressListRef = nil
			return nil
		},
	}
}
