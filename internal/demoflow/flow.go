package demoflow

import (
	"context"
	"fmt"
	"time"

	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/observability"
	"github.com/parleyhq/parley/pkg/registry"
)

// Node names of the booking flow.
const (
	NodeGreeting         = "greeting"
	NodeServiceSelection = "service_selection"
	NodeSlotSearch       = "slot_search"
	NodeSlotSelection    = "slot_selection"
	NodeConfirm          = "confirm"
	NodeCompletion       = "completion"
	NodeEscalation       = "escalation"
	NodeRecovery         = "recovery"
)

// TaskBooking is the task name recorded while a booking is in progress.
const TaskBooking = "booking"

// Session value keys used by the flow.
const (
	keyService    = "service"
	keyChosenDate = "chosen_date"
	keyChosenTime = "chosen_time"
	keyConfirmed  = "confirmation_code"
)

var persona = []domain.Message{{
	Role:    domain.RoleSystem,
	Content: "You are the phone assistant of the Riverside Clinic. Be brief, warm and precise. Never invent availability; only offer slots returned by your tools.",
}}

// NewRegistry wires the clinic booking flow into a registry. A nil metrics
// bundle disables instrumentation.
func NewRegistry(clinic *Clinic, metrics *observability.Metrics) *registry.Registry {
	if metrics == nil {
		metrics = observability.NewNop()
	}
	reg := registry.New()

	reg.MustRegisterNode(NodeGreeting, greetingNode)
	reg.MustRegisterNode(NodeServiceSelection, serviceSelectionNode(clinic))
	reg.MustRegisterNode(NodeSlotSearch, slotSearchNode(clinic))
	reg.MustRegisterNode(NodeSlotSelection, slotSelectionNode(metrics))
	reg.MustRegisterNode(NodeConfirm, confirmNode(clinic, metrics))
	reg.MustRegisterNode(NodeCompletion, completionNode)
	reg.MustRegisterNode(NodeEscalation, escalationNode)
	reg.MustRegisterNode(NodeRecovery, recoveryNode)

	reg.MustRegisterGlobal(startBooking())
	reg.MustRegisterGlobal(knowledgeBase(clinic))
	reg.MustRegisterGlobal(getPricing(clinic))
	reg.MustRegisterGlobal(requestTransfer())
	reg.MustRegisterGlobal(continueTask())

	return reg
}

func greetingNode(_ *domain.State) domain.Node {
	return domain.Node{
		RoleMessages: persona,
		TaskMessages: []domain.Message{{
			Role:    domain.RoleSystem,
			Content: "Greet the caller and ask whether they want to book an appointment or have a question about the clinic.",
		}},
		RespondImmediately: true,
	}
}

func serviceSelectionNode(clinic *Clinic) registry.NodeBuilder {
	return func(_ *domain.State) domain.Node {
		return domain.Node{
			RoleMessages: persona,
			TaskMessages: []domain.Message{{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("Ask which service the caller wants. Available services: %v. Call select_service once they choose.", clinic.Services()),
			}},
			Functions: []domain.Function{{
				Name:        "select_service",
				Description: "Record the service the caller wants to book.",
				Parameters: map[string]any{
					"service": map[string]any{"type": "string", "description": "Service identifier"},
				},
				Required: []string{"service"},
				Scope:    domain.ScopeLocal,
				Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
					svc, _ := args["service"].(string)
					if !clinic.HasService(svc) {
						return domain.UserFixable(fmt.Sprintf("service %q is not offered; available: %v", svc, clinic.Services())), nil
					}
					if err := state.Set(keyService, svc); err != nil {
						return domain.Fail(domain.CategoryRecoverable, err.Error()), nil
					}
					// Switching service wipes any slots cached for the
					// previous one.
					state.Slots().SetService(svc)
					return domain.OK(map[string]any{"service": svc}), &domain.Node{Name: NodeSlotSearch}
				},
			}},
		}
	}
}

func slotSearchNode(clinic *Clinic) registry.NodeBuilder {
	return func(state *domain.State) domain.Node {
		return domain.Node{
			RoleMessages: persona,
			TaskMessages: []domain.Message{{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("Ask for a preferred date for the %s appointment, then call find_slots with it in YYYY-MM-DD form.", state.GetString(keyService)),
			}},
			StablePoint: true,
			Functions: []domain.Function{{
				Name:        "find_slots",
				Description: "Fetch open appointment slots for the chosen service on a date.",
				Parameters: map[string]any{
					"date": map[string]any{"type": "string", "description": "Requested date, YYYY-MM-DD"},
				},
				Required: []string{"date"},
				Scope:    domain.ScopeLocal,
				Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
					date, _ := args["date"].(string)
					if _, err := time.Parse("2006-01-02", date); err != nil {
						return domain.UserFixable(fmt.Sprintf("%q is not a valid date, expected YYYY-MM-DD", date)), nil
					}
					svc := state.GetString(keyService)
					slots, err := clinic.Availability(ctx, svc, date)
					if err != nil {
						return domain.Fail(domain.CategoryRecoverable, fmt.Sprintf("availability lookup failed: %v", err)), nil
					}
					if len(slots) == 0 {
						return domain.UserFixable(fmt.Sprintf("no availability for %s on %s, ask for another date", svc, date)), nil
					}

					state.Slots().SetAuthoritative(slots)
					times := make([]string, len(slots))
					for i, s := range slots {
						times[i] = s.Time
					}
					return domain.OK(map[string]any{"date": date, "times": times}), &domain.Node{Name: NodeSlotSelection}
				},
			}},
		}
	}
}

func slotSelectionNode(metrics *observability.Metrics) registry.NodeBuilder {
	return func(_ *domain.State) domain.Node {
		return domain.Node{
			RoleMessages: persona,
			TaskMessages: []domain.Message{{
				Role:    domain.RoleSystem,
				Content: "Offer the available times and call choose_slot once the caller picks one. Only offer times returned by find_slots.",
			}},
			StablePoint: true,
			Functions: []domain.Function{{
				Name:        "choose_slot",
				Description: "Record the slot the caller picked.",
				Parameters: map[string]any{
					"date": map[string]any{"type": "string", "description": "Slot date, YYYY-MM-DD (optional if unambiguous)"},
					"time": map[string]any{"type": "string", "description": "Slot time, HH:MM"},
				},
				Required: []string{"time"},
				Scope:    domain.ScopeLocal,
				Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
					date, _ := args["date"].(string)
					timeOfDay, _ := args["time"].(string)

					cache := state.Slots()
					slot, ok := cache.Lookup(date, timeOfDay)
					switch {
					case ok:
						metrics.CacheEvents.WithLabelValues(observability.CacheHit).Inc()
					case date == "":
						if slot, ok = cache.LookupByTime(timeOfDay); ok {
							metrics.CacheEvents.WithLabelValues(observability.CacheFallbackHit).Inc()
						}
					}
					if !ok {
						metrics.CacheEvents.WithLabelValues(observability.CacheMiss).Inc()
						return domain.UserFixable(fmt.Sprintf("%s is not among the offered times, please pick one of them", timeOfDay)), nil
					}

					if err := state.Set(keyChosenDate, slot.Date); err != nil {
						return domain.Fail(domain.CategoryRecoverable, err.Error()), nil
					}
					if err := state.Set(keyChosenTime, slot.Time); err != nil {
						return domain.Fail(domain.CategoryRecoverable, err.Error()), nil
					}
					return domain.OK(map[string]any{"date": slot.Date, "time": slot.Time}), &domain.Node{Name: NodeConfirm}
				},
			}},
		}
	}
}

func confirmNode(clinic *Clinic, metrics *observability.Metrics) registry.NodeBuilder {
	return func(state *domain.State) domain.Node {
		node := domain.Node{
			RoleMessages: persona,
			TaskMessages: []domain.Message{{
				Role:    domain.RoleSystem,
				Content: fmt.Sprintf("Read back the appointment (%s at %s) and ask the caller to confirm. Call confirm_booking with their answer.", state.GetString(keyChosenDate), state.GetString(keyChosenTime)),
			}},
			RespondImmediately: true,
		}
		node.Functions = []domain.Function{{
			Name:        "confirm_booking",
			Description: "Commit or cancel the pending booking.",
			Parameters: map[string]any{
				"confirmed": map[string]any{"type": "boolean", "description": "Whether the caller confirmed"},
			},
			Required: []string{"confirmed"},
			Scope:    domain.ScopeLocal,
			Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
				confirmed, _ := args["confirmed"].(bool)
				if !confirmed {
					return domain.OK(map[string]any{"cancelled": true}), &domain.Node{Name: NodeSlotSelection}
				}

				cache := state.Slots()
				slot, ok := cache.Lookup(state.GetString(keyChosenDate), state.GetString(keyChosenTime))
				if !ok {
					metrics.CacheEvents.WithLabelValues(observability.CacheMiss).Inc()
					return domain.Abort("chosen slot is no longer in the availability cache"), nil
				}
				metrics.CacheEvents.WithLabelValues(observability.CacheHit).Inc()

				return cache.GuardedCommit(ctx, slot, func(ctx context.Context) (domain.Outcome, *domain.Node) {
					code, err := clinic.Book(ctx, slot)
					if err != nil {
						return domain.Fail(domain.CategoryRecoverable, fmt.Sprintf("booking failed: %v", err)), nil
					}
					if err := state.Set(keyConfirmed, code); err != nil {
						return domain.Fail(domain.CategoryRecoverable, err.Error()), nil
					}
					state.EndTask()
					return domain.OK(map[string]any{"confirmation_code": code}), &domain.Node{Name: NodeCompletion}
				})
			},
		}}
		return node
	}
}

func completionNode(state *domain.State) domain.Node {
	return domain.Node{
		RoleMessages: persona,
		TaskMessages: []domain.Message{{
			Role:    domain.RoleSystem,
			Content: fmt.Sprintf("The booking is confirmed with code %s. Thank the caller and ask if there is anything else.", state.GetString(keyConfirmed)),
		}},
		RespondImmediately: true,
	}
}

func escalationNode(_ *domain.State) domain.Node {
	return domain.Node{
		RoleMessages: persona,
		TaskMessages: []domain.Message{{
			Role:    domain.RoleSystem,
			Content: "The caller is being transferred to a human operator. Apologize briefly and reassure them the operator has the conversation details.",
		}},
		PreActions: []domain.Action{{
			Type:    domain.ActionSay,
			Payload: "One moment please, I am transferring you to one of our staff.",
		}},
		RespondImmediately: true,
	}
}

func recoveryNode(_ *domain.State) domain.Node {
	return domain.Node{
		RoleMessages: persona,
		TaskMessages: []domain.Message{{
			Role:    domain.RoleSystem,
			Content: "Something went wrong with the booking data. Apologize and call restart_search to start the slot search over with fresh data.",
		}},
		PreActions: []domain.Action{{
			Type:    domain.ActionSay,
			Payload: "I am sorry, something went wrong on my side. Let me check the availability again.",
		}},
		RespondImmediately: true,
		Functions: []domain.Function{{
			Name:        "restart_search",
			Description: "Drop stale availability data and restart the slot search.",
			Scope:       domain.ScopeLocal,
			Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
				state.Slots().Clear()
				state.Delete(keyChosenDate)
				state.Delete(keyChosenTime)
				return domain.OK(nil), &domain.Node{Name: NodeSlotSearch}
			},
		}},
	}
}
