package demoflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/pkg/domain"
)

// startBooking begins the booking task and moves to service selection.
// Callable anywhere, so a caller can jump into a booking mid-question.
func startBooking() domain.Function {
	return domain.Function{
		Name:        "start_booking",
		Description: "Start booking an appointment.",
		Scope:       domain.ScopeGlobal,
		Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
			state.BeginTask(TaskBooking)
			return domain.OK(nil), &domain.Node{Name: NodeServiceSelection}
		},
	}
}

// knowledgeBase answers general questions about the clinic. Mid-task, the
// outcome carries a continuation reminder so the model returns to the
// booking after answering.
//
// A miss is a knowledge gap, not a caller mistake: the assistant has
// nothing to offer on the topic and retrying will not change that, so it
// escalates on the first failure.
func knowledgeBase(clinic *Clinic) domain.Function {
	return domain.Function{
		Name:        "knowledge_base",
		Description: "Answer a general question about the clinic (hours, address, parking, exam preparation).",
		Parameters: map[string]any{
			"topic": map[string]any{"type": "string", "description": "Question topic keyword"},
		},
		Required: []string{"topic"},
		Scope:    domain.ScopeGlobal,
		Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
			topic, _ := args["topic"].(string)
			if strings.TrimSpace(topic) == "" {
				return domain.UserFixable("the question was empty, ask the caller what they want to know"), nil
			}
			answer, ok := clinic.Answer(topic)
			if !ok {
				return domain.Fail(domain.CategoryImmediate, fmt.Sprintf("no information about %q", topic)), nil
			}
			return domain.OK(map[string]any{"answer": answer}).WithContinuation(state), nil
		},
	}
}

// getPricing looks up the listed price of a service. An unknown service is
// a real failure, not a user mistake: the price list is supposed to cover
// everything select_service accepts.
func getPricing(clinic *Clinic) domain.Function {
	return domain.Function{
		Name:        "get_pricing",
		Description: "Get the listed price for a service.",
		Parameters: map[string]any{
			"service": map[string]any{"type": "string", "description": "Service identifier"},
		},
		Required: []string{"service"},
		Scope:    domain.ScopeGlobal,
		Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
			service, _ := args["service"].(string)
			price, ok := clinic.Pricing(service)
			if !ok {
				return domain.Fail(domain.CategoryRecoverable, fmt.Sprintf("no price listed for %q", service)), nil
			}
			return domain.OK(map[string]any{"service": service, "price": price}).WithContinuation(state), nil
		},
	}
}

// requestTransfer implements the two-step transfer negotiation. The first
// call arms the ledger and asks the caller to confirm; once armed, a
// repeat call counts as a frustrated failure, which escalates immediately
// under the default policy.
func requestTransfer() domain.Function {
	return domain.Function{
		Name:        "request_transfer",
		Description: "The caller asked to speak with a human operator.",
		Scope:       domain.ScopeGlobal,
		Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
			ledger := state.Failures()
			if ledger.TransferRequested {
				return domain.Fail(domain.CategoryFrustrated, "caller insists on a human operator"), nil
			}
			ledger.RequestTransfer()
			return domain.OK(map[string]any{
				"instruction": "Ask the caller to confirm they want a human operator, and offer to help once more yourself.",
			}), nil
		},
	}
}

// continueTask hands control back to the interrupted task's stable point.
func continueTask() domain.Function {
	return domain.Function{
		Name:        "continue_task",
		Description: "Resume the interrupted booking where it left off.",
		Scope:       domain.ScopeGlobal,
		Handler: func(ctx context.Context, args domain.Args, state *domain.State) (domain.Outcome, *domain.Node) {
			if _, ok := state.ResumePoint(); !ok {
				return domain.UserFixable("there is no interrupted task to resume"), nil
			}
			return domain.Resume(nil), nil
		},
	}
}
