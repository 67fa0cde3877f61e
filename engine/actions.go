package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/flow"
	"github.com/BaSui01/dialogflow/knowledge"
)

// registerDefaultActions fills in the side-effect handlers the built-in flows
// reference, without overriding handlers the caller already registered.
func registerDefaultActions(registry *flow.ActionRegistry, searcher knowledge.Searcher, logger *zap.Logger) {
	defaults := []flow.Action{
		checkAvailabilityAction(),
		confirmBookingAction(),
		notifyEscalationAction(logger),
		flow.KnowledgeSearchAction(searcher, logger),
	}
	for _, action := range defaults {
		if _, exists := registry.Get(action.Type()); !exists {
			registry.Register(action)
		}
	}
}

// checkAvailabilityAction is the stand-in availability check: every slot is
// free. Real deployments register their own handler under the same type.
func checkAvailabilityAction() flow.Action {
	return flow.ActionFunc{
		Name: "check_availability",
		Fn: func(ctx context.Context, ac *flow.ActionContext) (any, error) {
			return true, nil
		},
	}
}

// confirmBookingAction issues a booking id and echoes the booked slot.
func confirmBookingAction() flow.Action {
	return flow.ActionFunc{
		Name: "confirm_booking",
		Fn: func(ctx context.Context, ac *flow.ActionContext) (any, error) {
			booking := map[string]any{
				"booking_id": uuid.NewString(),
			}
			for _, key := range []string{"name", "phone", "date", "time"} {
				if value, ok := ac.Params[key]; ok {
					booking[key] = value
				}
			}
			return booking, nil
		},
	}
}

// notifyEscalationAction logs the handoff; the payload marks it delivered so
// the flow can carry on to its end node.
func notifyEscalationAction(logger *zap.Logger) flow.Action {
	if logger == nil {
		logger = zap.NewNop()
	}
	return flow.ActionFunc{
		Name: "notify_escalation",
		Fn: func(ctx context.Context, ac *flow.ActionContext) (any, error) {
			logger.Warn("escalation notified",
				zap.String("session_id", ac.SessionID),
				zap.String("flow_id", ac.FlowID),
				zap.Any("params", ac.Params))
			return map[string]any{"notified": true}, nil
		},
	}
}
