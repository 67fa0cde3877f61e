package flow

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/BaSui01/dialogflow/types"
)

// gateFlow is a one-gate flow used to exercise attempt accounting: the gate
// only opens when the "key" entity is present.
func gateFlow(maxAttempts int) *Definition {
	return NewDefinition("gate", "gate", "start",
		&Node{ID: "start", Type: NodeStart, DefaultNext: "gate"},
		&Node{
			ID: "gate", Type: NodeCollect,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "key?"},
			}},
			Conditions:  []Condition{{Kind: CondEntityPresent, Field: "key"}},
			DefaultNext: "done",
			MaxAttempts: maxAttempts,
		},
		&Node{ID: "handoff", Type: NodeEscalation, DefaultNext: "done"},
		&Node{ID: "done", Type: NodeEnd},
	)
}

func TestAttemptAccountingProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("failed attempts count up and the limit escalates exactly once",
		prop.ForAll(
			func(maxAttempts, failedTurns int) bool {
				e := NewEngine(NewActionRegistry(), nil,
					map[types.Intent]string{types.IntentInformationRequest: "gate"}, nil)
				if err := e.RegisterFlow(gateFlow(maxAttempts)); err != nil {
					return false
				}
				ctx := context.Background()

				if _, err := e.ProcessTurn(ctx, "s", TurnInput{
					Utterance: "hi",
					Analysis:  types.AnalysisResult{Intent: types.IntentInformationRequest},
				}); err != nil {
					return false
				}

				prev := 0
				for i := 0; i < failedTurns; i++ {
					r, err := e.ProcessTurn(ctx, "s", TurnInput{
						Utterance: "no key here",
						Analysis:  types.AnalysisResult{Intent: types.IntentUndetermined},
					})
					if err != nil {
						return false
					}
					if i < maxAttempts {
						// Within the limit the counter strictly increases and
						// the flow keeps re-asking.
						info, err := e.Status("s")
						if err != nil || r.Status != StatusActive {
							return false
						}
						if info.Attempts["gate"] != prev+1 {
							return false
						}
						prev = info.Attempts["gate"]
					} else {
						// The first over-limit turn escalates and closes the
						// flow; there is no execution left afterwards.
						if !r.Escalated || r.Reason != ReasonMaxAttempts {
							return false
						}
						_, err := e.Status("s")
						return types.IsCode(err, types.ErrFlowNotActive)
					}
				}
				return true
			},
			gen.IntRange(1, 5),
			gen.IntRange(0, 8),
		))

	properties.Property("a satisfied gate resets the counter via transition",
		prop.ForAll(
			func(failedTurns int) bool {
				e := NewEngine(NewActionRegistry(), nil,
					map[types.Intent]string{types.IntentInformationRequest: "gate"}, nil)
				if err := e.RegisterFlow(gateFlow(failedTurns + 2)); err != nil {
					return false
				}
				ctx := context.Background()

				if _, err := e.ProcessTurn(ctx, "s", TurnInput{
					Utterance: "hi",
					Analysis:  types.AnalysisResult{Intent: types.IntentInformationRequest},
				}); err != nil {
					return false
				}
				for i := 0; i < failedTurns; i++ {
					if _, err := e.ProcessTurn(ctx, "s", TurnInput{
						Utterance: "nope",
						Analysis:  types.AnalysisResult{Intent: types.IntentUndetermined},
					}); err != nil {
						return false
					}
				}

				r, err := e.ProcessTurn(ctx, "s", TurnInput{
					Utterance: "here you go",
					Analysis: types.AnalysisResult{
						Intent:   types.IntentUndetermined,
						Entities: map[string]any{"key": "value"},
					},
				})
				// Passing the gate moves to the end node and completes; the
				// counter for the departed node is gone with the execution.
				return err == nil && r.Status == StatusCompleted
			},
			gen.IntRange(0, 6),
		))

	properties.TestingRun(t)
}
