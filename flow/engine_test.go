package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/dialogflow/types"
)

// testHandlers provides controllable side-effect handlers for the built-in
// flows.
type testHandlers struct {
	available   bool
	escalations []map[string]any
	bookings    int
}

func (h *testHandlers) register(r *ActionRegistry) {
	r.Register(ActionFunc{Name: "check_availability", Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
		return h.available, nil
	}})
	r.Register(ActionFunc{Name: "confirm_booking", Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
		h.bookings++
		return map[string]any{"booking_id": "bk-001", "date": ac.Params["date"]}, nil
	}})
	r.Register(ActionFunc{Name: "notify_escalation", Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
		h.escalations = append(h.escalations, ac.Params)
		return map[string]any{"notified": true}, nil
	}})
	r.Register(ActionFunc{Name: ActionKnowledgeSearch, Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
		return []string{"restart the printer"}, nil
	}})
}

func newTestEngine(t *testing.T, handlers *testHandlers) *Engine {
	t.Helper()
	registry := NewActionRegistry()
	handlers.register(registry)
	e := NewEngine(registry, DefaultPredicates(), DefaultIntentFlows(), nil)
	for _, def := range BuiltinFlows() {
		require.NoError(t, e.RegisterFlow(def))
	}
	return e
}

func turn(utterance string, intent types.Intent, entities map[string]any) TurnInput {
	return TurnInput{
		Utterance: utterance,
		Analysis: types.AnalysisResult{
			Intent:     intent,
			Entities:   entities,
			Confidence: 0.8,
		},
	}
}

func TestBookingHappyPath(t *testing.T) {
	handlers := &testHandlers{available: true}
	e := newTestEngine(t, handlers)
	ctx := context.Background()

	// The booking intent routes to the healthcare_appointment flow and the
	// engine immediately asks for identity.
	r, err := e.ProcessTurn(ctx, "s1", turn("Hello, I want to book an appointment", types.IntentAppointmentBooking, nil))
	require.NoError(t, err)
	assert.Equal(t, FlowHealthcareAppointment, r.FlowID)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, "collect_identity", r.NodeID)
	assert.Contains(t, r.Prompt, "姓名")

	// Identity arrives; the flow asks for a schedule, greeting by name.
	r, err = e.ProcessTurn(ctx, "s1", turn("我叫王小明，电话13812345678", types.IntentUndetermined,
		map[string]any{"name": "王小明", "phone": "13812345678"}))
	require.NoError(t, err)
	assert.Equal(t, "collect_schedule", r.NodeID)
	assert.Contains(t, r.Prompt, "王小明")

	// Schedule arrives; availability check, booking and end chain through
	// within the same turn.
	r, err = e.ProcessTurn(ctx, "s1", turn("明天上午10:00", types.IntentUndetermined,
		map[string]any{"date": "明天", "time": "10:00"}))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	require.NotNil(t, r.Summary)
	assert.Equal(t, StatusCompleted, r.Summary.Status)
	assert.Equal(t, 1, handlers.bookings)
	booking, ok := r.Summary.Variables["booking"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bk-001", booking["booking_id"])

	// The execution state is gone once the flow completes.
	_, err = e.Status("s1")
	assert.True(t, types.IsCode(err, types.ErrFlowNotActive))
}

func TestBookingUnavailableSuggestsAlternatives(t *testing.T) {
	handlers := &testHandlers{available: false}
	e := newTestEngine(t, handlers)
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("book an appointment", types.IntentAppointmentBooking, nil))
	require.NoError(t, err)
	_, err = e.ProcessTurn(ctx, "s1", turn("王小明 13812345678", types.IntentUndetermined,
		map[string]any{"name": "王小明", "phone": "13812345678"}))
	require.NoError(t, err)

	r, err := e.ProcessTurn(ctx, "s1", turn("明天10点", types.IntentUndetermined,
		map[string]any{"date": "明天", "time": "10:00"}))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, "suggest_alternatives", r.NodeID)
	assert.Contains(t, r.Prompt, "约满")

	// A new slot that is free completes the booking.
	handlers.available = true
	r, err = e.ProcessTurn(ctx, "s1", turn("那后天下午3点", types.IntentUndetermined,
		map[string]any{"date": "后天", "time": "15:00"}))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, 1, handlers.bookings)
}

func TestAttemptCounterIncrementsAndResets(t *testing.T) {
	e := newTestEngine(t, &testHandlers{available: true})
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("book an appointment", types.IntentAppointmentBooking, nil))
	require.NoError(t, err)

	// Unsatisfied re-entries strictly increase the counter.
	for i := 1; i <= 2; i++ {
		r, err := e.ProcessTurn(ctx, "s1", turn("嗯……", types.IntentUndetermined, nil))
		require.NoError(t, err)
		assert.Equal(t, "collect_identity", r.NodeID)

		info, err := e.Status("s1")
		require.NoError(t, err)
		assert.Equal(t, i, info.Attempts["collect_identity"])
	}

	// Satisfying the gate transitions away and resets the counter to zero.
	_, err = e.ProcessTurn(ctx, "s1", turn("王小明 13812345678", types.IntentUndetermined,
		map[string]any{"name": "王小明", "phone": "13812345678"}))
	require.NoError(t, err)
	info, err := e.Status("s1")
	require.NoError(t, err)
	assert.Zero(t, info.Attempts["collect_identity"])
	assert.Equal(t, "collect_schedule", info.CurrentNode)
}

func TestMaxAttemptsEscalates(t *testing.T) {
	handlers := &testHandlers{}
	e := newTestEngine(t, handlers)
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("book an appointment", types.IntentAppointmentBooking, nil))
	require.NoError(t, err)

	// Three failed attempts re-ask; the fourth escalates.
	for i := 0; i < 3; i++ {
		r, err := e.ProcessTurn(ctx, "s1", turn("不知道", types.IntentUndetermined, nil))
		require.NoError(t, err)
		assert.Equal(t, StatusActive, r.Status, "attempt %d", i+1)
	}
	r, err := e.ProcessTurn(ctx, "s1", turn("不知道", types.IntentUndetermined, nil))
	require.NoError(t, err)
	assert.True(t, r.Escalated)
	assert.Equal(t, StatusEscalated, r.Status)
	assert.Equal(t, ReasonMaxAttempts, r.Reason)

	// The escalation handler saw the reason and the failing node.
	require.Len(t, handlers.escalations, 1)
	assert.Equal(t, ReasonMaxAttempts, handlers.escalations[0]["reason"])
	assert.Equal(t, "collect_identity", handlers.escalations[0]["node"])

	// The escalation node chains to the end node, closing the flow.
	require.NotNil(t, r.Summary)
	assert.Equal(t, StatusEscalated, r.Summary.Status)
}

func TestMaxAttemptsWithoutEscalationNodeFails(t *testing.T) {
	registry := NewActionRegistry()
	e := NewEngine(registry, nil, map[types.Intent]string{types.IntentInformationRequest: "stubborn"}, nil)
	def := NewDefinition("stubborn", "stubborn", "start",
		&Node{ID: "start", Type: NodeStart, DefaultNext: "ask"},
		&Node{
			ID: "ask", Type: NodeCollect,
			Actions:     []ActionRef{{Type: ActionAskQuestion, Params: map[string]any{"text": "name?"}}},
			Conditions:  []Condition{{Kind: CondEntityPresent, Field: "name"}},
			DefaultNext: "done",
			MaxAttempts: 3,
		},
		&Node{ID: "done", Type: NodeEnd},
	)
	require.NoError(t, e.RegisterFlow(def))
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("info please", types.IntentInformationRequest, nil))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = e.ProcessTurn(ctx, "s1", turn("no", types.IntentUndetermined, nil))
		require.NoError(t, err)
	}

	r, err := e.ProcessTurn(ctx, "s1", turn("no", types.IntentUndetermined, nil))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, ReasonMaxAttempts, r.Reason)
	require.NotNil(t, r.Summary)
	assert.Equal(t, StatusFailed, r.Summary.Status)

	_, err = e.Status("s1")
	assert.True(t, types.IsCode(err, types.ErrFlowNotActive))
}

func TestNodeTimeoutEscalates(t *testing.T) {
	handlers := &testHandlers{}
	registry := NewActionRegistry()
	handlers.register(registry)
	e := NewEngine(registry, nil, map[types.Intent]string{types.IntentIssueReport: "slow_collect"}, nil)
	def := NewDefinition("slow_collect", "slow_collect", "start",
		&Node{ID: "start", Type: NodeStart, DefaultNext: "ask"},
		&Node{
			ID: "ask", Type: NodeCollect,
			Actions:     []ActionRef{{Type: ActionAskQuestion, Params: map[string]any{"text": "还在吗？"}}},
			Conditions:  []Condition{{Kind: CondEntityPresent, Field: "answer"}},
			DefaultNext: "done",
			Timeout:     10 * time.Millisecond,
		},
		&Node{
			ID: "handoff", Type: NodeEscalation,
			Actions:     []ActionRef{{Type: "notify_escalation", Params: map[string]any{"reason": "{escalation_reason}"}}},
			DefaultNext: "done",
		},
		&Node{ID: "done", Type: NodeEnd},
	)
	require.NoError(t, e.RegisterFlow(def))
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("it broke", types.IntentIssueReport, nil))
	require.NoError(t, err)

	// A turn arriving past the node deadline escalates instead of re-asking.
	time.Sleep(20 * time.Millisecond)
	r, err := e.ProcessTurn(ctx, "s1", turn("hello?", types.IntentUndetermined, nil))
	require.NoError(t, err)
	assert.True(t, r.Escalated)
	assert.Equal(t, StatusEscalated, r.Status)
	assert.Equal(t, ReasonNodeTimeout, r.Reason)
	require.Len(t, handlers.escalations, 1)
	assert.Equal(t, ReasonNodeTimeout, handlers.escalations[0]["reason"])
}

func TestSetVariableRoundTripThroughTemplates(t *testing.T) {
	registry := NewActionRegistry()
	e := NewEngine(registry, nil, nil, nil)
	def := NewDefinition("vars", "vars", "start",
		&Node{
			ID: "start", Type: NodeStart,
			Actions: []ActionRef{{
				Type:   ActionSetVariable,
				Params: map[string]any{"clinic": "东区门诊"},
			}},
			DefaultNext: "greet",
		},
		&Node{
			ID: "greet", Type: NodeCollect,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "欢迎来到{clinic}，请问怎么称呼？"},
			}},
			DefaultNext: "done",
		},
		&Node{ID: "done", Type: NodeEnd},
	)
	require.NoError(t, e.RegisterFlow(def))

	// A variable set in one node is readable by template substitution in a
	// later node of the same execution.
	r, err := e.Start(context.Background(), "s1", "vars")
	require.NoError(t, err)
	assert.Equal(t, "欢迎来到东区门诊，请问怎么称呼？", r.Prompt)
}

func TestEmergencyFlowEscalatesImmediately(t *testing.T) {
	handlers := &testHandlers{}
	e := newTestEngine(t, handlers)

	input := TurnInput{
		Utterance: "救命，他胸痛呼吸困难",
		Analysis: types.AnalysisResult{
			Intent:  types.IntentEmergency,
			Urgency: 0.95,
		},
	}
	r, err := e.ProcessTurn(context.Background(), "s1", input)
	require.NoError(t, err)
	assert.True(t, r.Escalated)
	assert.Equal(t, StatusEscalated, r.Status)
	require.NotNil(t, r.Summary)

	require.Len(t, handlers.escalations, 1)
	assert.Equal(t, "immediate", handlers.escalations[0]["channel"])
}

func TestEmergencyFlowPriorityPath(t *testing.T) {
	handlers := &testHandlers{}
	e := newTestEngine(t, handlers)

	input := TurnInput{
		Utterance: "这算急事吗",
		Analysis: types.AnalysisResult{
			Intent:  types.IntentEmergency,
			Urgency: 0.5,
		},
	}
	_, err := e.ProcessTurn(context.Background(), "s1", input)
	require.NoError(t, err)
	require.Len(t, handlers.escalations, 1)
	assert.Equal(t, "priority", handlers.escalations[0]["channel"])
}

func TestIssueResolutionConfirmClose(t *testing.T) {
	e := newTestEngine(t, &testHandlers{})
	ctx := context.Background()

	r, err := e.ProcessTurn(ctx, "s1", turn("I have a problem", types.IntentIssueReport, nil))
	require.NoError(t, err)
	assert.Equal(t, "capture_issue", r.NodeID)

	// The description routes through priority classification and knowledge
	// lookup, ending at the confirmation question.
	r, err = e.ProcessTurn(ctx, "s1", turn("打印机坏了", types.IntentUndetermined, nil))
	require.NoError(t, err)
	assert.Equal(t, "confirm_close", r.NodeID)
	assert.Contains(t, r.Prompt, "解决")

	info, err := e.Status("s1")
	require.NoError(t, err)
	assert.Equal(t, "打印机坏了", info.Variables["issue"])

	r, err = e.ProcessTurn(ctx, "s1", turn("yes", types.IntentConfirmation, nil))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, r.Status)
}

func TestIssueResolutionHighPriorityEscalates(t *testing.T) {
	handlers := &testHandlers{}
	e := newTestEngine(t, handlers)
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("I have a problem", types.IntentIssueReport, nil))
	require.NoError(t, err)

	input := TurnInput{
		Utterance: "服务器瘫痪了，非常紧急",
		Analysis: types.AnalysisResult{
			Intent:  types.IntentUndetermined,
			Urgency: 0.9,
		},
	}
	r, err := e.ProcessTurn(ctx, "s1", input)
	require.NoError(t, err)
	assert.True(t, r.Escalated)
	require.Len(t, handlers.escalations, 1)
}

func TestStartExplicitAndDoubleStart(t *testing.T) {
	e := newTestEngine(t, &testHandlers{})
	ctx := context.Background()

	r, err := e.Start(ctx, "s1", FlowHealthcareAppointment)
	require.NoError(t, err)
	assert.Equal(t, "collect_identity", r.NodeID)
	assert.NotEmpty(t, r.Prompt)

	_, err = e.Start(ctx, "s1", FlowEmergency)
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFlowConfig))
}

func TestStartUnknownFlowIsConfigError(t *testing.T) {
	e := newTestEngine(t, &testHandlers{})
	_, err := e.Start(context.Background(), "s1", "no_such_flow")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFlowConfig))
}

func TestProcessTurnWithoutFlowOrIntent(t *testing.T) {
	e := newTestEngine(t, &testHandlers{})
	_, err := e.ProcessTurn(context.Background(), "s1", turn("你好", types.IntentGreeting, nil))
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrFlowNotActive))
}

func TestEndFlowSummary(t *testing.T) {
	e := newTestEngine(t, &testHandlers{})
	ctx := context.Background()

	_, err := e.ProcessTurn(ctx, "s1", turn("book an appointment", types.IntentAppointmentBooking, nil))
	require.NoError(t, err)

	summary, err := e.End("s1")
	require.NoError(t, err)
	assert.Equal(t, FlowHealthcareAppointment, summary.FlowID)
	assert.Equal(t, "ended_by_caller", summary.Reason)
	assert.Greater(t, summary.NodeVisits, 0)

	_, err = e.End("s1")
	assert.True(t, types.IsCode(err, types.ErrFlowNotActive))
}
