package engine

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/flow"
	"github.com/BaSui01/dialogflow/internal/metrics"
	"github.com/BaSui01/dialogflow/knowledge"
	"github.com/BaSui01/dialogflow/llm"
	"github.com/BaSui01/dialogflow/nlu"
	"github.com/BaSui01/dialogflow/respond"
	"github.com/BaSui01/dialogflow/session"
	"github.com/BaSui01/dialogflow/types"
)

// Options configures the orchestrator. Zero values get working defaults:
// in-memory session store, in-memory knowledge index, the built-in flows and
// the default persona.
type Options struct {
	Client   llm.Client
	Store    session.Store
	Searcher knowledge.Searcher
	Persona  types.Persona

	NLU     nlu.Config
	Respond respond.Config

	// Flows are the definitions to register; nil means the built-in set. An
	// empty non-nil slice registers nothing.
	Flows []*flow.Definition
	// FlowFiles are additional YAML definition files loaded at construction.
	FlowFiles   []string
	IntentFlows map[types.Intent]string
	Predicates  map[string]flow.Predicate
	Actions     *flow.ActionRegistry

	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// TurnResult is what one processed turn returns to the caller.
type TurnResult struct {
	Reply      string              `json:"reply"`
	Intent     types.Intent        `json:"intent"`
	Entities   map[string]any      `json:"entities,omitempty"`
	Sentiment  float64             `json:"sentiment"`
	Emotion    string              `json:"emotion"`
	Language   string              `json:"language"`
	Actions    []flow.ActionResult `json:"actions,omitempty"`
	FlowStatus flow.Status         `json:"flow_status,omitempty"`
	FlowID     string              `json:"flow_id,omitempty"`
	State      types.DialogueState `json:"state"`
	Confidence float64             `json:"confidence"`
	IsFallback bool                `json:"is_fallback"`
	FollowUps  []string            `json:"follow_ups,omitempty"`
	Summary    *flow.Summary       `json:"summary,omitempty"`
}

// Engine orchestrates one dialogue turn across analyzer, session store, flow
// engine and synthesizer.
type Engine struct {
	analyzer *nlu.Analyzer
	store    session.Store
	flows    *flow.Engine
	synth    *respond.Synthesizer
	persona  types.Persona
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// New builds a fully wired engine from the options.
func New(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := opts.Store
	if store == nil {
		store = session.NewMemoryStore()
	}
	searcher := opts.Searcher
	if searcher == nil {
		searcher = knowledge.NewMemoryIndex()
	}
	persona := opts.Persona
	if persona.Name == "" {
		persona = types.DefaultPersona()
	}
	client := opts.Client
	if client != nil && opts.Metrics != nil {
		client = llm.Chain(client, llm.WithMetrics(opts.Metrics))
	}

	registry := opts.Actions
	if registry == nil {
		registry = flow.NewActionRegistry()
	}
	registerDefaultActions(registry, searcher, logger)

	intentFlows := opts.IntentFlows
	if intentFlows == nil {
		intentFlows = flow.DefaultIntentFlows()
	}
	predicates := opts.Predicates
	if predicates == nil {
		predicates = flow.DefaultPredicates()
	}
	flows := flow.NewEngine(registry, predicates, intentFlows, logger)

	defs := opts.Flows
	if defs == nil {
		defs = flow.BuiltinFlows()
	}
	for _, def := range defs {
		if err := flows.RegisterFlow(def); err != nil {
			return nil, err
		}
	}
	for _, path := range opts.FlowFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, types.NewErrorf(types.ErrFlowConfig, "read flow file %s", path).WithCause(err)
		}
		def, err := flow.ParseDefinition(data, registry)
		if err != nil {
			return nil, err
		}
		if err := flows.RegisterFlow(def); err != nil {
			return nil, err
		}
	}

	return &Engine{
		analyzer: nlu.NewAnalyzer(client, opts.NLU, logger),
		store:    store,
		flows:    flows,
		synth:    respond.NewSynthesizer(client, opts.Respond, logger),
		persona:  persona,
		metrics:  opts.Metrics,
		logger:   logger.With(zap.String("component", "engine")),
	}, nil
}

// ProcessTurn runs the full pipeline for one utterance: analyze, update the
// session, advance the flow, synthesize the reply, persist. The caller always
// receives a reply; only store and configuration errors propagate.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID, utterance string) (*TurnResult, error) {
	started := time.Now()

	sess, err := e.loadOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	analysis := e.analyzer.Analyze(ctx, utterance)
	sess.AddTurn(types.RoleUser, utterance)
	newIntent := sess.ApplyAnalysis(analysis)
	if e.metrics != nil {
		e.metrics.RecordIntent(string(analysis.Intent))
	}
	if newIntent && (sess.State == types.StateCompletion || sess.State == types.StateFarewell) {
		sess.AdvanceState(types.StateGathering, true)
	}

	flowWasActive := e.flowActive(sessionID)
	step, err := e.flows.ProcessTurn(ctx, sessionID, flow.TurnInput{
		Utterance: utterance,
		Analysis:  analysis,
	})
	switch {
	case err == nil:
	case types.IsCode(err, types.ErrFlowNotActive):
		// No flow claims this turn; the synthesizer replies from the
		// session context alone.
		step = nil
	default:
		return nil, err
	}
	e.recordFlowMetrics(flowWasActive, step)

	// The state advances first so the synthesizer sees the stage this turn
	// actually ends in.
	e.advanceDialogueState(sess, analysis, step)
	result := e.reply(ctx, sess, analysis, step)
	sess.AddTurn(types.RoleAssistant, result.Reply)
	result.State = sess.State

	if err := e.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		status := "ok"
		if result.IsFallback {
			status = "fallback"
		}
		e.metrics.RecordTurn(string(analysis.Intent), status, time.Since(started))
		if result.IsFallback {
			e.metrics.RecordFallback(analysis.Language)
		}
	}
	return result, nil
}

// StartFlow explicitly enters a flow and returns its opening reply.
func (e *Engine) StartFlow(ctx context.Context, sessionID, flowID string) (*TurnResult, error) {
	sess, err := e.loadOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	step, err := e.flows.Start(ctx, sessionID, flowID)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordFlowStarted(step.FlowID)
		if step.Summary != nil {
			e.metrics.RecordFlowFinished(step.FlowID, string(step.Summary.Status))
		}
	}

	sess.AdvanceState(types.StateGathering, false)
	analysis := types.AnalysisResult{Intent: sess.Intent, Language: sess.Language}
	result := e.reply(ctx, sess, analysis, step)
	sess.AddTurn(types.RoleAssistant, result.Reply)
	result.State = sess.State

	if err := e.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return result, nil
}

// GetFlowStatus reports the session's active flow execution.
func (e *Engine) GetFlowStatus(sessionID string) (*flow.StatusInfo, error) {
	return e.flows.Status(sessionID)
}

// EndFlow terminates the session's flow and returns its summary.
func (e *Engine) EndFlow(sessionID string) (*flow.Summary, error) {
	summary, err := e.flows.End(sessionID)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordFlowFinished(summary.FlowID, string(summary.Status))
	}
	return summary, nil
}

// EndSession drops the session context from the store.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	if _, err := e.flows.End(sessionID); err != nil && !types.IsCode(err, types.ErrFlowNotActive) {
		return err
	}
	return e.store.Delete(ctx, sessionID)
}

func (e *Engine) loadOrCreateSession(ctx context.Context, sessionID string) (*session.Context, error) {
	sess, err := e.store.Get(ctx, sessionID)
	if err == nil {
		return sess, nil
	}
	if types.IsCode(err, types.ErrSessionNotFound) {
		return session.NewContext(sessionID, ""), nil
	}
	return nil, err
}

func (e *Engine) flowActive(sessionID string) bool {
	_, err := e.flows.Status(sessionID)
	return err == nil
}

// reply assembles the respond context from session, analysis and flow step,
// then synthesizes the outgoing text.
func (e *Engine) reply(ctx context.Context, sess *session.Context,
	analysis types.AnalysisResult, step *flow.StepResult) *TurnResult {

	rc := &respond.Context{
		Session:  sess,
		Persona:  e.persona,
		Emotion:  analysis.Emotion,
		Urgency:  analysis.Urgency,
		Language: sess.Language,
		Intent:   sess.Intent,
		Entities: sess.Entities,
	}
	if step != nil {
		rc.Question = step.Prompt
		rc.Escalated = step.Escalated
		if step.FlowName != "" {
			rc.Goals = []string{step.FlowName}
		}
		for _, action := range step.Actions {
			if hits, ok := action.Output.([]knowledge.Result); ok {
				rc.Knowledge = append(rc.Knowledge, hits...)
			}
		}
	}

	synthesized := e.synth.Generate(ctx, rc)
	result := &TurnResult{
		Reply:      synthesized.Reply,
		Intent:     analysis.Intent,
		Entities:   analysis.Entities,
		Sentiment:  analysis.Sentiment,
		Emotion:    analysis.Emotion,
		Language:   analysis.Language,
		Confidence: synthesized.Confidence,
		IsFallback: synthesized.IsFallback,
		FollowUps:  synthesized.FollowUps,
	}
	if step != nil {
		result.Actions = step.Actions
		result.FlowStatus = step.Status
		result.FlowID = step.FlowID
		result.Summary = step.Summary
	}
	return result
}

// advanceDialogueState maps the turn outcome onto the dialogue state machine.
// Invalid transitions are ignored by the session layer, so the mapping only
// proposes the natural next stage.
func (e *Engine) advanceDialogueState(sess *session.Context,
	analysis types.AnalysisResult, step *flow.StepResult) {

	if analysis.Intent == types.IntentFarewell {
		sess.AdvanceState(types.StateFarewell, false)
		return
	}
	if step == nil {
		if sess.State == types.StateGreeting && analysis.Intent != types.IntentGreeting {
			sess.AdvanceState(types.StateGathering, false)
		}
		return
	}
	switch {
	case step.Status == flow.StatusCompleted || step.Status == flow.StatusEscalated ||
		step.Status == flow.StatusFailed:
		sess.AdvanceState(types.StateCompletion, false)
	case step.Prompt != "":
		sess.AdvanceState(types.StateGathering, false)
	default:
		sess.AdvanceState(types.StateProcessing, false)
	}
}

func (e *Engine) recordFlowMetrics(wasActive bool, step *flow.StepResult) {
	if e.metrics == nil || step == nil {
		return
	}
	if !wasActive {
		e.metrics.RecordFlowStarted(step.FlowID)
	}
	if step.Escalated {
		e.metrics.RecordEscalation(step.FlowID, step.Reason)
	}
	if step.Summary != nil {
		e.metrics.RecordFlowFinished(step.FlowID, string(step.Summary.Status))
	}
}
