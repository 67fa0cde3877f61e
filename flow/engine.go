package flow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/types"
)

// Status of a flow execution.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusEscalated Status = "escalated"
)

// Terminal reasons for attempt or time exhaustion on a node.
const (
	// ReasonMaxAttempts: the node's attempt budget ran out.
	ReasonMaxAttempts = "max_attempts_exceeded"
	// ReasonNodeTimeout: the flow sat on the node past its deadline.
	ReasonNodeTimeout = "node_timeout"
)

// TurnInput carries one analyzed utterance into the engine.
type TurnInput struct {
	Utterance string
	Analysis  types.AnalysisResult
}

// ActionResult is the recorded outcome of one action invocation.
type ActionResult struct {
	Type   string `json:"type"`
	Output any    `json:"output,omitempty"`
	Err    string `json:"error,omitempty"`
}

// StepResult describes what one turn did to the flow.
type StepResult struct {
	FlowID    string         `json:"flow_id"`
	FlowName  string         `json:"flow_name,omitempty"`
	NodeID    string         `json:"node_id"`
	Status    Status         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Escalated bool           `json:"escalated,omitempty"`
	Prompt    string         `json:"prompt,omitempty"`
	Actions   []ActionResult `json:"actions,omitempty"`
	Summary   *Summary       `json:"summary,omitempty"`
}

// StatusInfo is the read-only view returned by Status.
type StatusInfo struct {
	FlowID      string         `json:"flow_id"`
	CurrentNode string         `json:"current_node"`
	Attempts    map[string]int `json:"attempts"`
	Variables   map[string]any `json:"variables"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Engine executes declarative flow graphs. The definition set, action
// registry, custom predicates and the intent→flow routing table are injected
// at construction; none of them are process-wide singletons.
type Engine struct {
	actions     *ActionRegistry
	predicates  map[string]Predicate
	intentFlows map[types.Intent]string
	logger      *zap.Logger

	flows map[string]*Definition

	// mu guards active across sessions. Turns within one session are
	// serialized by the caller.
	mu     sync.RWMutex
	active map[string]*ExecutionState
}

// NewEngine creates a flow engine. All arguments may be nil except registry;
// a nil registry gets the built-in actions only.
func NewEngine(registry *ActionRegistry, predicates map[string]Predicate,
	intentFlows map[types.Intent]string, logger *zap.Logger) *Engine {
	if registry == nil {
		registry = NewActionRegistry()
	}
	if predicates == nil {
		predicates = map[string]Predicate{}
	}
	if intentFlows == nil {
		intentFlows = map[types.Intent]string{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		actions:     registry,
		predicates:  predicates,
		intentFlows: intentFlows,
		logger:      logger.With(zap.String("component", "flow")),
		flows:       make(map[string]*Definition),
		active:      make(map[string]*ExecutionState),
	}
}

// RegisterFlow validates a definition against the action registry and adds
// it to the immutable definition set. Call before serving traffic.
func (e *Engine) RegisterFlow(def *Definition) error {
	if err := def.Validate(e.actions); err != nil {
		return err
	}
	e.flows[def.ID] = def
	return nil
}

// Registry exposes the action registry for handler registration.
func (e *Engine) Registry() *ActionRegistry {
	return e.actions
}

// Start explicitly enters a flow for a session, executing its start node.
// Starting while another flow is active for the session is a caller error.
func (e *Engine) Start(ctx context.Context, sessionID, flowID string) (*StepResult, error) {
	def, ok := e.flows[flowID]
	if !ok {
		return nil, types.NewErrorf(types.ErrFlowConfig, "unknown flow %q", flowID)
	}

	e.mu.Lock()
	if existing, exists := e.active[sessionID]; exists {
		e.mu.Unlock()
		return nil, types.NewErrorf(types.ErrFlowConfig,
			"session %s already runs flow %s", sessionID, existing.FlowID)
	}
	es := newExecutionState(sessionID, def)
	e.active[sessionID] = es
	e.mu.Unlock()

	e.logger.Info("flow started",
		zap.String("session_id", sessionID), zap.String("flow_id", flowID))

	result := &StepResult{FlowID: def.ID, FlowName: def.Name, Status: StatusActive}
	e.executeNode(ctx, def, es, def.Nodes[def.StartNode], result)
	e.advanceThroughPassiveNodes(ctx, def, es, TurnInput{}, result)
	e.finishIfEnded(def, es, result)
	return result, nil
}

// ProcessTurn advances the session's flow by one analyzed utterance. When no
// flow is active, one is selected via the intent→flow table; if the intent
// maps to nothing, a FLOW_NOT_ACTIVE error is returned and the caller decides
// how to reply without a flow.
func (e *Engine) ProcessTurn(ctx context.Context, sessionID string, input TurnInput) (*StepResult, error) {
	e.mu.RLock()
	es := e.active[sessionID]
	e.mu.RUnlock()

	result := &StepResult{Status: StatusActive}

	// 1. Resolve the execution state, entering a flow if needed.
	if es == nil {
		flowID, ok := e.intentFlows[input.Analysis.Intent]
		if !ok {
			return nil, types.NewErrorf(types.ErrFlowNotActive,
				"no flow for session %s (intent %s)", sessionID, input.Analysis.Intent)
		}
		def, ok := e.flows[flowID]
		if !ok {
			return nil, types.NewErrorf(types.ErrFlowConfig,
				"intent table references unknown flow %q", flowID)
		}
		e.mu.Lock()
		es = newExecutionState(sessionID, def)
		e.active[sessionID] = es
		e.mu.Unlock()
		e.logger.Info("flow selected by intent",
			zap.String("session_id", sessionID),
			zap.String("flow_id", flowID),
			zap.String("intent", string(input.Analysis.Intent)))
	}
	def := e.flows[es.FlowID]
	result.FlowID = def.ID
	result.FlowName = def.Name

	// 2. Merge the utterance and new entities into the variable bag.
	mergeTurn(es, input)

	// 3. Increment the current node's attempt counter.
	node, err := def.node(es.CurrentNode)
	if err != nil {
		return nil, err
	}
	es.Attempts[node.ID]++

	// 4. Attempt or time exhaustion: escalate or terminate. Never loops
	// silently.
	if node.MaxAttempts > 0 && es.Attempts[node.ID] > node.MaxAttempts {
		return e.escalate(ctx, def, es, node, result, ReasonMaxAttempts)
	}
	if node.Timeout > 0 && time.Since(es.NodeEnteredAt) > node.Timeout {
		return e.escalate(ctx, def, es, node, result, ReasonNodeTimeout)
	}

	// 5. Evaluate conditions; advance on success, re-execute on failure.
	env := e.buildEnv(es, node, input)
	if e.conditionsHold(def, node, env) {
		next := e.resolveNext(node, env)
		if next == "" {
			// Terminal node with no outgoing edge.
			if node.Type == NodeEnd {
				e.executeNode(ctx, def, es, node, result)
				e.finishIfEnded(def, es, result)
				return result, nil
			}
			// Conditions satisfied but nowhere to go: hold position.
			result.NodeID = node.ID
			return result, nil
		}
		es.transitionTo(next)
		nextNode := def.Nodes[next]
		e.executeNode(ctx, def, es, nextNode, result)
		e.advanceThroughPassiveNodes(ctx, def, es, input, result)
		e.finishIfEnded(def, es, result)
		return result, nil
	}

	// Unsatisfied gate: the node runs again (e.g. re-asking a question).
	e.executeNode(ctx, def, es, node, result)
	return result, nil
}

// Status reports the current execution state of the session's flow.
func (e *Engine) Status(sessionID string) (*StatusInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	es, ok := e.active[sessionID]
	if !ok {
		return nil, types.NewErrorf(types.ErrFlowNotActive, "no active flow for session %s", sessionID)
	}
	attempts := make(map[string]int, len(es.Attempts))
	for key, value := range es.Attempts {
		attempts[key] = value
	}
	variables := make(map[string]any, len(es.Variables))
	for key, value := range es.Variables {
		variables[key] = value
	}
	return &StatusInfo{
		FlowID:      es.FlowID,
		CurrentNode: es.CurrentNode,
		Attempts:    attempts,
		Variables:   variables,
		StartedAt:   es.StartedAt,
		UpdatedAt:   es.UpdatedAt,
	}, nil
}

// End explicitly terminates the session's flow, returning its summary.
func (e *Engine) End(sessionID string) (*Summary, error) {
	e.mu.Lock()
	es, ok := e.active[sessionID]
	if ok {
		delete(e.active, sessionID)
	}
	e.mu.Unlock()
	if !ok {
		return nil, types.NewErrorf(types.ErrFlowNotActive, "no active flow for session %s", sessionID)
	}
	summary := es.summary(StatusCompleted, "ended_by_caller")
	e.logger.Info("flow ended",
		zap.String("session_id", sessionID),
		zap.String("flow_id", es.FlowID),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// escalate handles attempt or time exhaustion: record the reason and failing
// node, then jump to the first escalation-type node in scan order. This picks
// the first such node regardless of relevance to the failing node; the
// behavior is kept as documented pending domain confirmation. With no
// escalation node the flow terminates as failed.
func (e *Engine) escalate(ctx context.Context, def *Definition, es *ExecutionState,
	node *Node, result *StepResult, reason string) (*StepResult, error) {

	es.Variables["escalation_reason"] = reason
	es.Variables["failed_node"] = node.ID
	result.Reason = reason

	escID, ok := def.FirstEscalationNode()
	if !ok {
		e.mu.Lock()
		delete(e.active, es.SessionID)
		e.mu.Unlock()
		result.Status = StatusFailed
		result.NodeID = node.ID
		result.Summary = es.summary(StatusFailed, reason)
		e.logger.Warn("flow failed with no escalation node",
			zap.String("session_id", es.SessionID),
			zap.String("flow_id", def.ID),
			zap.String("node_id", node.ID),
			zap.String("reason", reason))
		return result, nil
	}

	es.transitionTo(escID)
	result.Status = StatusEscalated
	result.Escalated = true
	e.logger.Warn("flow escalated",
		zap.String("session_id", es.SessionID),
		zap.String("flow_id", def.ID),
		zap.String("failed_node", node.ID),
		zap.String("escalation_node", escID))
	e.executeNode(ctx, def, es, def.Nodes[escID], result)
	e.advanceThroughPassiveNodes(ctx, def, es, TurnInput{}, result)
	e.finishIfEnded(def, es, result)
	return result, nil
}

// maxPassiveSteps bounds how many non-interactive nodes one turn may chain
// through, so a mis-configured cycle of action nodes cannot spin forever.
const maxPassiveSteps = 16

// passiveNode reports whether the node type executes without waiting for
// user input. Collect, respond and loop nodes hold the turn; start, check,
// action and escalation nodes flow through.
func passiveNode(t NodeType) bool {
	switch t {
	case NodeStart, NodeCheck, NodeAction, NodeBranch, NodeEscalation:
		return true
	}
	return false
}

// advanceThroughPassiveNodes keeps stepping while execution sits on a node
// that needs no user input and whose gate holds. Attempt counters are not
// touched here; attempts count per-turn evaluations of interactive nodes.
func (e *Engine) advanceThroughPassiveNodes(ctx context.Context, def *Definition,
	es *ExecutionState, input TurnInput, result *StepResult) {

	for steps := 0; steps < maxPassiveSteps; steps++ {
		node := def.Nodes[es.CurrentNode]
		if node == nil || node.Type == NodeEnd || !passiveNode(node.Type) {
			return
		}
		env := e.buildEnv(es, node, input)
		if !e.conditionsHold(def, node, env) {
			return
		}
		next := e.resolveNext(node, env)
		if next == "" {
			return
		}
		es.transitionTo(next)
		e.executeNode(ctx, def, es, def.Nodes[next], result)
	}
	e.logger.Warn("passive-node step limit reached",
		zap.String("flow_id", def.ID),
		zap.String("node_id", es.CurrentNode))
}

// executeNode records the node entry and runs its ordered actions. Unknown
// action types log a warning and are no-ops; handler failures are captured
// without retry.
func (e *Engine) executeNode(ctx context.Context, def *Definition, es *ExecutionState,
	node *Node, result *StepResult) {

	es.recordVisit(node.ID)
	result.NodeID = node.ID
	if node.Type == NodeEscalation {
		result.Status = StatusEscalated
		result.Escalated = true
	}

	for _, ref := range node.Actions {
		action, ok := e.actions.Get(ref.Type)
		if !ok {
			e.logger.Warn("unknown action type, skipping",
				zap.String("flow_id", def.ID),
				zap.String("node_id", node.ID),
				zap.String("action_type", ref.Type))
			continue
		}
		ac := &ActionContext{
			SessionID: es.SessionID,
			FlowID:    def.ID,
			NodeID:    node.ID,
			Params:    substituteParams(ref.Params, es.Variables),
			Variables: es.Variables,
			Utterance: stringify(es.Variables["utterance"]),
		}
		output, err := action.Execute(ctx, ac)
		ar := ActionResult{Type: ref.Type, Output: output}
		if err != nil {
			ar.Err = err.Error()
			e.logger.Warn("action failed",
				zap.String("flow_id", def.ID),
				zap.String("node_id", node.ID),
				zap.String("action_type", ref.Type),
				zap.Error(err))
		} else {
			key := ref.Output
			if key == "" {
				key = ref.Type + "_result"
			}
			es.Variables[key] = output
		}
		result.Actions = append(result.Actions, ar)
	}

	if q, ok := es.Variables["pending_question"].(string); ok && q != "" {
		result.Prompt = q
	}
}

// finishIfEnded completes the flow when execution sits on an end node.
func (e *Engine) finishIfEnded(def *Definition, es *ExecutionState, result *StepResult) {
	node := def.Nodes[es.CurrentNode]
	if node == nil || node.Type != NodeEnd {
		return
	}
	e.mu.Lock()
	delete(e.active, es.SessionID)
	e.mu.Unlock()
	if result.Status != StatusEscalated {
		result.Status = StatusCompleted
	}
	result.Summary = es.summary(result.Status, result.Reason)
	e.logger.Info("flow completed",
		zap.String("session_id", es.SessionID),
		zap.String("flow_id", es.FlowID),
		zap.Duration("duration", result.Summary.Duration))
}

// mergeTurn folds the analyzed utterance into the variable bag.
func mergeTurn(es *ExecutionState, input TurnInput) {
	// A question is only pending if a node asks it during this turn.
	delete(es.Variables, "pending_question")
	es.Variables["utterance"] = input.Utterance
	es.Variables["intent"] = string(input.Analysis.Intent)
	es.Variables["intent_confidence"] = input.Analysis.Confidence
	es.Variables["sentiment"] = input.Analysis.Sentiment
	es.Variables["urgency"] = input.Analysis.Urgency
	es.Variables["language"] = input.Analysis.Language
	for key, value := range input.Analysis.Entities {
		es.Variables[key] = value
	}
}

func (e *Engine) buildEnv(es *ExecutionState, node *Node, input TurnInput) *Env {
	return &Env{
		Variables:        es.Variables,
		Utterance:        input.Utterance,
		Intent:           input.Analysis.Intent,
		IntentConfidence: input.Analysis.Confidence,
		Sentiment:        input.Analysis.Sentiment,
		Urgency:          input.Analysis.Urgency,
		Attempts:         es.Attempts[node.ID],
		NodeEnteredAt:    es.NodeEnteredAt,
		Now:              time.Now(),
	}
}

// conditionsHold applies global conditions and the node gate, AND-combined.
func (e *Engine) conditionsHold(def *Definition, node *Node, env *Env) bool {
	for _, cond := range def.GlobalConditions {
		if !cond.Evaluate(env, e.predicates) {
			return false
		}
	}
	for _, cond := range node.Conditions {
		if !cond.Evaluate(env, e.predicates) {
			return false
		}
	}
	return true
}

// resolveNext picks the transition target: the first matching branch's label
// looked up in the transition table, falling back to the default next node.
func (e *Engine) resolveNext(node *Node, env *Env) string {
	for _, branch := range node.Branches {
		matched := true
		for _, cond := range branch.Conditions {
			if !cond.Evaluate(env, e.predicates) {
				matched = false
				break
			}
		}
		if matched {
			if next, ok := node.Transitions[branch.Label]; ok {
				return next
			}
			break
		}
	}
	return node.DefaultNext
}
