package flow

import (
	"regexp"
	"time"
)

// NodeVisit is one history record: node entry with a variable snapshot.
type NodeVisit struct {
	NodeID    string         `json:"node_id"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  map[string]any `json:"snapshot"`
}

// ExecutionState is the mutable per-(session, flow) execution record.
// Exactly one instance exists per active pair; it is created on first entry
// to a flow and discarded on flow end or session end.
type ExecutionState struct {
	SessionID   string         `json:"session_id"`
	FlowID      string         `json:"flow_id"`
	CurrentNode string         `json:"current_node"`
	Variables   map[string]any `json:"variables"`
	History     []NodeVisit    `json:"history"`
	Attempts    map[string]int `json:"attempts"`
	StartedAt   time.Time      `json:"started_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	// NodeEnteredAt backs time_elapsed conditions.
	NodeEnteredAt time.Time `json:"node_entered_at"`
}

func newExecutionState(sessionID string, def *Definition) *ExecutionState {
	now := time.Now()
	vars := make(map[string]any, len(def.DefaultVariables))
	for key, value := range def.DefaultVariables {
		vars[key] = value
	}
	return &ExecutionState{
		SessionID:     sessionID,
		FlowID:        def.ID,
		CurrentNode:   def.StartNode,
		Variables:     vars,
		Attempts:      make(map[string]int),
		StartedAt:     now,
		UpdatedAt:     now,
		NodeEnteredAt: now,
	}
}

// recordVisit appends a history record with a shallow variable snapshot.
func (es *ExecutionState) recordVisit(nodeID string) {
	snapshot := make(map[string]any, len(es.Variables))
	for key, value := range es.Variables {
		snapshot[key] = value
	}
	now := time.Now()
	es.History = append(es.History, NodeVisit{
		NodeID:    nodeID,
		Timestamp: now,
		Snapshot:  snapshot,
	})
	es.UpdatedAt = now
}

// transitionTo moves to the next node, resetting the departed node's attempt
// counter. The counter resets only here: re-execution of the same node keeps
// counting up.
func (es *ExecutionState) transitionTo(nodeID string) {
	if nodeID != es.CurrentNode {
		delete(es.Attempts, es.CurrentNode)
		es.CurrentNode = nodeID
		es.NodeEnteredAt = time.Now()
	}
	es.UpdatedAt = time.Now()
}

// Summary describes a finished flow execution.
type Summary struct {
	SessionID  string         `json:"session_id"`
	FlowID     string         `json:"flow_id"`
	Status     Status         `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	Duration   time.Duration  `json:"duration"`
	NodeVisits int            `json:"node_visits"`
	Variables  map[string]any `json:"variables"`
}

func (es *ExecutionState) summary(status Status, reason string) *Summary {
	return &Summary{
		SessionID:  es.SessionID,
		FlowID:     es.FlowID,
		Status:     status,
		Reason:     reason,
		Duration:   time.Since(es.StartedAt),
		NodeVisits: len(es.History),
		Variables:  es.Variables,
	}
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Substitute replaces {name} placeholders with values from the variable bag.
// Unknown placeholders are left intact so missing data stays visible.
func Substitute(template string, variables map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := variables[name]; ok {
			return stringify(value)
		}
		return match
	})
}

// substituteParams applies Substitute to every string param, leaving other
// value types untouched.
func substituteParams(params map[string]any, variables map[string]any) map[string]any {
	if len(params) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(params))
	for key, value := range params {
		if s, ok := value.(string); ok {
			out[key] = Substitute(s, variables)
		} else {
			out[key] = value
		}
	}
	return out
}
