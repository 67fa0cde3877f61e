package flow

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/knowledge"
)

// ActionRef names an action inside a node definition.
type ActionRef struct {
	// Type resolves the Action in the registry.
	Type string `json:"type" yaml:"type"`
	// Params are static, template-substitutable parameters.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	// Output overrides the variable the result payload is captured into.
	// Default is "<type>_result".
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
}

// ActionContext is what an action sees when it runs. Params arrive with
// template placeholders already substituted from the variable bag.
type ActionContext struct {
	SessionID string
	FlowID    string
	NodeID    string
	Params    map[string]any
	Variables map[string]any
	Utterance string
}

// Action is one executable side effect. Implementations return a payload
// that the engine captures into flow variables; a returned error is logged
// and recorded but never retried by the engine.
type Action interface {
	Type() string
	Execute(ctx context.Context, ac *ActionContext) (any, error)
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc struct {
	Name string
	Fn   func(ctx context.Context, ac *ActionContext) (any, error)
}

// Type implements Action.
func (a ActionFunc) Type() string { return a.Name }

// Execute implements Action.
func (a ActionFunc) Execute(ctx context.Context, ac *ActionContext) (any, error) {
	return a.Fn(ctx, ac)
}

// ActionRegistry is the typed action dispatch table, checked at flow-load
// time so unknown action types surface as configuration errors instead of
// run-time surprises.
type ActionRegistry struct {
	mu      sync.RWMutex
	actions map[string]Action
}

// NewActionRegistry creates a registry preloaded with the built-in actions.
func NewActionRegistry() *ActionRegistry {
	r := &ActionRegistry{actions: make(map[string]Action)}
	r.Register(setVariableAction())
	r.Register(askQuestionAction())
	return r
}

// Register adds or replaces an action handler.
func (r *ActionRegistry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[a.Type()] = a
}

// Get resolves an action by type.
func (r *ActionRegistry) Get(actionType string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actions[actionType]
	return a, ok
}

// Types lists registered action types.
func (r *ActionRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for t := range r.actions {
		out = append(out, t)
	}
	return out
}

// Built-in action types.
const (
	ActionSetVariable     = "set_variable"
	ActionAskQuestion     = "ask_question"
	ActionKnowledgeSearch = "knowledge_search"
)

// setVariableAction writes each param into the flow variable bag. The engine
// merges the returned map, so the payload doubles as the captured result.
func setVariableAction() Action {
	return ActionFunc{
		Name: ActionSetVariable,
		Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
			out := make(map[string]any, len(ac.Params))
			for key, value := range ac.Params {
				ac.Variables[key] = value
				out[key] = value
			}
			return out, nil
		},
	}
}

// askQuestionAction emits a prompt for the response layer. The question text
// has already been template-substituted against the variable bag.
func askQuestionAction() Action {
	return ActionFunc{
		Name: ActionAskQuestion,
		Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
			question, _ := ac.Params["text"].(string)
			if question == "" {
				return nil, fmt.Errorf("ask_question: missing text param")
			}
			ac.Variables["pending_question"] = question
			return question, nil
		},
	}
}

// KnowledgeSearchAction looks up excerpts through the injected Searcher.
// Params: "scope" (optional), "query" (defaults to the current utterance).
func KnowledgeSearchAction(searcher knowledge.Searcher, logger *zap.Logger) Action {
	if logger == nil {
		logger = zap.NewNop()
	}
	return ActionFunc{
		Name: ActionKnowledgeSearch,
		Fn: func(ctx context.Context, ac *ActionContext) (any, error) {
			scope, _ := ac.Params["scope"].(string)
			query, _ := ac.Params["query"].(string)
			if query == "" {
				query = ac.Utterance
			}
			results, err := searcher.Search(ctx, scope, query)
			if err != nil {
				logger.Warn("knowledge search failed",
					zap.String("scope", scope), zap.Error(err))
				return nil, err
			}
			return results, nil
		},
	}
}
