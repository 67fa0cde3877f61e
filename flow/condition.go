package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/dialogflow/types"
)

// ConditionKind selects what a condition inspects.
type ConditionKind string

const (
	CondEntityPresent    ConditionKind = "entity_present"
	CondEntityValue      ConditionKind = "entity_value"
	CondIntentConfidence ConditionKind = "intent_confidence"
	CondSentimentScore   ConditionKind = "sentiment_score"
	CondUserResponse     ConditionKind = "user_response"
	CondTimeElapsed      ConditionKind = "time_elapsed"
	CondAttemptCount     ConditionKind = "attempt_count"
	CondCustom           ConditionKind = "custom"
)

// Operator is the comparison applied between the inspected value and the
// condition's Value.
type Operator string

const (
	OpEq       Operator = "=="
	OpNe       Operator = "!="
	OpGt       Operator = ">"
	OpLt       Operator = "<"
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpContains Operator = "contains"
	OpIn       Operator = "in"
)

// Condition is one declarative check on the execution environment.
type Condition struct {
	Kind     ConditionKind `json:"kind" yaml:"kind"`
	Field    string        `json:"field,omitempty" yaml:"field,omitempty"`
	Operator Operator      `json:"operator,omitempty" yaml:"operator,omitempty"`
	Value    any           `json:"value,omitempty" yaml:"value,omitempty"`
}

// Predicate is a named custom check injected at engine construction.
type Predicate func(env *Env) bool

// Env is the read-only environment a condition evaluates against.
type Env struct {
	Variables        map[string]any
	Utterance        string
	Intent           types.Intent
	IntentConfidence float64
	Sentiment        float64
	Urgency          float64
	Attempts         int
	NodeEnteredAt    time.Time
	Now              time.Time
}

// Evaluate applies the condition to the environment. Custom predicates are
// resolved from the injected map; an unknown predicate evaluates to false.
func (c Condition) Evaluate(env *Env, predicates map[string]Predicate) bool {
	switch c.Kind {
	case CondEntityPresent:
		v, ok := env.Variables[c.Field]
		if !ok || v == nil {
			return false
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			return false
		}
		return true
	case CondEntityValue:
		v, ok := env.Variables[c.Field]
		if !ok {
			return false
		}
		return compare(v, c.Operator, c.Value)
	case CondIntentConfidence:
		return compare(env.IntentConfidence, c.Operator, c.Value)
	case CondSentimentScore:
		return compare(env.Sentiment, c.Operator, c.Value)
	case CondUserResponse:
		return compare(env.Utterance, c.Operator, c.Value)
	case CondTimeElapsed:
		elapsed := env.Now.Sub(env.NodeEnteredAt).Seconds()
		return compare(elapsed, c.Operator, c.Value)
	case CondAttemptCount:
		return compare(env.Attempts, c.Operator, c.Value)
	case CondCustom:
		pred, ok := predicates[c.Field]
		if !ok {
			return false
		}
		return pred(env)
	default:
		return false
	}
}

// compare applies the operator. Ordering operators need both sides numeric;
// "contains" is a case-insensitive substring check on the stringified left
// operand; "in" checks membership of the left operand in the right-hand list.
func compare(left any, op Operator, right any) bool {
	switch op {
	case OpEq:
		return looseEqual(left, right)
	case OpNe:
		return !looseEqual(left, right)
	case OpGt, OpLt, OpGte, OpLte:
		lf, lok := toFloat(left)
		rf, rok := toFloat(right)
		if !lok || !rok {
			return false
		}
		switch op {
		case OpGt:
			return lf > rf
		case OpLt:
			return lf < rf
		case OpGte:
			return lf >= rf
		default:
			return lf <= rf
		}
	case OpContains:
		return strings.Contains(
			strings.ToLower(stringify(left)),
			strings.ToLower(stringify(right)))
	case OpIn:
		list, ok := right.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if looseEqual(left, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// looseEqual compares numerically when both sides are numbers and by
// stringified value otherwise, so YAML-sourced values ("3" vs 3) behave.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return stringify(a) == stringify(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
