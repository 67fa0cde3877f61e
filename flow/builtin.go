package flow

import (
	"strings"

	"github.com/BaSui01/dialogflow/types"
)

// Built-in flow ids.
const (
	FlowHealthcareAppointment = "healthcare_appointment"
	FlowIssueResolution       = "issue_resolution"
	FlowInformationRequest    = "information_request"
	FlowEmergency             = "emergency"
)

// DefaultIntentFlows is the standard intent→flow routing table.
func DefaultIntentFlows() map[types.Intent]string {
	return map[types.Intent]string{
		types.IntentAppointmentBooking: FlowHealthcareAppointment,
		types.IntentIssueReport:        FlowIssueResolution,
		types.IntentInformationRequest: FlowInformationRequest,
		types.IntentEmergency:          FlowEmergency,
	}
}

// DefaultPredicates supplies the custom condition functions the built-in
// flows reference.
func DefaultPredicates() map[string]Predicate {
	return map[string]Predicate{
		// high_priority: an issue is high priority when the user is clearly
		// upset or uses urgency wording.
		"high_priority": func(env *Env) bool {
			if env.Urgency > 0.6 || env.Sentiment < -0.5 {
				return true
			}
			issue := strings.ToLower(stringify(env.Variables["issue"]))
			for _, kw := range []string{"urgent", "down", "data loss", "紧急", "瘫痪", "丢失"} {
				if strings.Contains(issue, kw) {
					return true
				}
			}
			return false
		},
		// critical_severity: the emergency path that bypasses queueing.
		"critical_severity": func(env *Env) bool {
			return env.Urgency > 0.8
		},
	}
}

// BuiltinFlows returns the four standard flows as declarative definitions.
// Graphs are static data; nothing here is generated.
func BuiltinFlows() []*Definition {
	return []*Definition{
		healthcareAppointmentFlow(),
		issueResolutionFlow(),
		informationRequestFlow(),
		emergencyFlow(),
	}
}

// healthcareAppointmentFlow: collect identity → collect schedule → check
// availability → confirm or suggest alternatives → end.
func healthcareAppointmentFlow() *Definition {
	return NewDefinition(FlowHealthcareAppointment, "预约挂号", "start",
		&Node{
			ID: "start", Type: NodeStart,
			DefaultNext: "collect_identity",
		},
		&Node{
			ID: "collect_identity", Type: NodeCollect,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "请问您的姓名和联系电话是？ May I have your name and phone number?"},
			}},
			Conditions: []Condition{
				{Kind: CondEntityPresent, Field: "name"},
				{Kind: CondEntityPresent, Field: "phone"},
			},
			DefaultNext: "collect_schedule",
			MaxAttempts: 3,
		},
		&Node{
			ID: "collect_schedule", Type: NodeCollect,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "{name}您好，想约哪天、什么时间？ Which date and time would you like?"},
			}},
			Conditions: []Condition{
				{Kind: CondEntityPresent, Field: "date"},
				{Kind: CondEntityPresent, Field: "time"},
			},
			DefaultNext: "check_availability",
			MaxAttempts: 3,
		},
		&Node{
			ID: "check_availability", Type: NodeAction,
			Actions: []ActionRef{{
				Type:   "check_availability",
				Params: map[string]any{"date": "{date}", "time": "{time}"},
				Output: "availability",
			}},
			Branches: []Branch{{
				Label: "available",
				Conditions: []Condition{
					{Kind: CondEntityValue, Field: "availability", Operator: OpEq, Value: true},
				},
			}},
			Transitions: map[string]string{"available": "confirm"},
			DefaultNext: "suggest_alternatives",
		},
		&Node{
			ID: "suggest_alternatives", Type: NodeRespond,
			Actions: []ActionRef{
				{
					Type:   ActionAskQuestion,
					Params: map[string]any{"text": "{date} {time} 已约满，改约其他时间可以吗？ That slot is full, would another time work?"},
				},
				{
					// Clear the rejected slot so the gate waits for a new one.
					Type:   ActionSetVariable,
					Params: map[string]any{"date": "", "time": ""},
				},
			},
			Conditions: []Condition{
				{Kind: CondEntityPresent, Field: "date"},
				{Kind: CondEntityPresent, Field: "time"},
			},
			DefaultNext: "check_availability",
			MaxAttempts: 3,
		},
		&Node{
			ID: "confirm", Type: NodeAction,
			Actions: []ActionRef{{
				Type:   "confirm_booking",
				Params: map[string]any{"name": "{name}", "phone": "{phone}", "date": "{date}", "time": "{time}"},
				Output: "booking",
			}},
			DefaultNext: "end",
		},
		&Node{
			ID: "escalate_booking", Type: NodeEscalation,
			Actions: []ActionRef{{
				Type:   "notify_escalation",
				Params: map[string]any{"reason": "{escalation_reason}", "node": "{failed_node}"},
			}},
			DefaultNext: "end",
		},
		&Node{ID: "end", Type: NodeEnd},
	)
}

// issueResolutionFlow: capture issue → classify priority → attempt
// resolution or escalate → confirm/close.
func issueResolutionFlow() *Definition {
	return NewDefinition(FlowIssueResolution, "问题受理", "start",
		&Node{
			ID: "start", Type: NodeStart,
			DefaultNext: "capture_issue",
		},
		&Node{
			ID: "capture_issue", Type: NodeCollect,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "请描述您遇到的问题。 Please describe the issue you ran into."},
			}},
			Conditions: []Condition{
				{Kind: CondUserResponse, Operator: OpNe, Value: ""},
			},
			DefaultNext: "classify_priority",
			MaxAttempts: 3,
		},
		&Node{
			ID: "classify_priority", Type: NodeCheck,
			Actions: []ActionRef{{
				Type:   ActionSetVariable,
				Params: map[string]any{"issue": "{utterance}"},
			}},
			Branches: []Branch{{
				Label: "high",
				Conditions: []Condition{
					{Kind: CondCustom, Field: "high_priority"},
				},
			}},
			Transitions: map[string]string{"high": "escalate_issue"},
			DefaultNext: "attempt_resolution",
		},
		&Node{
			ID: "attempt_resolution", Type: NodeAction,
			Actions: []ActionRef{{
				Type:   ActionKnowledgeSearch,
				Params: map[string]any{"scope": "troubleshooting", "query": "{issue}"},
				Output: "resolution_hits",
			}},
			DefaultNext: "confirm_close",
		},
		&Node{
			ID: "confirm_close", Type: NodeRespond,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "以上方法是否解决了您的问题？ Did that resolve your issue?"},
			}},
			Conditions: []Condition{
				{Kind: CondEntityValue, Field: "intent", Operator: OpIn,
					Value: []any{string(types.IntentConfirmation), string(types.IntentDenial)}},
			},
			Branches: []Branch{{
				Label: "resolved",
				Conditions: []Condition{
					{Kind: CondEntityValue, Field: "intent", Operator: OpEq, Value: string(types.IntentConfirmation)},
				},
			}},
			Transitions: map[string]string{"resolved": "end"},
			DefaultNext: "escalate_issue",
			MaxAttempts: 2,
		},
		&Node{
			ID: "escalate_issue", Type: NodeEscalation,
			Actions: []ActionRef{{
				Type:   "notify_escalation",
				Params: map[string]any{"reason": "issue_unresolved", "issue": "{issue}"},
			}},
			DefaultNext: "end",
		},
		&Node{ID: "end", Type: NodeEnd},
	)
}

// informationRequestFlow: classify topic → knowledge search → format answer
// → loop for follow-up questions or end.
func informationRequestFlow() *Definition {
	return NewDefinition(FlowInformationRequest, "信息查询", "start",
		&Node{
			ID: "start", Type: NodeStart,
			DefaultNext: "search_knowledge",
		},
		&Node{
			ID: "search_knowledge", Type: NodeAction,
			Actions: []ActionRef{
				{
					Type:   ActionSetVariable,
					Params: map[string]any{"question": "{utterance}"},
				},
				{
					Type:   ActionKnowledgeSearch,
					Params: map[string]any{"scope": "faq", "query": "{utterance}"},
					Output: "knowledge_hits",
				},
			},
			DefaultNext: "format_answer",
		},
		&Node{
			ID: "format_answer", Type: NodeRespond,
			DefaultNext: "more_questions",
		},
		&Node{
			ID: "more_questions", Type: NodeLoop,
			Actions: []ActionRef{{
				Type:   ActionAskQuestion,
				Params: map[string]any{"text": "还有其他想了解的吗？ Anything else you would like to know?"},
			}},
			Branches: []Branch{{
				Label: "another",
				Conditions: []Condition{
					{Kind: CondEntityValue, Field: "intent", Operator: OpEq, Value: string(types.IntentInformationRequest)},
				},
			}},
			Transitions: map[string]string{"another": "search_knowledge"},
			DefaultNext: "end",
			MaxAttempts: 5,
		},
		&Node{ID: "end", Type: NodeEnd},
	)
}

// emergencyFlow: assess severity → immediate vs. priority escalation → end.
func emergencyFlow() *Definition {
	return NewDefinition(FlowEmergency, "紧急处理", "start",
		&Node{
			ID: "start", Type: NodeStart,
			DefaultNext: "assess_severity",
		},
		&Node{
			ID: "assess_severity", Type: NodeCheck,
			Branches: []Branch{{
				Label: "critical",
				Conditions: []Condition{
					{Kind: CondCustom, Field: "critical_severity"},
				},
			}},
			Transitions: map[string]string{"critical": "immediate_escalation"},
			DefaultNext: "priority_escalation",
		},
		&Node{
			ID: "immediate_escalation", Type: NodeEscalation,
			Actions: []ActionRef{{
				Type:   "notify_escalation",
				Params: map[string]any{"reason": "critical_emergency", "channel": "immediate"},
			}},
			DefaultNext: "end",
		},
		&Node{
			ID: "priority_escalation", Type: NodeEscalation,
			Actions: []ActionRef{{
				Type:   "notify_escalation",
				Params: map[string]any{"reason": "emergency", "channel": "priority"},
			}},
			DefaultNext: "end",
		},
		&Node{ID: "end", Type: NodeEnd},
	)
}
