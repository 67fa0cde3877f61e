package types

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one utterance/reply exchange entry within a session history.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// DialogueState is the coarse stage of a conversation. States advance in a
// fixed order; the only backward edge is completion/farewell returning to
// gathering when a new intent is detected.
type DialogueState string

const (
	StateGreeting      DialogueState = "greeting"
	StateGathering     DialogueState = "information_gathering"
	StateProcessing    DialogueState = "processing"
	StateClarification DialogueState = "clarification"
	StateCompletion    DialogueState = "completion"
	StateFarewell      DialogueState = "farewell"
)

// stateOrder assigns each state its position in the forward progression.
// Processing and clarification share a rank: the dialogue may oscillate
// between them while a request is being worked on.
var stateOrder = map[DialogueState]int{
	StateGreeting:      0,
	StateGathering:     1,
	StateProcessing:    2,
	StateClarification: 2,
	StateCompletion:    3,
	StateFarewell:      4,
}

// CanTransitionTo reports whether moving from s to next respects the fixed
// state ordering. newIntent enables the single backward edge from
// completion/farewell to information gathering.
func (s DialogueState) CanTransitionTo(next DialogueState, newIntent bool) bool {
	from, ok := stateOrder[s]
	if !ok {
		return false
	}
	to, ok := stateOrder[next]
	if !ok {
		return false
	}
	if newIntent && (s == StateCompletion || s == StateFarewell) && next == StateGathering {
		return true
	}
	return to >= from
}

// Valid reports whether s is a known dialogue state.
func (s DialogueState) Valid() bool {
	_, ok := stateOrder[s]
	return ok
}

// Intent is a member of the closed intent set understood by the engine.
type Intent string

const (
	IntentAppointmentBooking Intent = "APPOINTMENT_BOOKING"
	IntentIssueReport        Intent = "ISSUE_REPORT"
	IntentInformationRequest Intent = "INFORMATION_REQUEST"
	IntentEmergency          Intent = "EMERGENCY"
	IntentGreeting           Intent = "GREETING"
	IntentFarewell           Intent = "FAREWELL"
	IntentConfirmation       Intent = "CONFIRMATION"
	IntentDenial             Intent = "DENIAL"
	IntentUndetermined       Intent = "UNDETERMINED"
)

// KnownIntents lists every intent an external classifier may choose from.
// IntentUndetermined is excluded: it is the analyzer's own fallback, never
// a valid classification answer.
func KnownIntents() []Intent {
	return []Intent{
		IntentAppointmentBooking,
		IntentIssueReport,
		IntentInformationRequest,
		IntentEmergency,
		IntentGreeting,
		IntentFarewell,
		IntentConfirmation,
		IntentDenial,
	}
}

// Known reports whether the intent is a real classification (not undetermined
// or empty).
func (i Intent) Known() bool {
	return i != "" && i != IntentUndetermined
}

// Emotion labels recognised by the sentiment analyzer and the synthesizer.
const (
	EmotionNeutral    = "neutral"
	EmotionHappy      = "happy"
	EmotionAngry      = "angry"
	EmotionFrustrated = "frustrated"
	EmotionWorried    = "worried"
	EmotionSad        = "sad"
)

// NegativeEmotion reports whether the label belongs to the negative set that
// triggers empathetic responses.
func NegativeEmotion(emotion string) bool {
	switch emotion {
	case EmotionAngry, EmotionFrustrated, EmotionWorried, EmotionSad:
		return true
	}
	return false
}

// AnalysisResult is the NLU output for a single utterance.
type AnalysisResult struct {
	Intent     Intent         `json:"intent"`
	Entities   map[string]any `json:"entities,omitempty"`
	Sentiment  float64        `json:"sentiment"`
	Emotion    string         `json:"emotion"`
	Urgency    float64        `json:"urgency"`
	Language   string         `json:"language"`
	Confidence float64        `json:"confidence"`
}
