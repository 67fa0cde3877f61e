package session

import (
	"time"

	"github.com/BaSui01/dialogflow/types"
)

// Context is the per-session dialogue state. It is exclusively owned and
// mutated by the session's own turn processing and destroyed on explicit
// session end.
type Context struct {
	SessionID    string              `json:"session_id"`
	UserID       string              `json:"user_id,omitempty"`
	History      []types.Turn        `json:"history"`
	State        types.DialogueState `json:"state"`
	Intent       types.Intent        `json:"intent"`
	Entities     map[string]any      `json:"entities"`
	Emotion      string              `json:"emotion"`
	Sentiment    float64             `json:"sentiment"`
	Language     string              `json:"language"`
	LastActiveAt time.Time           `json:"last_active_at"`
}

// NewContext creates a fresh session context in the greeting state.
func NewContext(sessionID, userID string) *Context {
	return &Context{
		SessionID:    sessionID,
		UserID:       userID,
		State:        types.StateGreeting,
		Intent:       types.IntentUndetermined,
		Entities:     make(map[string]any),
		Emotion:      types.EmotionNeutral,
		Language:     "zh",
		LastActiveAt: time.Now(),
	}
}

// AddTurn appends one history entry and touches the activity timestamp.
func (c *Context) AddTurn(role types.Role, text string) {
	now := time.Now()
	c.History = append(c.History, types.Turn{Role: role, Text: text, Timestamp: now})
	c.LastActiveAt = now
}

// ApplyAnalysis merges one turn's NLU result into the session context.
// A newly detected known intent replaces the previous one; entities merge
// additively so values collected over several turns accumulate.
func (c *Context) ApplyAnalysis(result types.AnalysisResult) (newIntent bool) {
	if result.Intent.Known() && result.Intent != c.Intent {
		c.Intent = result.Intent
		newIntent = true
	}
	for key, value := range result.Entities {
		c.Entities[key] = value
	}
	c.Emotion = result.Emotion
	c.Sentiment = result.Sentiment
	if result.Language != "" {
		c.Language = result.Language
	}
	return newIntent
}

// AdvanceState moves the dialogue state forward when the transition respects
// the fixed ordering; invalid transitions are ignored and the state kept.
func (c *Context) AdvanceState(next types.DialogueState, newIntent bool) {
	if c.State.CanTransitionTo(next, newIntent) {
		c.State = next
	}
}

// RecentHistory returns up to n most recent turns, oldest first.
func (c *Context) RecentHistory(n int) []types.Turn {
	if n <= 0 || len(c.History) <= n {
		return c.History
	}
	return c.History[len(c.History)-n:]
}
