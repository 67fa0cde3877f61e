package respond

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/knowledge"
	"github.com/BaSui01/dialogflow/llm"
	"github.com/BaSui01/dialogflow/session"
	"github.com/BaSui01/dialogflow/types"
)

// Context carries everything one turn's reply is synthesized from. It is
// assembled per turn and discarded afterwards.
type Context struct {
	Session   *session.Context
	Persona   types.Persona
	Emotion   string
	Urgency   float64
	Language  string
	Intent    types.Intent
	Entities  map[string]any
	Knowledge []knowledge.Result
	Goals     []string
	// Question is the pending question emitted by the flow, if any.
	Question string
	// Escalated marks that the flow handed this conversation off.
	Escalated bool
}

// Result is the synthesized reply plus its metadata.
type Result struct {
	Reply      string   `json:"reply"`
	Kind       Kind     `json:"kind"`
	Confidence float64  `json:"confidence"`
	IsFallback bool     `json:"is_fallback"`
	FollowUps  []string `json:"follow_ups,omitempty"`
}

// Config tunes the synthesizer.
type Config struct {
	// HistoryTokenBudget bounds how much session history enters the prompt.
	HistoryTokenBudget int `json:"history_token_budget" yaml:"history_token_budget"`
	// Encoding names the tiktoken encoding used for budgeting.
	Encoding string `json:"encoding" yaml:"encoding"`
	// HumorProbability is the chance of the light-humor suffix firing when
	// its slider condition holds.
	HumorProbability float64 `json:"humor_probability" yaml:"humor_probability"`
	// MixMode overrides the language-mixing mode; empty derives it from the
	// user's detected language.
	MixMode MixMode `json:"mix_mode,omitempty" yaml:"mix_mode,omitempty"`
}

func (c *Config) applyDefaults() {
	if c.HistoryTokenBudget <= 0 {
		c.HistoryTokenBudget = 1024
	}
	if c.Encoding == "" {
		c.Encoding = "cl100k_base"
	}
	if c.HumorProbability <= 0 {
		c.HumorProbability = 0.3
	}
}

// Synthesizer produces the outgoing reply for a turn. A nil client is
// tolerated: every reply then comes from the template fallback path.
type Synthesizer struct {
	client llm.Client
	config Config
	logger *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
}

// NewSynthesizer creates a response synthesizer.
func NewSynthesizer(client llm.Client, config Config, logger *zap.Logger) *Synthesizer {
	config.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		client: client,
		config: config,
		logger: logger.With(zap.String("component", "respond")),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectKind picks the response category: urgency first, then negative
// emotion, then the dialogue state.
func (s *Synthesizer) SelectKind(rc *Context) Kind {
	if rc.Urgency > 0.8 || rc.Escalated {
		return KindEscalation
	}
	if types.NegativeEmotion(rc.Emotion) {
		return KindEmpathetic
	}
	state := types.DialogueState("")
	if rc.Session != nil {
		state = rc.Session.State
	}
	switch state {
	case types.StateGreeting:
		return KindGreeting
	case types.StateGathering:
		return KindQuestion
	case types.StateClarification:
		return KindClarify
	case types.StateCompletion:
		return KindConfirm
	case types.StateFarewell:
		return KindFarewell
	}
	return KindInformation
}

// Generate synthesizes the reply for one turn. The caller always receives a
// non-empty reply: generation failures fall back to the (kind, locale)
// template, and an empty render falls back to the localized apology.
func (s *Synthesizer) Generate(ctx context.Context, rc *Context) *Result {
	kind := s.SelectKind(rc)
	locale := templateKey(rc.Language)

	reply, fallback := s.generateText(ctx, kind, locale, rc)
	reply = s.postProcess(reply, locale, rc)

	result := &Result{
		Reply:      reply,
		Kind:       kind,
		IsFallback: fallback,
		FollowUps:  s.FollowUps(rc.Intent, rc.Language),
	}
	if fallback {
		result.Confidence = 0.3
	} else {
		result.Confidence = s.Confidence(rc, reply)
	}
	return result
}

func (s *Synthesizer) generateText(ctx context.Context, kind Kind, locale string, rc *Context) (string, bool) {
	if s.client != nil {
		out, err := s.client.Complete(llm.WithTask(ctx, "generate"), s.buildPrompt(kind, locale, rc))
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out), false
		}
		if err != nil {
			s.logger.Warn("generation failed, using template",
				zap.String("kind", string(kind)), zap.Error(err))
		}
	}

	rendered := strings.TrimSpace(substitute(templates[kind][locale], s.templateVars(rc)))
	if rendered == "" {
		rendered = apologies[locale]
	}
	return rendered, true
}

// buildPrompt assembles the persona instruction block and the context block
// for one generation call.
func (s *Synthesizer) buildPrompt(kind Kind, locale string, rc *Context) string {
	var b strings.Builder
	p := rc.Persona

	b.WriteString("You are a dialogue assistant.\n")
	fmt.Fprintf(&b, "Name: %s\nStyle: %s\n", p.Name, p.Style)
	fmt.Fprintf(&b, "Traits: empathy=%.1f formality=%.1f humor=%.1f patience=%.1f detail=%.1f\n",
		types.Clamp01(p.Empathy), types.Clamp01(p.Formality), types.Clamp01(p.Humor),
		types.Clamp01(p.Patience), types.Clamp01(p.Detail))
	if len(p.Languages) > 0 {
		fmt.Fprintf(&b, "Allowed languages: %s\n", strings.Join(p.Languages, ", "))
	}
	if len(p.Capabilities) > 0 {
		fmt.Fprintf(&b, "You can: %s\n", strings.Join(p.Capabilities, "; "))
	}
	if len(p.Limitations) > 0 {
		fmt.Fprintf(&b, "You must not: %s\n", strings.Join(p.Limitations, "; "))
	}

	if history := s.historyBlock(rc); history != "" {
		b.WriteString("\nConversation so far:\n")
		b.WriteString(history)
	}
	if len(rc.Knowledge) > 0 {
		b.WriteString("\nRelevant knowledge:\n")
		for _, hit := range rc.Knowledge {
			fmt.Fprintf(&b, "- [%s] %s\n", hit.SourceName, strings.Join(hit.Excerpts, " "))
		}
	}
	if len(rc.Entities) > 0 {
		b.WriteString("\nKnown details:\n")
		for key, value := range rc.Entities {
			fmt.Fprintf(&b, "- %s: %v\n", key, value)
		}
	}
	for _, goal := range rc.Goals {
		fmt.Fprintf(&b, "\nGoal: %s", goal)
	}
	if rc.Question != "" {
		fmt.Fprintf(&b, "\nAsk the user: %s", rc.Question)
	}

	fmt.Fprintf(&b, "\n\nWrite a %s reply in language %q.", kind, locale)
	return b.String()
}

// historyBlock renders recent turns newest-last, trimmed from the oldest end
// to the configured token budget.
func (s *Synthesizer) historyBlock(rc *Context) string {
	if rc.Session == nil || len(rc.Session.History) == 0 {
		return ""
	}
	budget := s.config.HistoryTokenBudget
	var kept []string
	for i := len(rc.Session.History) - 1; i >= 0; i-- {
		turn := rc.Session.History[i]
		line := fmt.Sprintf("%s: %s", turn.Role, turn.Text)
		cost := s.countTokens(line)
		if cost > budget {
			break
		}
		budget -= cost
		kept = append(kept, line)
	}
	// kept is newest-first; emit oldest-first.
	var b strings.Builder
	for i := len(kept) - 1; i >= 0; i-- {
		b.WriteString(kept[i])
		b.WriteByte('\n')
	}
	return b.String()
}

// countTokens measures text with the configured tiktoken encoding, falling
// back to a rune-based estimate if the encoding data is unavailable.
func (s *Synthesizer) countTokens(text string) int {
	s.encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(s.config.Encoding)
		if err != nil {
			s.encErr = err
			s.logger.Warn("tiktoken encoding unavailable, estimating tokens",
				zap.String("encoding", s.config.Encoding), zap.Error(err))
			return
		}
		s.enc = enc
	})
	if s.encErr != nil || s.enc == nil {
		return len([]rune(text))/2 + 1
	}
	return len(s.enc.Encode(text, nil, nil))
}

// FollowUps returns up to three localized suggestions for the intent.
func (s *Synthesizer) FollowUps(intent types.Intent, language string) []string {
	suggestions := followUps[intent][templateKey(language)]
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}

// Confidence scores a reply from its supporting signals: base 0.5, plus
// knowledge use, a known intent, extracted entities, a reply length in
// [50,300] and an empathy marker under non-neutral emotion, clamped to [0,1].
func (s *Synthesizer) Confidence(rc *Context, reply string) float64 {
	score := 0.5
	if len(rc.Knowledge) > 0 {
		score += 0.2
	}
	if rc.Intent.Known() {
		score += 0.15
	}
	if len(rc.Entities) > 0 {
		score += 0.1
	}
	if n := len([]rune(reply)); n >= 50 && n <= 300 {
		score += 0.1
	}
	if rc.Emotion != types.EmotionNeutral && rc.Emotion != "" && hasEmpathyMarker(reply) {
		score += 0.05
	}
	return types.Clamp01(score)
}

func hasEmpathyMarker(reply string) bool {
	for _, byLocale := range empathyPrefixes {
		for _, marker := range byLocale {
			if strings.Contains(reply, strings.TrimSpace(marker)) {
				return true
			}
		}
	}
	return false
}

func (s *Synthesizer) roll() float64 {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64()
}

func (s *Synthesizer) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return options[s.rng.Intn(len(options))]
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// substitute fills {name} placeholders from vars; unknown placeholders render
// empty so a template missing its data degrades to the apology path.
func substitute(template string, vars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if value, ok := vars[match[1:len(match)-1]]; ok {
			return fmt.Sprintf("%v", value)
		}
		return ""
	})
}

func (s *Synthesizer) templateVars(rc *Context) map[string]any {
	vars := make(map[string]any, len(rc.Entities)+3)
	for key, value := range rc.Entities {
		vars[key] = value
	}
	vars["persona"] = rc.Persona.Name
	if rc.Question != "" {
		vars["question"] = rc.Question
	}
	if len(rc.Knowledge) > 0 {
		var parts []string
		for _, hit := range rc.Knowledge {
			parts = append(parts, strings.Join(hit.Excerpts, " "))
		}
		vars["knowledge"] = strings.Join(parts, " ")
	}
	return vars
}
