package nlu

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/llm"
	"github.com/BaSui01/dialogflow/types"
)

// MergePolicy decides which source wins when the external extraction call and
// the pattern rules produce the same entity key.
type MergePolicy string

const (
	// PreferExternal lets externally extracted values overwrite pattern
	// matches on key collision. This mirrors the historical behavior.
	PreferExternal MergePolicy = "prefer_external"
	// PreferPattern keeps the deterministic pattern match on collision.
	PreferPattern MergePolicy = "prefer_pattern"
)

// Config tunes the analyzer.
type Config struct {
	// Merge selects the entity precedence policy. Default PreferExternal.
	Merge MergePolicy `yaml:"merge" json:"merge"`
	// DefaultLanguage is reported for utterances with no letters at all.
	DefaultLanguage string `yaml:"default_language" json:"default_language"`
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		Merge:           PreferExternal,
		DefaultLanguage: "zh",
	}
}

// Analyzer converts one utterance plus running context into an
// AnalysisResult. It never propagates an external-call failure; the
// rule-based layer is the authoritative fallback.
type Analyzer struct {
	client llm.Client
	config Config
	logger *zap.Logger

	intentRules []IntentRule
	entityRules []EntityRule
	lexicon     Lexicon
}

// NewAnalyzer creates an analyzer. client may be nil, in which case only the
// rule-based layer runs. logger may be nil.
func NewAnalyzer(client llm.Client, config Config, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Merge == "" {
		config.Merge = PreferExternal
	}
	if config.DefaultLanguage == "" {
		config.DefaultLanguage = "zh"
	}
	return &Analyzer{
		client:      client,
		config:      config,
		logger:      logger.With(zap.String("component", "nlu")),
		intentRules: defaultIntentRules(),
		entityRules: defaultEntityRules(),
		lexicon:     defaultLexicon(),
	}
}

// Analyze runs the full per-turn analysis pipeline.
func (a *Analyzer) Analyze(ctx context.Context, text string) types.AnalysisResult {
	intent := a.DetectIntent(ctx, text)
	entities := a.ExtractEntities(ctx, text)
	sentiment := a.AnalyzeSentiment(ctx, text)
	return types.AnalysisResult{
		Intent:     intent,
		Entities:   entities,
		Sentiment:  sentiment.Score,
		Emotion:    sentiment.Emotion,
		Urgency:    sentiment.Urgency,
		Language:   a.DetectLanguage(text),
		Confidence: Confidence(text, intent, entities),
	}
}

// DetectLanguage compares Han character count to Latin character count.
// Han-dominant utterances are "zh", Latin more than double Han is "en",
// anything in between is "mixed".
func (a *Analyzer) DetectLanguage(text string) string {
	var han, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case han == 0 && latin == 0:
		return a.config.DefaultLanguage
	case han > latin:
		return "zh"
	case latin > 2*han:
		return "en"
	default:
		return "mixed"
	}
}

// Confidence scores how well the analysis understood the utterance.
// Base 0.5; +0.2 for a known intent; +0.05 per entity capped at +0.2;
// +0.1 when the utterance has more than 3 tokens. Clamped to [0,1].
func Confidence(text string, intent types.Intent, entities map[string]any) float64 {
	score := 0.5
	if intent.Known() {
		score += 0.2
	}
	entityBonus := 0.05 * float64(len(entities))
	if entityBonus > 0.2 {
		entityBonus = 0.2
	}
	score += entityBonus
	if utteranceTokens(text) > 3 {
		score += 0.1
	}
	return types.Clamp01(score)
}

// utteranceTokens counts whitespace-separated words, with each Han character
// counting as its own token.
func utteranceTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			count++
			inWord = false
		case unicode.IsSpace(r):
			inWord = false
		default:
			if !inWord {
				count++
				inWord = true
			}
		}
	}
	return count
}

// complete issues one external call, absorbing every failure into a logged
// empty result.
func (a *Analyzer) complete(ctx context.Context, task, prompt string) (string, bool) {
	if a.client == nil {
		return "", false
	}
	out, err := a.client.Complete(llm.WithTask(ctx, task), prompt)
	if err != nil {
		a.logger.Warn("external call failed, using rule-based fallback",
			zap.String("task", task),
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Error(err))
		return "", false
	}
	return strings.TrimSpace(out), true
}
