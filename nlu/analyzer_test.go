package nlu

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/llm"
	"github.com/BaSui01/dialogflow/types"
)

// scriptedClient returns canned responses keyed by a substring of the prompt.
type scriptedClient struct {
	responses map[string]string
	err       error
	calls     int
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	for key, resp := range c.responses {
		if strings.Contains(prompt, key) {
			return resp, nil
		}
	}
	return "", nil
}

func newTestAnalyzer(client llm.Client) *Analyzer {
	return NewAnalyzer(client, DefaultConfig(), zap.NewNop())
}

func TestDetectIntentPatternFastPath(t *testing.T) {
	failing := &scriptedClient{err: errors.New("service down")}
	a := newTestAnalyzer(failing)

	tests := []struct {
		text string
		want types.Intent
	}{
		{"Hello, I want to book an appointment", types.IntentAppointmentBooking},
		{"我想预约明天的门诊", types.IntentAppointmentBooking},
		{"My phone is broken, this is an issue", types.IntentIssueReport},
		{"这个设备坏了", types.IntentIssueReport},
		{"What are your opening hours?", types.IntentInformationRequest},
		{"请问门诊几点开门", types.IntentInformationRequest},
		{"This is an emergency, chest pain!", types.IntentEmergency},
		{"救命，他晕倒了", types.IntentEmergency},
		{"yes, that works", types.IntentConfirmation},
		{"不用了，取消吧", types.IntentDenial},
		{"goodbye", types.IntentFarewell},
		{"你好", types.IntentGreeting},
	}
	for _, tt := range tests {
		got := a.DetectIntent(context.Background(), tt.text)
		assert.Equal(t, tt.want, got, "text=%q", tt.text)
	}
	// Pattern hits never reach the external service.
	assert.Zero(t, failing.calls)
}

func TestDetectIntentClassifierFallback(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Classify": " appointment_booking.\n",
	}}
	a := newTestAnalyzer(client)

	got := a.DetectIntent(context.Background(), "same as last month please")
	assert.Equal(t, types.IntentAppointmentBooking, got)
	assert.Equal(t, 1, client.calls)
}

func TestDetectIntentUndeterminedOnFailure(t *testing.T) {
	a := newTestAnalyzer(&scriptedClient{err: errors.New("timeout")})

	// No pattern match and a failing classification call: undetermined,
	// and never an error or panic.
	got := a.DetectIntent(context.Background(), "hmm let me think about it")
	assert.Equal(t, types.IntentUndetermined, got)
}

func TestDetectIntentRejectsOutOfSetAnswer(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Classify": "I think the user probably wants to chat about the weather",
	}}
	a := newTestAnalyzer(client)

	got := a.DetectIntent(context.Background(), "qwertyuiop")
	assert.Equal(t, types.IntentUndetermined, got)
}

func TestExtractEntitiesPatterns(t *testing.T) {
	a := newTestAnalyzer(&scriptedClient{err: errors.New("down")})

	entities := a.ExtractEntities(context.Background(), "我叫王小明，电话13812345678，明天下午3点，45岁")
	assert.Equal(t, "王小明", entities["name"])
	assert.Equal(t, "13812345678", entities["phone"])
	assert.Equal(t, "45", entities["age"])
	assert.Contains(t, entities, "date")
	assert.Contains(t, entities, "time")
}

func TestExtractEntitiesEnglishPatterns(t *testing.T) {
	a := newTestAnalyzer(nil)

	entities := a.ExtractEntities(context.Background(), "My name is John Smith, tomorrow at 10:30 please")
	assert.Equal(t, "John Smith", entities["name"])
	assert.Contains(t, entities, "date")
	assert.Equal(t, "10:30", entities["time"])
}

func TestExtractEntitiesExternalWinsByDefault(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Extract": `Here you go: {"name": "李雷", "city": "Beijing"}`,
	}}
	a := newTestAnalyzer(client)

	entities := a.ExtractEntities(context.Background(), "我叫王小明")
	// External result overwrites the pattern match on key collision.
	assert.Equal(t, "李雷", entities["name"])
	assert.Equal(t, "Beijing", entities["city"])
}

func TestExtractEntitiesPreferPatternPolicy(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Extract": `{"name": "李雷"}`,
	}}
	cfg := DefaultConfig()
	cfg.Merge = PreferPattern
	a := NewAnalyzer(client, cfg, zap.NewNop())

	entities := a.ExtractEntities(context.Background(), "我叫王小明")
	assert.Equal(t, "王小明", entities["name"])
}

func TestAnalyzeSentimentHeuristicBaseline(t *testing.T) {
	a := newTestAnalyzer(&scriptedClient{err: errors.New("down")})

	s := a.AnalyzeSentiment(context.Background(), "this is terrible, I am so angry")
	assert.Less(t, s.Score, 0.0)
	assert.Equal(t, types.EmotionAngry, s.Emotion)

	s = a.AnalyzeSentiment(context.Background(), "太好了，谢谢")
	assert.Greater(t, s.Score, 0.0)
	assert.Equal(t, types.EmotionHappy, s.Emotion)
}

func TestAnalyzeSentimentExternalOverride(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Rate": `{"score": -0.8, "emotion": "worried", "urgency": 0.7}`,
	}}
	a := newTestAnalyzer(client)

	s := a.AnalyzeSentiment(context.Background(), "okay")
	assert.InDelta(t, -0.8, s.Score, 1e-9)
	assert.Equal(t, types.EmotionWorried, s.Emotion)
	assert.InDelta(t, 0.7, s.Urgency, 1e-9)
}

func TestAnalyzeSentimentKeepsHeuristicOnGarbage(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		"Rate": `{"score": 42, "emotion": "ecstatic"}`,
	}}
	a := newTestAnalyzer(client)

	s := a.AnalyzeSentiment(context.Background(), "谢谢，太好了")
	// Out-of-range response is rejected; heuristic stands.
	assert.Equal(t, types.EmotionHappy, s.Emotion)
	assert.LessOrEqual(t, s.Score, 1.0)
}

func TestDetectLanguage(t *testing.T) {
	a := newTestAnalyzer(nil)

	tests := []struct {
		text string
		want string
	}{
		{"我想预约明天下午的门诊", "zh"},      // Han only
		{"想预约明天下午的门诊ab", "zh"},     // 10 Han vs 2 Latin
		{"我好helloworld", "en"},     // 2 Han vs 10 Latin
		{"我要预约门hello", "mixed"},    // 5 vs 5
		{"hello there friend", "en"},
		{"12345 !!", "zh"}, // no letters: default language
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.DetectLanguage(tt.text), "text=%q", tt.text)
	}
}

func TestConfidenceScoring(t *testing.T) {
	// Base only: unknown intent, no entities, short utterance.
	assert.InDelta(t, 0.5, Confidence("hi", types.IntentUndetermined, nil), 1e-9)

	// Known intent adds 0.2.
	assert.InDelta(t, 0.7, Confidence("hi", types.IntentGreeting, nil), 1e-9)

	// Entities add 0.05 each, capped at 0.2.
	e2 := map[string]any{"a": 1, "b": 2}
	assert.InDelta(t, 0.6, Confidence("hi", types.IntentUndetermined, e2), 1e-9)
	e6 := map[string]any{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6}
	assert.InDelta(t, 0.7, Confidence("hi", types.IntentUndetermined, e6), 1e-9)

	// More than 3 tokens adds 0.1; total clamps at 1.
	long := "please book me an appointment for tomorrow morning"
	require.Greater(t, utteranceTokens(long), 3)
	assert.InDelta(t, 1.0, Confidence(long, types.IntentAppointmentBooking, e6), 1e-9)
}

func TestAnalyzeNeverPanicsWithNilClient(t *testing.T) {
	a := newTestAnalyzer(nil)
	result := a.Analyze(context.Background(), "我想预约，我叫王小明")
	assert.Equal(t, types.IntentAppointmentBooking, result.Intent)
	assert.NotEmpty(t, result.Language)
	assert.GreaterOrEqual(t, result.Confidence, 0.5)
}
