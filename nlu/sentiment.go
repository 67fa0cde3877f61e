package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/types"
)

// Sentiment is the per-utterance affect estimate.
type Sentiment struct {
	Score   float64 `json:"score"`   // [-1, 1]
	Emotion string  `json:"emotion"` // one of the types.Emotion* labels
	Urgency float64 `json:"urgency"` // [0, 1]
}

// Lexicon holds the keyword lists behind the heuristic baseline.
type Lexicon struct {
	Positive []string
	Negative []string
	Angry    []string
	Worried  []string
	Sad      []string
	Urgent   []string
}

func defaultLexicon() Lexicon {
	return Lexicon{
		Positive: []string{
			"thanks", "thank you", "great", "good", "perfect", "happy", "love",
			"谢谢", "太好了", "很好", "满意", "开心", "不错",
		},
		Negative: []string{
			"bad", "terrible", "awful", "hate", "angry", "annoyed", "useless",
			"worried", "scared", "sad", "disappointed", "slow", "wrong",
			"糟糕", "生气", "气死", "讨厌", "担心", "害怕", "难过", "失望", "太慢", "不行",
		},
		Angry: []string{
			"angry", "furious", "annoyed", "hate", "ridiculous",
			"生气", "气死", "愤怒", "岂有此理", "讨厌",
		},
		Worried: []string{
			"worried", "scared", "afraid", "anxious", "nervous",
			"担心", "害怕", "不安", "紧张", "焦虑",
		},
		Sad: []string{
			"sad", "disappointed", "unhappy", "upset",
			"难过", "失望", "伤心", "委屈",
		},
		Urgent: []string{
			"urgent", "immediately", "right now", "emergency", "asap", "help",
			"紧急", "马上", "立刻", "急", "救命",
		},
	}
}

// AnalyzeSentiment computes a keyword-count heuristic baseline, then issues
// one external call requesting (score, emotion, urgency) and overrides the
// baseline only when the response is parseable. Never returns an error.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) Sentiment {
	baseline := a.heuristicSentiment(text)

	out, ok := a.complete(ctx, "sentiment", sentimentPrompt(text))
	if !ok {
		return baseline
	}
	external, err := parseSentiment(out)
	if err != nil {
		a.logger.Debug("unparseable sentiment response, keeping heuristic",
			zap.Error(err))
		return baseline
	}
	return external
}

// heuristicSentiment scores the utterance by counting lexicon hits.
func (a *Analyzer) heuristicSentiment(text string) Sentiment {
	low := strings.ToLower(text)
	pos := countHits(low, a.lexicon.Positive)
	neg := countHits(low, a.lexicon.Negative)

	var score float64
	if pos+neg > 0 {
		score = float64(pos-neg) / float64(pos+neg)
	}

	emotion := types.EmotionNeutral
	switch {
	case countHits(low, a.lexicon.Angry) > 0:
		emotion = types.EmotionAngry
	case countHits(low, a.lexicon.Worried) > 0:
		emotion = types.EmotionWorried
	case countHits(low, a.lexicon.Sad) > 0:
		emotion = types.EmotionSad
	case score > 0.2:
		emotion = types.EmotionHappy
	case score < -0.2:
		emotion = types.EmotionFrustrated
	}

	urgency := 0.1
	if countHits(low, a.lexicon.Urgent) > 0 {
		urgency = 0.9
	} else if emotion == types.EmotionAngry || emotion == types.EmotionWorried {
		urgency = 0.5
	}

	return Sentiment{Score: score, Emotion: emotion, Urgency: urgency}
}

func countHits(text string, words []string) int {
	hits := 0
	for _, w := range words {
		hits += strings.Count(text, w)
	}
	return hits
}

func sentimentPrompt(text string) string {
	return "Rate the utterance. Reply with a single JSON object: " +
		`{"score": <-1..1>, "emotion": "<neutral|happy|angry|frustrated|worried|sad>", "urgency": <0..1>}. ` +
		"No prose.\n\nUtterance: " + text
}

// parseSentiment decodes the external answer and validates its ranges. Any
// violation rejects the whole response so the heuristic baseline stands.
func parseSentiment(answer string) (Sentiment, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return Sentiment{}, errNoJSONObject
	}
	var s Sentiment
	if err := json.Unmarshal([]byte(answer[start:end+1]), &s); err != nil {
		return Sentiment{}, err
	}
	if s.Score < -1 || s.Score > 1 || s.Urgency < 0 || s.Urgency > 1 {
		return Sentiment{}, errSentimentRange
	}
	switch s.Emotion {
	case types.EmotionNeutral, types.EmotionHappy, types.EmotionAngry,
		types.EmotionFrustrated, types.EmotionWorried, types.EmotionSad:
	default:
		return Sentiment{}, errSentimentRange
	}
	return s, nil
}

var errSentimentRange = errors.New("sentiment response out of range")
