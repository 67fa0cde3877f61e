package respond

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/BaSui01/dialogflow/knowledge"
	"github.com/BaSui01/dialogflow/types"
)

func arbitraryContext(t *rapid.T) *Context {
	rc := &Context{
		Emotion: rapid.SampledFrom([]string{
			"", types.EmotionNeutral, types.EmotionHappy, types.EmotionAngry,
			types.EmotionWorried, types.EmotionSad, types.EmotionFrustrated,
		}).Draw(t, "emotion"),
		Intent: rapid.SampledFrom(append(types.KnownIntents(), types.IntentUndetermined)).Draw(t, "intent"),
	}
	if rapid.Bool().Draw(t, "has_knowledge") {
		rc.Knowledge = []knowledge.Result{{SourceName: "faq"}}
	}
	if rapid.Bool().Draw(t, "has_entities") {
		rc.Entities = map[string]any{"name": "x"}
	}
	return rc
}

// Reply confidence must stay inside [0,1] for arbitrary inputs.
func TestReplyConfidenceBounded(t *testing.T) {
	s := NewSynthesizer(nil, Config{}, nil)
	rapid.Check(t, func(t *rapid.T) {
		rc := arbitraryContext(t)
		reply := rapid.String().Draw(t, "reply")

		score := s.Confidence(rc, reply)
		if score < 0 || score > 1 {
			t.Fatalf("confidence %v out of [0,1]", score)
		}
	})
}

// Adding positive signals never lowers the score.
func TestReplyConfidenceMonotone(t *testing.T) {
	s := NewSynthesizer(nil, Config{}, nil)
	rapid.Check(t, func(t *rapid.T) {
		rc := &Context{}
		reply := strings.Repeat("好", rapid.IntRange(0, 40).Draw(t, "reply_len"))

		base := s.Confidence(rc, reply)

		withIntent := *rc
		withIntent.Intent = types.IntentAppointmentBooking
		if got := s.Confidence(&withIntent, reply); got < base {
			t.Fatalf("known intent lowered confidence: %v < %v", got, base)
		}

		withKnowledge := *rc
		withKnowledge.Knowledge = []knowledge.Result{{SourceName: "faq"}}
		if got := s.Confidence(&withKnowledge, reply); got < base {
			t.Fatalf("knowledge lowered confidence: %v < %v", got, base)
		}

		withEntities := *rc
		withEntities.Entities = map[string]any{"name": "x"}
		if got := s.Confidence(&withEntities, reply); got < base {
			t.Fatalf("entities lowered confidence: %v < %v", got, base)
		}
	})
}
