package respond

import (
	"strings"

	"github.com/BaSui01/dialogflow/types"
)

// MixMode governs which connector terms may switch script in a reply.
type MixMode string

const (
	// MixPurePrimary keeps every connector in the primary script.
	MixPurePrimary MixMode = "pure_primary"
	// MixPureSecondary switches every connector to the secondary script.
	MixPureSecondary MixMode = "pure_secondary"
	// MixLight switches only the first connector found.
	MixLight MixMode = "light_mixed"
	// MixHeavy switches every connector.
	MixHeavy MixMode = "heavy_mixed"
	// MixCodeSwitch switches connectors only at clause starts.
	MixCodeSwitch MixMode = "code_switching"
)

// modeForLanguage derives the mixing mode from the user's detected language.
func modeForLanguage(language string) MixMode {
	switch language {
	case "zh":
		return MixPurePrimary
	case "en":
		return MixPureSecondary
	}
	return MixLight
}

// postProcess runs the style pipeline in fixed order: empathy prefix,
// formality substitution, humor suffix, language mixing, emotion phrase
// prefix. Every stage is conditional on persona sliders or emotion.
func (s *Synthesizer) postProcess(reply, locale string, rc *Context) string {
	persona := rc.Persona

	if types.Clamp01(persona.Empathy) > 0.7 && types.NegativeEmotion(rc.Emotion) {
		if prefix, ok := empathyPrefixes[rc.Emotion][locale]; ok {
			reply = prefix + reply
		}
	}

	reply = applyFormality(reply, locale, types.Clamp01(persona.Formality))

	if !types.NegativeEmotion(rc.Emotion) && types.Clamp01(persona.Humor) > 0.6 &&
		s.roll() < s.config.HumorProbability {
		if suffix := s.pick(humorSuffixes[locale]); suffix != "" {
			reply = reply + " " + suffix
		}
	}

	mode := s.config.MixMode
	if mode == "" {
		mode = modeForLanguage(rc.Language)
	}
	reply = applyMix(reply, mode)

	if phrase, ok := emotionPhrases[rc.Emotion][locale]; ok {
		reply = phrase + reply
	}

	return reply
}

// applyFormality rewrites wording toward the formal lexicon above slider 0.7
// and toward the casual lexicon below 0.3. The middle band keeps the reply
// untouched.
func applyFormality(reply, locale string, formality float64) string {
	var pairs [][2]string
	switch {
	case formality > 0.7:
		pairs = formalPairs[locale]
	case formality < 0.3:
		pairs = casualPairs[locale]
	default:
		return reply
	}
	for _, pair := range pairs {
		reply = strings.ReplaceAll(reply, pair[0], pair[1])
	}
	return reply
}

// applyMix switches connector-term script per the mode. Content words never
// switch; only the connector table participates.
func applyMix(reply string, mode MixMode) string {
	switch mode {
	case MixPurePrimary:
		for _, pair := range connectors {
			reply = strings.ReplaceAll(reply, pair[1], pair[0])
		}
	case MixPureSecondary, MixHeavy:
		for _, pair := range connectors {
			reply = strings.ReplaceAll(reply, pair[0], pair[1])
		}
	case MixLight:
		for _, pair := range connectors {
			if idx := strings.Index(reply, pair[0]); idx >= 0 {
				reply = reply[:idx] + pair[1] + reply[idx+len(pair[0]):]
				break
			}
		}
	case MixCodeSwitch:
		for _, pair := range connectors {
			reply = replaceAtClauseStart(reply, pair[0], pair[1])
		}
	}
	return reply
}

// clauseBoundaries are the characters a clause may start after.
var clauseBoundaries = []string{"。", "！", "？", "，", ". ", "! ", "? ", ", "}

// replaceAtClauseStart swaps old for new only when old begins the reply or
// directly follows a clause boundary.
func replaceAtClauseStart(reply, old, new string) string {
	if strings.HasPrefix(reply, old) {
		reply = new + reply[len(old):]
	}
	for _, boundary := range clauseBoundaries {
		reply = strings.ReplaceAll(reply, boundary+old, boundary+new)
	}
	return reply
}
