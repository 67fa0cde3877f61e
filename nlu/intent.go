package nlu

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/dialogflow/types"
)

// IntentRule maps an ordered set of patterns to one intent. Rules are
// evaluated in slice order; the first matching rule wins.
type IntentRule struct {
	Intent   types.Intent
	Patterns []*regexp.Regexp
}

// defaultIntentRules returns the built-in fast-path rules. Patterns match
// both Han and Latin keyword forms so the rules are script-agnostic.
func defaultIntentRules() []IntentRule {
	return []IntentRule{
		{
			// Emergency outranks everything else.
			Intent: types.IntentEmergency,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(emergency|urgent|ambulance|can't breathe|chest pain)\b`),
				regexp.MustCompile(`紧急|急救|救命|胸痛|呼吸困难|晕倒`),
			},
		},
		{
			Intent: types.IntentAppointmentBooking,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(book|schedule|reserve|reschedule)\b.*\b(appointment|visit|slot)\b`),
				regexp.MustCompile(`(?i)\bappointment\b`),
				regexp.MustCompile(`预约|挂号|约个时间|改约`),
			},
		},
		{
			Intent: types.IntentIssueReport,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(problem|issue|complaint|broken|not working|error)\b`),
				regexp.MustCompile(`投诉|故障|坏了|有问题|无法使用|报错`),
			},
		},
		{
			Intent: types.IntentInformationRequest,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(what|when|where|how|why|which)\b.*\?`),
				regexp.MustCompile(`(?i)\b(opening hours|address|price|cost|information)\b`),
				regexp.MustCompile(`请问|想了解|咨询|多少钱|在哪里|几点`),
			},
		},
		{
			Intent: types.IntentConfirmation,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|sure|ok|okay|correct|confirm)\b`),
				regexp.MustCompile(`^\s*(好的|可以|没问题|确认|对的|是的)`),
			},
		},
		{
			Intent: types.IntentDenial,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^\s*(no|nope|not really|cancel|wrong)\b`),
				regexp.MustCompile(`^\s*(不|不是|不用|取消|不对)`),
			},
		},
		{
			Intent: types.IntentFarewell,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(bye|goodbye|see you|that's all|thanks,? bye)\b`),
				regexp.MustCompile(`再见|拜拜|就这样|没有了`),
			},
		},
		{
			Intent: types.IntentGreeting,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^\s*(hello|hi|hey|good (morning|afternoon|evening))\b`),
				regexp.MustCompile(`^\s*(你好|您好|早上好|下午好|晚上好|嗨)`),
			},
		},
	}
}

// DetectIntent resolves the utterance intent. Ordered pattern rules run
// first; on no match, one external classification call constrained to the
// closed intent set is issued and its single-token answer parsed. If neither
// step matches, the intent is UNDETERMINED. Never returns an error.
func (a *Analyzer) DetectIntent(ctx context.Context, text string) types.Intent {
	for _, rule := range a.intentRules {
		for _, pattern := range rule.Patterns {
			if pattern.MatchString(text) {
				return rule.Intent
			}
		}
	}

	out, ok := a.complete(ctx, "intent_classification", intentPrompt(text))
	if !ok {
		return types.IntentUndetermined
	}
	if intent, ok := parseIntent(out); ok {
		return intent
	}
	a.logger.Debug("unparseable intent classification", zap.String("answer", out))
	return types.IntentUndetermined
}

func intentPrompt(text string) string {
	names := make([]string, 0, len(types.KnownIntents()))
	for _, intent := range types.KnownIntents() {
		names = append(names, string(intent))
	}
	return fmt.Sprintf(
		"Classify the user utterance into exactly one of these intents:\n%s\n"+
			"Answer with the intent name only, nothing else.\n\nUtterance: %s",
		strings.Join(names, ", "), text)
}

// parseIntent accepts a single-token answer, tolerating case differences and
// surrounding punctuation but rejecting anything outside the closed set.
func parseIntent(answer string) (types.Intent, bool) {
	token := strings.ToUpper(strings.Trim(strings.TrimSpace(answer), `"'.,:`))
	for _, intent := range types.KnownIntents() {
		if token == string(intent) {
			return intent, true
		}
	}
	return types.IntentUndetermined, false
}
