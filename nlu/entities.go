package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// EntityRule extracts one named field with ordered patterns; the first
// pattern with a match wins. A rule with a capture group yields group 1,
// otherwise the whole match.
type EntityRule struct {
	Field    string
	Patterns []*regexp.Regexp
}

func defaultEntityRules() []EntityRule {
	return []EntityRule{
		{
			Field: "phone",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?:\+?86[-\s]?)?(1[3-9]\d{9})`),
				regexp.MustCompile(`\b(\d{3}[-\s]?\d{3,4}[-\s]?\d{4})\b`),
			},
		},
		{
			Field: "name",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`我叫([\p{Han}]{2,4})`),
				regexp.MustCompile(`我是([\p{Han}]{2,4})`),
				regexp.MustCompile(`(?i)(?:my name is|i am|i'm|call me)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`),
			},
		},
		{
			Field: "age",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(\d{1,3})\s*岁`),
				regexp.MustCompile(`(?i)(\d{1,3})\s*years?\s*old`),
			},
		},
		{
			Field: "date",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
				regexp.MustCompile(`\d{1,2}月\d{1,2}日?`),
				regexp.MustCompile(`今天|明天|后天|大后天`),
				regexp.MustCompile(`(?i)\b(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
			},
		},
		{
			Field: "time",
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\d{1,2}[:：]\d{2}`),
				regexp.MustCompile(`(?:上午|下午|中午|晚上)\s*\d{0,2}\s*点?`),
				regexp.MustCompile(`(?i)\b(\d{1,2}\s*(?:am|pm))\b`),
				regexp.MustCompile(`(?i)\b(morning|afternoon|evening|noon)\b`),
			},
		},
	}
}

// ExtractEntities builds a partial entity map from field-specific pattern
// rules, then issues one external extraction call requesting a fixed JSON
// entity schema and merges its fields per the configured precedence policy.
// Never returns an error.
func (a *Analyzer) ExtractEntities(ctx context.Context, text string) map[string]any {
	entities := make(map[string]any)
	for _, rule := range a.entityRules {
		for _, pattern := range rule.Patterns {
			m := pattern.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			value := m[0]
			if len(m) > 1 && m[1] != "" {
				value = m[1]
			}
			entities[rule.Field] = strings.TrimSpace(value)
			break
		}
	}

	out, ok := a.complete(ctx, "entity_extraction", entityPrompt(text))
	if !ok {
		return entities
	}
	external, err := parseEntityJSON(out)
	if err != nil {
		a.logger.Debug("unparseable entity extraction", zap.Error(err))
		return entities
	}
	for key, value := range external {
		if _, exists := entities[key]; exists && a.config.Merge == PreferPattern {
			continue
		}
		entities[key] = value
	}
	return entities
}

func entityPrompt(text string) string {
	return "Extract entities from the utterance. Reply with a single JSON object " +
		`using exactly these keys when present: "phone", "name", "age", "date", "time". ` +
		"Omit keys you cannot find. No prose.\n\nUtterance: " + text
}

// parseEntityJSON locates the JSON object inside a possibly chatty answer and
// decodes it, dropping null and empty-string fields.
func parseEntityJSON(answer string) (map[string]any, error) {
	start := strings.Index(answer, "{")
	end := strings.LastIndex(answer, "}")
	if start < 0 || end <= start {
		return nil, errNoJSONObject
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(answer[start:end+1]), &raw); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raw))
	for key, value := range raw {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		out[key] = value
	}
	return out, nil
}

var errNoJSONObject = errors.New("no JSON object in answer")
