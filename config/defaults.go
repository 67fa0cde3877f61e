package config

import "time"

// DefaultConfig 返回带默认值的配置
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 2,
			RetryDelay: 500 * time.Millisecond,
			RateLimit:  0,
			RateBurst:  1,
		},
		Persona: PersonaConfig{
			Name:      "小慧",
			Style:     "专业、耐心的客服助理",
			Empathy:   0.8,
			Formality: 0.6,
			Humor:     0.3,
			Patience:  0.9,
			Detail:    0.6,
			Languages: []string{"zh", "en"},
		},
		NLU: NLUConfig{
			Merge:           "prefer_external",
			DefaultLanguage: "zh",
		},
		Respond: RespondConfig{
			HistoryTokenBudget: 1024,
			Encoding:           "cl100k_base",
			HumorProbability:   0.3,
		},
		Session: SessionConfig{
			Backend: "memory",
			TTL:     30 * time.Minute,
		},
		Flows: FlowsConfig{
			Builtin: true,
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stdout"},
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "dialogflow",
		},
	}
}
