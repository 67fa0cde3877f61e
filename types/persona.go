package types

// Persona configures the voice of the assistant. Slider values live in [0,1];
// out-of-range values are clamped by the consumer, not rejected here.
type Persona struct {
	Name  string `json:"name" yaml:"name"`
	Style string `json:"style" yaml:"style"`

	// Style sliders.
	Empathy   float64 `json:"empathy" yaml:"empathy"`
	Formality float64 `json:"formality" yaml:"formality"`
	Humor     float64 `json:"humor" yaml:"humor"`
	Patience  float64 `json:"patience" yaml:"patience"`
	Detail    float64 `json:"detail" yaml:"detail"`

	// Languages the persona is allowed to answer in, e.g. ["zh", "en"].
	Languages []string `json:"languages" yaml:"languages"`

	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Limitations  []string `json:"limitations,omitempty" yaml:"limitations,omitempty"`
}

// DefaultPersona returns a balanced service-assistant persona.
func DefaultPersona() Persona {
	return Persona{
		Name:      "小慧",
		Style:     "专业、耐心的客服助理",
		Empathy:   0.8,
		Formality: 0.6,
		Humor:     0.3,
		Patience:  0.9,
		Detail:    0.6,
		Languages: []string{"zh", "en"},
		Capabilities: []string{
			"预约挂号", "问题受理", "信息查询", "紧急情况转接",
		},
		Limitations: []string{
			"不提供医疗诊断", "不处理支付", "不承诺未经确认的时间",
		},
	}
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
