package respond

import "github.com/BaSui01/dialogflow/types"

// Kind is the response category picked before generation.
type Kind string

const (
	KindGreeting    Kind = "greeting"
	KindQuestion    Kind = "question_asking"
	KindInformation Kind = "information_providing"
	KindClarify     Kind = "clarification"
	KindConfirm     Kind = "confirmation"
	KindFarewell    Kind = "farewell"
	KindEmpathetic  Kind = "empathetic"
	KindEscalation  Kind = "escalation"
)

// templateKey normalizes a detected language to one of the two template
// locales. Mixed-script input renders from the primary locale; the mixing
// pass reintroduces the secondary script afterwards.
func templateKey(language string) string {
	if language == "en" {
		return "en"
	}
	return "zh"
}

// templates are the static fallback replies, keyed (kind, locale). Named
// placeholders are substituted from the turn's variable bag.
var templates = map[Kind]map[string]string{
	KindGreeting: {
		"zh": "您好，我是{persona}，很高兴为您服务。请问有什么可以帮您？",
		"en": "Hello, this is {persona}. How can I help you today?",
	},
	KindQuestion: {
		"zh": "{question}",
		"en": "{question}",
	},
	KindInformation: {
		"zh": "为您查询到以下信息：{knowledge}",
		"en": "Here is what I found: {knowledge}",
	},
	KindClarify: {
		"zh": "不好意思，我没有完全理解。您是想{question}吗？",
		"en": "Sorry, I did not quite catch that. Did you mean {question}?",
	},
	KindConfirm: {
		"zh": "好的，已经为您办理完成。{summary}",
		"en": "All set, that has been taken care of. {summary}",
	},
	KindFarewell: {
		"zh": "感谢您的咨询，再见，祝您一切顺利。",
		"en": "Thank you for reaching out. Goodbye and take care.",
	},
	KindEmpathetic: {
		"zh": "我理解您的感受，我们一起来解决这个问题。{question}",
		"en": "I understand how you feel. Let's work through this together. {question}",
	},
	KindEscalation: {
		"zh": "情况紧急，我马上为您转接人工专员，请保持在线。",
		"en": "This is urgent. I am connecting you to a human specialist right now, please stay with me.",
	},
}

// apologies are the terminal fallback when even template rendering has
// nothing to say.
var apologies = map[string]string{
	"zh": "非常抱歉，系统暂时繁忙，请稍后再试。",
	"en": "I'm very sorry, the service is temporarily unavailable. Please try again shortly.",
}

// empathyPrefixes open a reply when the persona's empathy slider is high and
// the user's emotion is negative. Keyed per emotion so the opener matches
// what the user is feeling.
var empathyPrefixes = map[string]map[string]string{
	types.EmotionAngry: {
		"zh": "非常抱歉给您带来了不愉快，",
		"en": "I'm really sorry for the frustration this has caused. ",
	},
	types.EmotionFrustrated: {
		"zh": "让您费心了，实在抱歉，",
		"en": "I'm sorry this has been such a hassle. ",
	},
	types.EmotionWorried: {
		"zh": "请您不要太担心，",
		"en": "Please don't worry too much. ",
	},
	types.EmotionSad: {
		"zh": "听到这些我很难过，",
		"en": "I'm sorry to hear that. ",
	},
}

// emotionPhrases is the fixed emotion-keyed prefix stage at the end of the
// pipeline. Only non-negative emotions carry one; negative emotions are
// already handled by the empathy stage.
var emotionPhrases = map[string]map[string]string{
	types.EmotionHappy: {
		"zh": "太好了！",
		"en": "Great! ",
	},
}

// humorSuffixes is the light-humor tail appended at low probability.
var humorSuffixes = map[string][]string{
	"zh": {
		"（放心，我今天状态很好。）",
		"（这个我拿手。）",
	},
	"en": {
		"(Don't worry, I've had my coffee today.)",
		"(This one's my specialty.)",
	},
}

// formalPairs maps casual wording to formal wording per locale; casualPairs
// is the reverse direction. Applied by the formality stage.
var formalPairs = map[string][][2]string{
	"zh": {
		{"嗯", "好的"},
		{"没问题", "当然可以"},
		{"搞定", "已处理完成"},
	},
	"en": {
		{"ok", "certainly"},
		{"yeah", "yes"},
		{"thanks", "thank you"},
	},
}

var casualPairs = map[string][][2]string{
	"zh": {
		{"您", "你"},
		{"请问", ""},
	},
	"en": {
		{"certainly", "sure"},
		{"thank you", "thanks"},
	},
}

// connectors lists discourse connector terms in both scripts. The
// language-mixing pass switches a connector's script according to the
// selected mix mode; content words never switch.
var connectors = [][2]string{
	{"好的", "OK"},
	{"没问题", "No problem"},
	{"谢谢", "Thanks"},
	{"请稍等", "One moment"},
	{"对了", "By the way"},
}

// followUps are intent-keyed suggestion lists, localized, capped at three by
// the caller.
var followUps = map[types.Intent]map[string][]string{
	types.IntentAppointmentBooking: {
		"zh": {"需要修改预约时间吗？", "需要查看出诊安排吗？", "需要预约提醒吗？"},
		"en": {"Would you like to reschedule?", "Want to see the clinic schedule?", "Should I set a reminder?"},
	},
	types.IntentIssueReport: {
		"zh": {"问题解决了吗？", "需要人工跟进吗？", "需要查看常见问题吗？"},
		"en": {"Is the issue resolved?", "Would you like a human follow-up?", "Want to browse common fixes?"},
	},
	types.IntentInformationRequest: {
		"zh": {"还有其他想了解的吗？", "需要更详细的说明吗？", "需要相关链接吗？"},
		"en": {"Anything else you'd like to know?", "Want more detail?", "Need related links?"},
	},
	types.IntentEmergency: {
		"zh": {"需要我保持在线吗？", "需要通知紧急联系人吗？"},
		"en": {"Should I stay on the line?", "Should I notify an emergency contact?"},
	},
}
