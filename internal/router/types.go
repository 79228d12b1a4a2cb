package router

import (
	"maps"
	"slices"
)

// Label is a routing outcome. The modes profile decides between
// LabelNavigate and LabelEducate; the tasks profile between the four task
// labels.
type Label string

const (
	LabelNavigate Label = "navigate"
	LabelEducate  Label = "educate"

	LabelExplain Label = "explain"
	LabelSolve   Label = "solve"
	LabelChat    Label = "chat"
	LabelReject  Label = "reject"
)

// knownLabels is the closed set a profile may use.
var knownLabels = []Label{
	LabelNavigate, LabelEducate,
	LabelExplain, LabelSolve, LabelChat, LabelReject,
}

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return slices.Contains(knownLabels, l)
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleStudent   Role = "student"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the conversation history. Mode is the label the
// turn was routed to, when known.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Mode    Label  `json:"mode,omitempty"`
}

// Rule identifiers recorded in Decision.Rules, in evaluation order.
const (
	RuleEmpty      = "empty-input"
	RuleCache      = "cache"
	RuleHard       = "hard-rule"
	RuleFollowUp   = "follow-up"
	RuleFrustrated = "frustrated"
	RuleKeywords   = "keyword-majority"
	RuleTopic      = "topic-disambiguation"
	RuleLLM        = "llm"
	RuleFallback   = "deterministic-fallback"
	RuleConfirm    = "confirm-threshold"
)

// Decision is the outcome of one Classify call.
type Decision struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`

	// Rules lists the rule identifiers that fired, in order. The last
	// entry other than RuleConfirm and RuleCache decided the label.
	Rules []string `json:"rules"`

	IsFollowUp    bool `json:"is_follow_up"`
	ShouldConfirm bool `json:"should_confirm"`

	// Frustrated marks a follow-up that signals confusion with the previous
	// answer; the reply should be an ultra-short clarification.
	Frustrated bool `json:"frustrated,omitempty"`

	Topics []string      `json:"topics,omitempty"`
	Scores map[Label]int `json:"scores,omitempty"`

	Cached   bool `json:"cached,omitempty"`
	Degraded bool `json:"degraded,omitempty"`
	UsedLLM  bool `json:"used_llm,omitempty"`

	Profile string `json:"profile"`

	// Payload is set by the tasks profile only.
	Payload TaskPayload `json:"-"`
}

// DecidingRule returns the rule that chose the label.
func (d Decision) DecidingRule() string {
	for i := len(d.Rules) - 1; i >= 0; i-- {
		switch d.Rules[i] {
		case RuleConfirm, RuleCache:
			continue
		}
		return d.Rules[i]
	}
	return ""
}

// Topic returns the first matched topic term, or "".
func (d Decision) Topic() string {
	if len(d.Topics) == 0 {
		return ""
	}
	return d.Topics[0]
}

func (d Decision) clone() Decision {
	cp := d
	cp.Rules = slices.Clone(d.Rules)
	cp.Topics = slices.Clone(d.Topics)
	if d.Scores != nil {
		cp.Scores = maps.Clone(d.Scores)
	}
	return cp
}
