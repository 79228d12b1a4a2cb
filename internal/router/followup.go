package router

// followUp is the result of follow-up detection.
type followUp struct {
	label      Label
	frustrated bool
}

// previousLabel returns the label of the most recent history turn that
// carries one the profile knows.
func (p *compiledProfile) previousLabel(history []Turn) (Label, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i].Mode
		if m == "" {
			continue
		}
		for _, l := range p.Labels {
			if l == m {
				return m, true
			}
		}
		return "", false
	}
	return "", false
}

func hasAssistantTurn(history []Turn) bool {
	for _, t := range history {
		if t.Role == RoleAssistant {
			return true
		}
	}
	return false
}

// detectFollowUp decides whether the query continues the previous turn.
// A strong keyword winner always overrides continuity.
func (p *compiledProfile) detectFollowUp(s signals, history []Turn) (followUp, bool) {
	prev, ok := p.previousLabel(history)
	if !ok {
		return followUp{}, false
	}
	if _, strong := p.strongWinner(s); strong {
		return followUp{}, false
	}

	if hasAssistantTurn(history) && (match(p.negation, s.text) || match(p.confusion, s.text)) {
		return followUp{label: prev, frustrated: true}, true
	}

	switch {
	case match(p.continuation, s.text):
	case len(s.topics) == 0 && match(p.anaphora, s.text):
	case len(s.topics) == 0 && p.primaryHits(s) == 0 && s.words <= p.FollowUp.MaxShortWords:
	default:
		return followUp{}, false
	}
	return followUp{label: prev}, true
}
