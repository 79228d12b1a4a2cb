package router

import (
	"sort"
	"strings"
	"unicode"
)

// signals are the local features extracted from one query.
type signals struct {
	text   string
	words  int
	scores map[Label]int
	topics []string
}

// normalize lowercases text and collapses whitespace. The result is the
// cache key input.
func normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// meaningful reports whether text has at least one letter or digit.
func meaningful(text string) bool {
	return strings.IndexFunc(text, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

// extract counts keyword hits per label and collects topic terms in order
// of appearance. Each keyword pattern counts at most once.
func (p *compiledProfile) extract(text string) signals {
	s := signals{
		text:   text,
		words:  len(strings.Fields(text)),
		scores: make(map[Label]int, len(p.keywords)),
	}
	for label, res := range p.keywords {
		n := 0
		for _, re := range res {
			if re.MatchString(text) {
				n++
			}
		}
		s.scores[label] = n
	}

	type hit struct {
		name string
		at   int
	}
	var hits []hit
	for _, t := range p.topics {
		if loc := t.re.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{name: t.name, at: loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })
	for _, h := range hits {
		s.topics = append(s.topics, h.name)
	}
	return s
}

// strongWinner returns the primary label whose count is at least two and
// strictly above the other primary count.
func (p *compiledProfile) strongWinner(s signals) (Label, bool) {
	a, b := p.Primary[0], p.Primary[1]
	ca, cb := s.scores[a], s.scores[b]
	switch {
	case ca >= 2 && ca > cb:
		return a, true
	case cb >= 2 && cb > ca:
		return b, true
	}
	return "", false
}

// primaryHits is the total keyword count over both primary labels.
func (p *compiledProfile) primaryHits(s signals) int {
	return s.scores[p.Primary[0]] + s.scores[p.Primary[1]]
}

// disambiguate applies the topic rules in order. A rule fires when a topic
// is present and its keyword category has a hit not outscored by any other
// primary category; the earlier rule wins a tie.
func (p *compiledProfile) disambiguate(s signals) (DisambiguationRule, bool) {
	if len(s.topics) == 0 {
		return DisambiguationRule{}, false
	}
	for _, r := range p.Disambiguation {
		n := s.scores[r.Keyword]
		if n == 0 {
			continue
		}
		outscored := false
		for _, other := range p.Primary {
			if other != r.Keyword && s.scores[other] > n {
				outscored = true
			}
		}
		if !outscored {
			return r, true
		}
	}
	return DisambiguationRule{}, false
}

// hardRule returns the first hard rule matching the query.
func (p *compiledProfile) hardRule(s signals) (compiledRule, bool) {
	for _, r := range p.rules {
		if r.NoTopic && len(s.topics) > 0 {
			continue
		}
		if r.re.MatchString(s.text) {
			return r, true
		}
	}
	return compiledRule{}, false
}

// deterministic is the non-LLM answer of last resort. It cannot fail.
func (p *compiledProfile) deterministic(s signals) (Label, float64) {
	fb := p.Fallback
	if len(s.topics) > 0 || s.scores[fb.Preferred] > 0 {
		return fb.Preferred, fb.PreferredConfidence
	}
	return fb.Default, fb.DefaultConfidence
}
