package diagnosis

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Misconception is a named wrong-understanding pattern.
type Misconception struct {
	ID          string
	Topics      []string
	Label       string
	Description string
	Examples    []string
	Signals     []Signal
}

// Signal is one answer pattern for a misconception. A signal with an empty
// Topic applies to every topic.
type Signal struct {
	Topic   string
	Pattern string

	re *regexp.Regexp
}

// appliesTo reports whether the signal should be checked for topic.
func (s Signal) appliesTo(topic string) bool {
	return s.Topic == "" || s.Topic == topic
}

// registry is the package-level misconception registry, keyed by ID.
var registry map[string]*Misconception

// ordered keeps seed order so detection is deterministic.
var ordered []*Misconception

// byTopic indexes misconceptions by normalized topic.
var byTopic map[string][]*Misconception

func init() {
	registry = make(map[string]*Misconception, len(seedMisconceptions))
	byTopic = make(map[string][]*Misconception)
	for i := range seedMisconceptions {
		m := &seedMisconceptions[i]
		for j := range m.Signals {
			sig := &m.Signals[j]
			sig.Topic = NormalizeTopic(sig.Topic)
			re, err := regexp.Compile("(?i)" + sig.Pattern)
			if err != nil {
				panic(fmt.Sprintf("misconception %s: bad pattern %q: %v", m.ID, sig.Pattern, err))
			}
			sig.re = re
		}
		registry[m.ID] = m
		ordered = append(ordered, m)
		for _, topic := range m.Topics {
			topic = NormalizeTopic(topic)
			byTopic[topic] = append(byTopic[topic], m)
		}
	}
}

// NormalizeTopic lowercases a topic and joins words with hyphens, so
// "Depth First Search" and "depth_first_search" share a key.
func NormalizeTopic(topic string) string {
	fields := strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '\t'
	})
	return strings.Join(fields, "-")
}

// GetMisconception returns a misconception by ID, or nil if not found.
func GetMisconception(id string) *Misconception {
	return registry[id]
}

// MisconceptionsByTopic returns the misconceptions registered for a topic.
func MisconceptionsByTopic(topic string) []*Misconception {
	return byTopic[NormalizeTopic(topic)]
}

// AllMisconceptions returns every misconception in seed order.
func AllMisconceptions() []*Misconception {
	result := make([]*Misconception, len(ordered))
	copy(result, ordered)
	return result
}

// Topics returns every topic with at least one registered misconception,
// sorted.
func Topics() []string {
	return slices.Sorted(maps.Keys(byTopic))
}
