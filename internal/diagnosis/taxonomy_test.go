package diagnosis

import (
	"regexp"
	"slices"
	"testing"
)

func TestSeedTaxonomyIsWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, m := range AllMisconceptions() {
		if seen[m.ID] {
			t.Errorf("duplicate misconception id %q", m.ID)
		}
		seen[m.ID] = true

		if m.Label == "" || m.Description == "" {
			t.Errorf("%s: label and description are required", m.ID)
		}
		if len(m.Topics) == 0 {
			t.Errorf("%s: no topics", m.ID)
		}
		if len(m.Signals) == 0 {
			t.Errorf("%s: no signals", m.ID)
		}
		for _, sig := range m.Signals {
			if sig.re == nil {
				t.Errorf("%s: signal %q not compiled", m.ID, sig.Pattern)
			}
			if sig.Topic != "" && !slices.Contains(normalizedTopics(m), sig.Topic) {
				t.Errorf("%s: signal topic %q is not one of the misconception's topics", m.ID, sig.Topic)
			}
		}
	}
}

func normalizedTopics(m *Misconception) []string {
	out := make([]string, len(m.Topics))
	for i, topic := range m.Topics {
		out[i] = NormalizeTopic(topic)
	}
	return out
}

func TestExamplesTriggerTheirMisconception(t *testing.T) {
	for _, m := range AllMisconceptions() {
		for _, ex := range m.Examples {
			found := false
			for _, topic := range m.Topics {
				if Detect(topic, ex, "") == m.ID {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("example %q not detected as %q under any of its topics", ex, m.ID)
			}
		}
	}
}

func TestGetMisconception(t *testing.T) {
	m := GetMisconception("dfs-bfs-confusion")
	if m == nil {
		t.Fatal("GetMisconception(dfs-bfs-confusion) returned nil")
	}
	if !slices.Contains(m.Topics, "dfs") {
		t.Errorf("topics = %v, want dfs included", m.Topics)
	}
	if GetMisconception("nonexistent") != nil {
		t.Error("GetMisconception(nonexistent) should be nil")
	}
}

func TestMisconceptionsByTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"dfs", "dfs-bfs-confusion"},
		{"Depth First Search", "dfs-bfs-confusion"},
		{"supervised_learning", "supervised-unsupervised-confusion"},
		{"precision", "precision-recall-confusion"},
	}
	for _, tt := range tests {
		ms := MisconceptionsByTopic(tt.topic)
		ids := make([]string, len(ms))
		for i, m := range ms {
			ids[i] = m.ID
		}
		if !slices.Contains(ids, tt.want) {
			t.Errorf("MisconceptionsByTopic(%q) = %v, want %q included", tt.topic, ids, tt.want)
		}
	}
	if len(MisconceptionsByTopic("poetry")) != 0 {
		t.Error("unknown topic should have no misconceptions")
	}
}

func TestNormalizeTopic(t *testing.T) {
	tests := map[string]string{
		"DFS":                  "dfs",
		"Gradient Descent":     "gradient-descent",
		"  gradient_descent  ": "gradient-descent",
		"big--o":               "big-o",
		"":                     "",
	}
	for in, want := range tests {
		if got := NormalizeTopic(in); got != want {
			t.Errorf("NormalizeTopic(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTopicsSorted(t *testing.T) {
	topics := Topics()
	if !slices.IsSorted(topics) {
		t.Errorf("Topics() not sorted: %v", topics)
	}
	if !slices.Contains(topics, "gradient-descent") {
		t.Error("expected gradient-descent topic")
	}
}

func TestSignalPatternsCompile(t *testing.T) {
	for _, m := range seedMisconceptions {
		for _, sig := range m.Signals {
			if _, err := regexp.Compile("(?i)" + sig.Pattern); err != nil {
				t.Errorf("%s: %v", m.ID, err)
			}
		}
	}
}
