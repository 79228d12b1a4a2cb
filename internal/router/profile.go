package router

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/tutorpilot/internal/llm"
)

// Built-in profile names.
const (
	ProfileModes = "modes"
	ProfileTasks = "tasks"
)

// SupportedProfileMajor is the profile format major version this build
// reads.
const SupportedProfileMajor = "v1"

//go:embed profiles/*.yaml
var builtinProfiles embed.FS

// Profile is the data that drives classification: labels, keyword tables,
// topic vocabulary and the confidences each rule assigns.
type Profile struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Labels []Label `yaml:"labels"`
	// Primary names the two competing keyword categories scored against
	// each other.
	Primary    []Label `yaml:"primary"`
	EmptyLabel Label   `yaml:"empty_label"`

	// Descriptions are shown to the LLM fallback classifier.
	Descriptions map[Label]string `yaml:"descriptions"`

	Keywords map[Label][]string `yaml:"keywords"`
	Topics   []string           `yaml:"topics"`

	Rules          []HardRule           `yaml:"rules"`
	Disambiguation []DisambiguationRule `yaml:"disambiguation"`
	Fallback       FallbackRule         `yaml:"fallback"`
	FollowUp       FollowUpPatterns     `yaml:"follow_up"`
}

// HardRule assigns Label when any pattern matches. NoTopic restricts the
// rule to queries that mention no topic term.
type HardRule struct {
	Name       string   `yaml:"name"`
	Label      Label    `yaml:"label"`
	Confidence float64  `yaml:"confidence"`
	NoTopic    bool     `yaml:"no_topic"`
	Patterns   []string `yaml:"patterns"`
}

// DisambiguationRule resolves Label when a topic term co-occurs with at
// least one Keyword-category hit that is not outscored by the other
// primary category.
type DisambiguationRule struct {
	Label      Label   `yaml:"label"`
	Keyword    Label   `yaml:"keyword"`
	Confidence float64 `yaml:"confidence"`
}

// FallbackRule is the non-LLM answer used when the LLM cannot decide.
// Preferred wins when a topic or a Preferred keyword is present.
type FallbackRule struct {
	Preferred           Label   `yaml:"preferred"`
	PreferredConfidence float64 `yaml:"preferred_confidence"`
	Default             Label   `yaml:"default"`
	DefaultConfidence   float64 `yaml:"default_confidence"`
}

// FollowUpPatterns configures follow-up and frustration detection.
type FollowUpPatterns struct {
	Continuation  []string `yaml:"continuation"`
	Anaphora      []string `yaml:"anaphora"`
	MaxShortWords int      `yaml:"max_short_words"`
	Negation      []string `yaml:"negation"`
	Confusion     []string `yaml:"confusion"`
}

// BuiltinProfile returns a copy of a built-in profile.
func BuiltinProfile(name string) (*Profile, error) {
	data, err := builtinProfiles.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return ParseProfile(data)
}

// LoadProfileFile reads and validates a profile from a YAML file.
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile for structural errors. Pattern syntax is
// checked when the profile is compiled.
func (p *Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	v := p.Version
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	switch {
	case !semver.IsValid(v):
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", p.Version))
	case semver.Major(v) != SupportedProfileMajor:
		errs = append(errs, fmt.Errorf("version %s is not supported (want %s.x)", p.Version, SupportedProfileMajor))
	}

	if len(p.Labels) == 0 {
		errs = append(errs, errors.New("labels are required"))
	}
	for _, l := range p.Labels {
		if !l.Valid() {
			errs = append(errs, fmt.Errorf("unknown label %q", l))
		}
	}
	has := func(l Label) bool { return slices.Contains(p.Labels, l) }
	check := func(field string, l Label) {
		if !has(l) {
			errs = append(errs, fmt.Errorf("%s: label %q is not in labels", field, l))
		}
	}

	if len(p.Primary) != 2 || p.Primary[0] == p.Primary[1] {
		errs = append(errs, errors.New("primary must name two distinct labels"))
	}
	for _, l := range p.Primary {
		check("primary", l)
		if len(p.Keywords[l]) == 0 {
			errs = append(errs, fmt.Errorf("keywords: primary label %q has no keywords", l))
		}
	}
	check("empty_label", p.EmptyLabel)
	for l := range p.Keywords {
		check("keywords", l)
	}
	for i, r := range p.Rules {
		check(fmt.Sprintf("rules[%d]", i), r.Label)
		if len(r.Patterns) == 0 {
			errs = append(errs, fmt.Errorf("rules[%d]: patterns are required", i))
		}
		errs = append(errs, checkConfidence(fmt.Sprintf("rules[%d]", i), r.Confidence)...)
	}
	for i, r := range p.Disambiguation {
		check(fmt.Sprintf("disambiguation[%d]", i), r.Label)
		if !slices.Contains(p.Primary, r.Keyword) {
			errs = append(errs, fmt.Errorf("disambiguation[%d]: keyword %q is not a primary label", i, r.Keyword))
		}
		errs = append(errs, checkConfidence(fmt.Sprintf("disambiguation[%d]", i), r.Confidence)...)
	}
	check("fallback.preferred", p.Fallback.Preferred)
	check("fallback.default", p.Fallback.Default)
	errs = append(errs, checkConfidence("fallback.preferred_confidence", p.Fallback.PreferredConfidence)...)
	errs = append(errs, checkConfidence("fallback.default_confidence", p.Fallback.DefaultConfidence)...)
	if p.FollowUp.MaxShortWords < 0 {
		errs = append(errs, errors.New("follow_up.max_short_words must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid profile %q: %w", p.Name, errors.Join(errs...))
	}
	return nil
}

func checkConfidence(field string, c float64) []error {
	if c < 0 || c > 1 {
		return []error{fmt.Errorf("%s: confidence %v is outside [0,1]", field, c)}
	}
	return nil
}

// compiledProfile is a Profile with every pattern compiled.
type compiledProfile struct {
	*Profile

	keywords map[Label][]*regexp.Regexp
	topics   []topicTerm
	rules    []compiledRule

	continuation *regexp.Regexp
	anaphora     *regexp.Regexp
	negation     *regexp.Regexp
	confusion    *regexp.Regexp

	schema *llm.Schema
}

type topicTerm struct {
	name string
	re   *regexp.Regexp
}

type compiledRule struct {
	HardRule
	re *regexp.Regexp
}

func compileProfile(p *Profile) (*compiledProfile, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cp := &compiledProfile{
		Profile:  p,
		keywords: make(map[Label][]*regexp.Regexp, len(p.Keywords)),
	}

	var err error
	for label, patterns := range p.Keywords {
		for _, pat := range patterns {
			re, cerr := wordRegexp(pat)
			if cerr != nil {
				return nil, fmt.Errorf("profile %s: keyword %q: %w", p.Name, pat, cerr)
			}
			cp.keywords[label] = append(cp.keywords[label], re)
		}
	}
	for _, term := range p.Topics {
		cp.topics = append(cp.topics, topicTerm{name: term, re: termRegexp(term)})
	}
	for _, r := range p.Rules {
		re, cerr := alternation(r.Patterns)
		if cerr != nil {
			return nil, fmt.Errorf("profile %s: rule %s: %w", p.Name, r.Name, cerr)
		}
		cp.rules = append(cp.rules, compiledRule{HardRule: r, re: re})
	}

	fu := p.FollowUp
	if cp.continuation, err = alternation(fu.Continuation); err != nil {
		return nil, fmt.Errorf("profile %s: follow_up.continuation: %w", p.Name, err)
	}
	if cp.anaphora, err = alternation(fu.Anaphora); err != nil {
		return nil, fmt.Errorf("profile %s: follow_up.anaphora: %w", p.Name, err)
	}
	if cp.confusion, err = alternation(fu.Confusion); err != nil {
		return nil, fmt.Errorf("profile %s: follow_up.confusion: %w", p.Name, err)
	}
	if len(fu.Negation) > 0 {
		// A negation only counts as the whole utterance.
		cp.negation, err = regexp.Compile(`(?i)^(?:` + strings.Join(fu.Negation, "|") + `)[\s.!?]*$`)
		if err != nil {
			return nil, fmt.Errorf("profile %s: follow_up.negation: %w", p.Name, err)
		}
	}

	cp.schema = routingSchema(p)
	return cp, nil
}

// wordRegexp compiles a case-insensitive pattern anchored on word
// boundaries.
func wordRegexp(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)\b(?:` + pattern + `)\b`)
}

// alternation joins patterns into one word-bounded regexp. It returns nil
// for an empty list.
func alternation(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return wordRegexp(strings.Join(patterns, "|"))
}

// termRegexp matches a plain topic term. Spaces and hyphens are
// interchangeable and a plural suffix is accepted.
func termRegexp(term string) *regexp.Regexp {
	words := strings.FieldsFunc(strings.ToLower(term), func(r rune) bool { return r == ' ' || r == '-' })
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `[\s-]+`) + `(?:s|es)?\b`)
}

// match tests an optional compiled regexp.
func match(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}
