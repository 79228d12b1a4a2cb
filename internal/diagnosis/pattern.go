package diagnosis

// PatternConfidence is the confidence reported for a pattern match.
const PatternConfidence = 0.8

// PatternDetector matches answers against the taxonomy's regex signals.
// A signal that also matches the correct answer is skipped, so phrasing the
// reference answer itself uses is never flagged.
type PatternDetector struct{}

func (d *PatternDetector) Name() string { return DetectorPattern }

func (d *PatternDetector) Detect(in *Input) *Detection {
	id := Detect(in.Topic, in.StudentAnswer, in.CorrectAnswer)
	if id == "" {
		return nil
	}
	return &Detection{
		MisconceptionID: id,
		Detector:        DetectorPattern,
		Confidence:      PatternConfidence,
	}
}

// Detect returns the first misconception whose signals match studentAnswer,
// or "" when none do. Misconceptions registered for topic are checked; a
// topic with none registered is checked against the whole taxonomy.
func Detect(topic, studentAnswer, correctAnswer string) string {
	if studentAnswer == "" {
		return ""
	}
	topic = NormalizeTopic(topic)
	candidates := byTopic[topic]
	if len(candidates) == 0 {
		candidates = ordered
	}

	for _, m := range candidates {
		for _, sig := range m.Signals {
			if !sig.appliesTo(topic) {
				continue
			}
			if !sig.re.MatchString(studentAnswer) {
				continue
			}
			if correctAnswer != "" && sig.re.MatchString(correctAnswer) {
				continue
			}
			return m.ID
		}
	}
	return ""
}
