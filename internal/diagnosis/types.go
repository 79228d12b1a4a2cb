package diagnosis

// Detector names recorded with every detection.
const (
	DetectorPattern = "pattern"
	DetectorLLM     = "llm"
)

// Input is a student's free-text answer for a topic.
type Input struct {
	Topic         string
	Question      string
	StudentAnswer string
	CorrectAnswer string
}

// Detection is an identified misconception.
type Detection struct {
	MisconceptionID string
	Detector        string  // pattern or llm
	Confidence      float64 // 0.0–1.0
	Reasoning       string  // LLM reasoning (empty for pattern matches)
}
