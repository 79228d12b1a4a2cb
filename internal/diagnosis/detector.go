package diagnosis

// Detector is a local (non-LLM) misconception detector. It returns nil when
// it finds nothing.
type Detector interface {
	Name() string
	Detect(in *Input) *Detection
}

// DefaultDetectors returns detectors in priority order.
func DefaultDetectors() []Detector {
	return []Detector{&PatternDetector{}}
}

// RunDetectors executes detectors in order and returns the first hit.
func RunDetectors(detectors []Detector, in *Input) *Detection {
	for _, d := range detectors {
		if det := d.Detect(in); det != nil {
			return det
		}
	}
	return nil
}
