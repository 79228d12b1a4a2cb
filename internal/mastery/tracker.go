package mastery

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/abhisek/tutorpilot/internal/diagnosis"
	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/spacedrep"
)

// Tracker maintains one student's per-topic mastery, struggling set,
// misconceptions and review schedule.
//
// A Tracker is not safe for concurrent use. Estimate followed by Update is
// a read-modify-write; callers keep one update in flight per student.
type Tracker struct {
	studentID      string
	cfg            Config
	topics         map[string]*TopicMastery
	struggling     map[string]bool
	misconceptions map[string][]string
	schedule       *spacedrep.Scheduler

	now      func() time.Time
	logger   *slog.Logger
	observer func(MasteryChange)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithConfig overrides the default configuration. Invalid values fall back
// to the defaults.
func WithConfig(cfg Config) Option {
	return func(t *Tracker) {
		def := DefaultConfig()
		if cfg.Prior < 0 || cfg.Prior > 1 {
			cfg.Prior = def.Prior
		}
		if cfg.HalfLifeDays <= 0 {
			cfg.HalfLifeDays = def.HalfLifeDays
		}
		if cfg.HistoryCap < 1 {
			cfg.HistoryCap = def.HistoryCap
		}
		t.cfg = cfg
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logging.OrDiscard(l) }
}

// WithObserver registers a callback invoked after every Update.
func WithObserver(fn func(MasteryChange)) Option {
	return func(t *Tracker) { t.observer = fn }
}

// NewTracker creates an empty tracker for a student.
func NewTracker(studentID string, opts ...Option) *Tracker {
	t := &Tracker{
		studentID:      studentID,
		cfg:            DefaultConfig(),
		topics:         make(map[string]*TopicMastery),
		struggling:     make(map[string]bool),
		misconceptions: make(map[string][]string),
		schedule:       spacedrep.NewScheduler(),
		now:            time.Now,
		logger:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StudentID returns the student the tracker belongs to.
func (t *Tracker) StudentID() string { return t.studentID }

// Config returns the active configuration.
func (t *Tracker) Config() Config { return t.cfg }

func key(topic string) string {
	return diagnosis.NormalizeTopic(topic)
}

// Estimate returns the current mastery of topic in [0,1]. An unknown topic
// returns the prior; a topic with no interactions returns its stored value;
// otherwise the stored value is decayed by the forgetting curve.
func (t *Tracker) Estimate(topic string) float64 {
	tm := t.topics[key(topic)]
	if tm == nil {
		return t.cfg.Prior
	}
	if tm.LastInteraction == nil {
		return clamp01(tm.Mastery)
	}
	return Decay(tm.Mastery, t.now().Sub(*tm.LastInteraction), t.cfg.HalfLifeDays)
}

// Update applies an answer outcome to topic. Out-of-range confidence and
// hint levels are clamped. The review schedule is recomputed and the
// interaction appended to the bounded history.
func (t *Tracker) Update(topic string, outcome Outcome) MasteryChange {
	k := key(topic)
	now := t.now()
	o := outcome.normalized()

	fromState := t.TopicState(k)
	current := t.Estimate(k)
	next := nextMastery(current, o)

	tm := t.topics[k]
	if tm == nil {
		tm = &TopicMastery{Topic: k}
		t.topics[k] = tm
	}
	tm.Mastery = next
	at := now
	tm.LastInteraction = &at
	tm.History = append(tm.History, Interaction{
		At:         now,
		Correct:    o.Correct,
		Confidence: o.Confidence,
		HintLevel:  o.HintLevel,
		Before:     current,
		After:      next,
	})
	if over := len(tm.History) - t.cfg.HistoryCap; over > 0 {
		tm.History = slices.Delete(tm.History, 0, over)
	}

	switch {
	case next < StrugglingBelow:
		t.struggling[k] = true
	case next > RecoveredAbove:
		delete(t.struggling, k)
	}

	change := MasteryChange{
		StudentID:  t.studentID,
		Topic:      k,
		From:       current,
		To:         next,
		FromState:  fromState,
		ToState:    t.TopicState(k),
		Correct:    o.Correct,
		NextReview: t.ScheduleReview(k, next),
	}

	t.logger.Debug("mastery updated",
		"student", t.studentID,
		"topic", k,
		"from", current,
		"to", next,
		"state", change.ToState,
		"next_review", change.NextReview,
	)
	if t.observer != nil {
		t.observer(change)
	}
	return change
}

// TopicState derives the lifecycle state from the stored mastery, so only
// Update moves a topic between states.
func (t *Tracker) TopicState(topic string) TopicState {
	k := key(topic)
	tm := t.topics[k]
	switch {
	case tm == nil || (tm.LastInteraction == nil && len(tm.History) == 0):
		return StateUnknown
	case t.struggling[k]:
		return StateStruggling
	case tm.Mastery >= MasteredAt:
		return StateMastered
	default:
		return StateNormal
	}
}

// RecommendDifficulty maps the current mastery of topic to a difficulty.
func (t *Tracker) RecommendDifficulty(topic string) Difficulty {
	return DifficultyFor(t.Estimate(topic))
}

// ScheduleReview sets the next review of topic from mastery, replacing any
// earlier schedule, and returns the due date.
func (t *Tracker) ScheduleReview(topic string, mastery float64) time.Time {
	return t.schedule.Schedule(key(topic), clamp01(mastery), t.now())
}

// NextReview returns the scheduled review date for topic, if any.
func (t *Tracker) NextReview(topic string) (time.Time, bool) {
	rs := t.schedule.Get(key(topic))
	if rs == nil {
		return time.Time{}, false
	}
	return rs.NextReviewDate, true
}

// ReviewStatus returns the display status of topic's review, if scheduled.
func (t *Tracker) ReviewStatus(topic string) (spacedrep.ReviewStatus, bool) {
	rs := t.schedule.Get(key(topic))
	if rs == nil {
		return "", false
	}
	return rs.Status(t.now()), true
}

// ShouldReview reports whether topic has a schedule that is due now.
func (t *Tracker) ShouldReview(topic string) bool {
	return t.schedule.ShouldReview(key(topic), t.now())
}

// DueTopics returns topics due for review at now, most overdue first.
func (t *Tracker) DueTopics(now time.Time) []string {
	return t.schedule.Due(now)
}

// StrugglingTopics returns the struggling set, sorted.
func (t *Tracker) StrugglingTopics() []string {
	return slices.Sorted(maps.Keys(t.struggling))
}

// DetectMisconception matches a free-text answer against the misconception
// table. The first hit is recorded against topic and returned; "" means no
// match.
func (t *Tracker) DetectMisconception(topic, studentAnswer, correctAnswer string) string {
	id := diagnosis.Detect(topic, studentAnswer, correctAnswer)
	if id != "" {
		t.RecordMisconception(topic, id)
	}
	return id
}

// RecordMisconception adds id to topic's misconceptions. It reports false
// when id was already recorded.
func (t *Tracker) RecordMisconception(topic, id string) bool {
	k := key(topic)
	if id == "" || slices.Contains(t.misconceptions[k], id) {
		return false
	}
	t.misconceptions[k] = append(t.misconceptions[k], id)
	t.logger.Debug("misconception recorded", "student", t.studentID, "topic", k, "misconception", id)
	return true
}

// Misconceptions returns the misconceptions recorded for topic in detection
// order.
func (t *Tracker) Misconceptions(topic string) []string {
	return slices.Clone(t.misconceptions[key(topic)])
}

// Topics returns every tracked topic, sorted.
func (t *Tracker) Topics() []string {
	return slices.Sorted(maps.Keys(t.topics))
}

// Topic returns a copy of the tracked state for topic.
func (t *Tracker) Topic(topic string) (TopicMastery, bool) {
	tm := t.topics[key(topic)]
	if tm == nil {
		return TopicMastery{}, false
	}
	return tm.clone(), true
}
