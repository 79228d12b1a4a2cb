// Package tutor composes the router, the mastery tracker and misconception
// diagnosis into the per-utterance tutoring pipeline.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/tutorpilot/internal/diagnosis"
	"github.com/abhisek/tutorpilot/internal/logging"
	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/metrics"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/store"
)

// Defaults for Deps fields left zero.
const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultSnapshotsKept = 10
)

// Deps wires a Service. Router is required; everything else is optional.
type Deps struct {
	Router    *router.Router
	Diagnosis *diagnosis.Service
	Snapshots store.SnapshotRepo
	Events    store.EventRepo
	Metrics   *metrics.Manager
	Mastery   mastery.Config
	Logger    *slog.Logger

	// Clock defaults to time.Now.
	Clock func() time.Time
	// StoreTimeout bounds each persistence call.
	StoreTimeout time.Duration
	// SnapshotsKept is how many snapshots per student survive pruning.
	SnapshotsKept int
}

// Service runs the tutoring pipeline. Student models are loaded lazily from
// the snapshot repo and kept in memory; calls for the same student are
// serialized. It is safe for concurrent use.
type Service struct {
	deps   Deps
	logger *slog.Logger

	mu       sync.Mutex
	students map[string]*student
}

type student struct {
	mu        sync.Mutex
	sessionID string
	tracker   *mastery.Tracker
	lastTopic string
}

// NewService creates a Service.
func NewService(d Deps) (*Service, error) {
	if d.Router == nil {
		return nil, errors.New("tutor: router is required")
	}
	d.Logger = logging.OrDiscard(d.Logger)
	if d.Diagnosis == nil {
		d.Diagnosis = diagnosis.NewService(nil, d.Logger)
	}
	if d.Mastery == (mastery.Config{}) {
		d.Mastery = mastery.DefaultConfig()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = DefaultStoreTimeout
	}
	if d.SnapshotsKept <= 0 {
		d.SnapshotsKept = DefaultSnapshotsKept
	}
	return &Service{
		deps:     d,
		logger:   d.Logger,
		students: make(map[string]*student),
	}, nil
}

// Respond classifies utterance and builds the reply plan from the
// student's mastery of the topic.
func (s *Service) Respond(ctx context.Context, studentID, utterance string, history []router.Turn) (*Plan, error) {
	decision := s.deps.Router.Classify(ctx, utterance, history)

	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	topic := diagnosis.NormalizeTopic(decision.Topic())
	if topic == "" && decision.IsFollowUp {
		topic = st.lastTopic
	}

	plan := &Plan{
		SessionID: st.sessionID,
		StudentID: studentID,
		Decision:  decision,
		Topic:     topic,
		ReviewDue: st.tracker.DueTopics(s.deps.Clock()),
	}
	if topic != "" {
		plan.Mastery = st.tracker.Estimate(topic)
		plan.TopicState = st.tracker.TopicState(topic)
		plan.Difficulty = st.tracker.RecommendDifficulty(topic)
		plan.Misconceptions = st.tracker.Misconceptions(topic)
		st.lastTopic = topic
	} else {
		plan.Difficulty = mastery.DifficultyFor(s.deps.Mastery.Prior)
	}
	plan.Scaffolding = ScaffoldingFor(decision, plan.Difficulty)

	s.appendRoutingEvent(ctx, st.sessionID, studentID, decision)

	s.logger.DebugContext(ctx, "reply planned",
		"student", studentID,
		"label", decision.Label,
		"topic", topic,
		"difficulty", plan.Difficulty,
		"scaffolding", plan.Scaffolding,
	)
	return plan, nil
}

// RecordAnswer applies a graded answer: mastery update, misconception
// diagnosis for wrong answers, then persistence. Persistence failures are
// returned after the in-memory model has been updated.
func (s *Service) RecordAnswer(ctx context.Context, studentID string, ans Answer) (*AnswerResult, error) {
	if diagnosis.NormalizeTopic(ans.Topic) == "" {
		return nil, errors.New("tutor: answer topic is required")
	}
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	change := st.tracker.Update(ans.Topic, ans.Outcome)
	res := &AnswerResult{
		Change:     change,
		Difficulty: st.tracker.RecommendDifficulty(change.Topic),
	}
	st.lastTopic = change.Topic

	if !ans.Outcome.Correct && ans.StudentAnswer != "" {
		det := s.deps.Diagnosis.Diagnose(ctx, &diagnosis.Input{
			Topic:         change.Topic,
			Question:      ans.Question,
			StudentAnswer: ans.StudentAnswer,
			CorrectAnswer: ans.CorrectAnswer,
		})
		if det != nil {
			res.Misconception = det
			res.NewMisconception = s.recordMisconception(ctx, st, studentID, change.Topic, det, ans.StudentAnswer)
		}
	}

	var errs []error
	if s.deps.Events != nil {
		err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.deps.Events.AppendMasteryEvent(ctx, store.MasteryEventData{
				StudentID:   studentID,
				SessionID:   st.sessionID,
				Topic:       change.Topic,
				FromMastery: change.From,
				ToMastery:   change.To,
				FromState:   string(change.FromState),
				ToState:     string(change.ToState),
				Correct:     change.Correct,
			})
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("append mastery event: %w", err))
		}
	}
	if err := s.save(ctx, studentID, st); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

// DetectMisconception runs diagnosis on a free-text answer and records any
// hit against the topic. It returns nil when nothing was detected.
func (s *Service) DetectMisconception(ctx context.Context, studentID, topic, studentAnswer, correctAnswer string) (*diagnosis.Detection, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	det := s.deps.Diagnosis.Diagnose(ctx, &diagnosis.Input{
		Topic:         topic,
		StudentAnswer: studentAnswer,
		CorrectAnswer: correctAnswer,
	})
	if det == nil {
		return nil, nil
	}
	if s.recordMisconception(ctx, st, studentID, topic, det, studentAnswer) {
		if err := s.save(ctx, studentID, st); err != nil {
			return det, err
		}
	}
	return det, nil
}

// Summary returns a snapshot view of the student's model.
func (s *Service) Summary(ctx context.Context, studentID string) (*StudentSummary, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := s.deps.Clock()
	sum := &StudentSummary{
		StudentID:  studentID,
		SessionID:  st.sessionID,
		Struggling: st.tracker.StrugglingTopics(),
		ReviewDue:  st.tracker.DueTopics(now),
	}
	for _, topic := range st.tracker.Topics() {
		tm, _ := st.tracker.Topic(topic)
		row := TopicSummary{
			Topic:          topic,
			Mastery:        st.tracker.Estimate(topic),
			State:          st.tracker.TopicState(topic),
			Difficulty:     st.tracker.RecommendDifficulty(topic),
			Accuracy:       tm.Accuracy(),
			Attempts:       len(tm.History),
			Misconceptions: st.tracker.Misconceptions(topic),
		}
		if next, ok := st.tracker.NextReview(topic); ok {
			row.NextReview = &next
			row.ReviewStatus, _ = st.tracker.ReviewStatus(topic)
		}
		sum.Topics = append(sum.Topics, row)
	}
	return sum, nil
}

// Record exports the student's model.
func (s *Service) Record(ctx context.Context, studentID string) (store.StudentRecord, error) {
	st, err := s.student(ctx, studentID)
	if err != nil {
		return store.StudentRecord{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.tracker.ToRecord(), nil
}

// Forget drops the in-memory model of studentID. The next call reloads it
// from the snapshot repo.
func (s *Service) Forget(studentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.students, studentID)
}

// student returns the cached model, loading it on first use. The returned
// student is unlocked.
func (s *Service) student(ctx context.Context, studentID string) (*student, error) {
	if studentID == "" {
		return nil, errors.New("tutor: student id is required")
	}

	s.mu.Lock()
	st, ok := s.students[studentID]
	if !ok {
		st = &student{}
		s.students[studentID] = st
	}
	s.mu.Unlock()

	// Load under the student's own lock; a failed load is retried next call.
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.tracker != nil {
		return st, nil
	}

	opts := []mastery.Option{
		mastery.WithConfig(s.deps.Mastery),
		mastery.WithClock(s.deps.Clock),
		mastery.WithLogger(s.logger),
		mastery.WithObserver(func(c mastery.MasteryChange) {
			s.deps.Metrics.RecordMasteryUpdate(c.Correct, string(c.FromState), string(c.ToState))
		}),
	}

	var tracker *mastery.Tracker
	if s.deps.Snapshots != nil {
		var snap *store.Snapshot
		err := s.withTimeout(ctx, func(ctx context.Context) error {
			var err error
			snap, err = s.deps.Snapshots.Latest(ctx, studentID)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("load student %s: %w", studentID, err)
		}
		if snap != nil {
			tracker = mastery.FromRecord(snap.Data, opts...)
		}
	}
	if tracker == nil {
		tracker = mastery.NewTracker(studentID, opts...)
	}

	st.sessionID = uuid.NewString()
	st.tracker = tracker
	s.logger.Debug("student loaded", "student", studentID, "session", st.sessionID, "topics", len(tracker.Topics()))
	return st, nil
}

// recordMisconception stores det against topic and reports whether it was
// new. Event persistence failures are logged.
func (s *Service) recordMisconception(ctx context.Context, st *student, studentID, topic string, det *diagnosis.Detection, answer string) bool {
	if !st.tracker.RecordMisconception(topic, det.MisconceptionID) {
		return false
	}
	s.deps.Metrics.RecordMisconception(det.Detector)
	if s.deps.Events == nil {
		return true
	}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.deps.Events.AppendMisconceptionEvent(ctx, store.MisconceptionEventData{
			StudentID:       studentID,
			SessionID:       st.sessionID,
			Topic:           diagnosis.NormalizeTopic(topic),
			MisconceptionID: det.MisconceptionID,
			Detector:        det.Detector,
			StudentAnswer:   answer,
		})
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist misconception event", "student", studentID, "error", err)
	}
	return true
}

func (s *Service) appendRoutingEvent(ctx context.Context, sessionID, studentID string, d router.Decision) {
	if s.deps.Events == nil {
		return
	}
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.deps.Events.AppendRoutingEvent(ctx, store.RoutingEventData{
			EventID:       uuid.NewString(),
			StudentID:     studentID,
			SessionID:     sessionID,
			Profile:       d.Profile,
			Label:         string(d.Label),
			Confidence:    d.Confidence,
			Rules:         d.Rules,
			FollowUp:      d.IsFollowUp,
			ShouldConfirm: d.ShouldConfirm,
			Degraded:      d.Degraded,
			Cached:        d.Cached,
		})
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to persist routing event", "student", studentID, "error", err)
	}
}

// save writes a snapshot and prunes old ones.
func (s *Service) save(ctx context.Context, studentID string, st *student) error {
	if s.deps.Snapshots == nil {
		return nil
	}
	return s.withTimeout(ctx, func(ctx context.Context) error {
		snap := &store.Snapshot{
			StudentID: studentID,
			Timestamp: s.deps.Clock().UTC(),
			Data:      st.tracker.ToRecord(),
		}
		if err := s.deps.Snapshots.Save(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		if err := s.deps.Snapshots.Prune(ctx, studentID, s.deps.SnapshotsKept); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}

func (s *Service) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.deps.StoreTimeout)
	defer cancel()
	return fn(ctx)
}
