package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorpilot/internal/diagnosis"
	"github.com/abhisek/tutorpilot/internal/mastery"
	"github.com/abhisek/tutorpilot/internal/metrics"
	"github.com/abhisek/tutorpilot/internal/router"
	"github.com/abhisek/tutorpilot/internal/store"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func openStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	st, err := store.Open(context.Background(), "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

type fixture struct {
	svc     *Service
	store   *store.Store
	clock   *testClock
	metrics *metrics.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:   openStore(t),
		clock:   &testClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		metrics: metrics.New(),
	}
	f.svc = f.newService(t)
	return f
}

func (f *fixture) newService(t *testing.T) *Service {
	t.Helper()
	r, err := router.New(router.DefaultConfig())
	require.NoError(t, err)
	svc, err := NewService(Deps{
		Router:    r,
		Snapshots: f.store.SnapshotRepo(),
		Events:    f.store.EventRepo(),
		Metrics:   f.metrics,
		Clock:     f.clock.Now,
	})
	require.NoError(t, err)
	return svc
}

var dfsMistake = Answer{
	Topic:         "DFS",
	Question:      "In what order does DFS visit nodes?",
	StudentAnswer: "dfs explores breadth-first",
	CorrectAnswer: "dfs explores depth-first",
	Outcome:       mastery.Outcome{Correct: false, Confidence: 0},
}

func TestRespond_EducatePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plan, err := f.svc.Respond(ctx, "ada", "explain backpropagation", nil)
	require.NoError(t, err)

	assert.Equal(t, router.LabelEducate, plan.Decision.Label)
	assert.Equal(t, "backpropagation", plan.Topic)
	assert.InDelta(t, 0.2, plan.Mastery, 1e-9)
	assert.Equal(t, mastery.StateUnknown, plan.TopicState)
	assert.Equal(t, mastery.DifficultyEasy, plan.Difficulty)
	assert.Equal(t, ScaffoldFullExplanation, plan.Scaffolding)
	assert.Len(t, plan.SessionID, 36)
	assert.Empty(t, plan.ReviewDue)

	again, err := f.svc.Respond(ctx, "ada", "find lecture slides on backpropagation", nil)
	require.NoError(t, err)
	assert.Equal(t, plan.SessionID, again.SessionID, "one session per loaded student")
	assert.Equal(t, ScaffoldNone, again.Scaffolding)

	events, err := f.store.EventRepo().QueryRoutingEvents(ctx, store.QueryOpts{StudentID: "ada"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "educate", events[0].Label)
	assert.Equal(t, plan.SessionID, events[0].SessionID)
	assert.NotEmpty(t, events[0].EventID)
}

func TestRespond_FollowUpKeepsTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Respond(ctx, "ada", "explain backpropagation", nil)
	require.NoError(t, err)

	history := []router.Turn{
		{Role: router.RoleStudent, Content: "explain backpropagation"},
		{Role: router.RoleAssistant, Content: "It is the chain rule applied backwards...", Mode: router.LabelEducate},
	}
	plan, err := f.svc.Respond(ctx, "ada", "tell me more", history)
	require.NoError(t, err)
	assert.True(t, plan.Decision.IsFollowUp)
	assert.Equal(t, "backpropagation", plan.Topic)
	assert.Equal(t, ScaffoldFullExplanation, plan.Scaffolding)

	plan, err = f.svc.Respond(ctx, "ada", "no", history)
	require.NoError(t, err)
	assert.True(t, plan.Decision.Frustrated)
	assert.Equal(t, ScaffoldClarify, plan.Scaffolding)

	navHistory := []router.Turn{
		{Role: router.RoleStudent, Content: "find lecture slides on backpropagation"},
		{Role: router.RoleAssistant, Content: "Here are the slides.", Mode: router.LabelNavigate},
	}
	plan, err = f.svc.Respond(ctx, "ada", "nope", navHistory)
	require.NoError(t, err)
	assert.Equal(t, router.LabelNavigate, plan.Decision.Label)
	assert.True(t, plan.Decision.Frustrated)
	assert.Equal(t, ScaffoldClarify, plan.Scaffolding, "frustration gets a clarification on any route")
}

func TestRecordAnswer_MasteryAndMisconception(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.RecordAnswer(ctx, "ada", dfsMistake)
	require.NoError(t, err)

	assert.Equal(t, "dfs", res.Change.Topic)
	assert.InDelta(t, 0.14, res.Change.To, 1e-9)
	assert.Equal(t, mastery.StateStruggling, res.Change.ToState)
	assert.Equal(t, mastery.DifficultyEasy, res.Difficulty)
	require.NotNil(t, res.Misconception)
	assert.Equal(t, "dfs-bfs-confusion", res.Misconception.MisconceptionID)
	assert.Equal(t, diagnosis.DetectorPattern, res.Misconception.Detector)
	assert.True(t, res.NewMisconception)

	res, err = f.svc.RecordAnswer(ctx, "ada", dfsMistake)
	require.NoError(t, err)
	assert.False(t, res.NewMisconception, "a known misconception is not recorded twice")

	plan, err := f.svc.Respond(ctx, "ada", "explain dfs", nil)
	require.NoError(t, err)
	assert.Equal(t, mastery.StateStruggling, plan.TopicState)
	assert.Equal(t, []string{"dfs-bfs-confusion"}, plan.Misconceptions)

	mEvents, err := f.store.EventRepo().QueryMasteryEvents(ctx, store.QueryOpts{StudentID: "ada"})
	require.NoError(t, err)
	assert.Len(t, mEvents, 2)

	counts, err := f.store.EventRepo().MisconceptionCounts(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"dfs-bfs-confusion": 1}, counts)

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "tutorpilot_mastery_updates_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only incorrect updates were recorded")
}

func TestRecordAnswer_CorrectAnswerSkipsDiagnosis(t *testing.T) {
	f := newFixture(t)
	ans := dfsMistake
	ans.Outcome = mastery.Outcome{Correct: true, Confidence: 1}

	res, err := f.svc.RecordAnswer(context.Background(), "ada", ans)
	require.NoError(t, err)
	assert.Nil(t, res.Misconception)
	assert.InDelta(t, 0.52, res.Change.To, 1e-9)
}

func TestReviewDueAfterTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordAnswer(ctx, "ada", dfsMistake)
	require.NoError(t, err)

	plan, err := f.svc.Respond(ctx, "ada", "hello", nil)
	require.NoError(t, err)
	assert.Empty(t, plan.ReviewDue)

	f.clock.now = f.clock.now.Add(48 * time.Hour)
	plan, err = f.svc.Respond(ctx, "ada", "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"dfs"}, plan.ReviewDue)
}

func TestStudentReloadsFromSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordAnswer(ctx, "ada", dfsMistake)
	require.NoError(t, err)
	before, err := f.svc.Summary(ctx, "ada")
	require.NoError(t, err)

	fresh := f.newService(t)
	after, err := fresh.Summary(ctx, "ada")
	require.NoError(t, err)

	require.Len(t, after.Topics, 1)
	assert.Equal(t, before.Topics[0].Topic, after.Topics[0].Topic)
	assert.InDelta(t, before.Topics[0].Mastery, after.Topics[0].Mastery, 1e-9)
	assert.Equal(t, []string{"dfs"}, after.Struggling)
	assert.Equal(t, []string{"dfs-bfs-confusion"}, after.Topics[0].Misconceptions)
	require.NotNil(t, after.Topics[0].NextReview)
	assert.Equal(t, 1, after.Topics[0].Attempts)
	assert.NotEqual(t, before.SessionID, after.SessionID)

	f.svc.Forget("ada")
	rec, err := f.svc.Record(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", rec.StudentID)
	assert.Contains(t, rec.Topics, "dfs")
}

func TestDetectMisconception(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	det, err := f.svc.DetectMisconception(ctx, "ada", "dfs", "dfs explores breadth-first", "dfs explores depth-first")
	require.NoError(t, err)
	require.NotNil(t, det)
	assert.Equal(t, "dfs-bfs-confusion", det.MisconceptionID)

	det, err = f.svc.DetectMisconception(ctx, "ada", "dfs", "dfs uses recursion", "")
	require.NoError(t, err)
	assert.Nil(t, det)

	sum, err := f.svc.Summary(ctx, "ada")
	require.NoError(t, err)
	assert.Empty(t, sum.Topics, "detection alone does not create mastery state")
}

type failingSnapshots struct {
	loadErr, saveErr error
}

func (f failingSnapshots) Save(context.Context, *store.Snapshot) error { return f.saveErr }

func (f failingSnapshots) Latest(context.Context, string) (*store.Snapshot, error) {
	return nil, f.loadErr
}

func (f failingSnapshots) Prune(context.Context, string, int) error { return nil }

// gatedSnapshots blocks Latest for one student until release is closed.
type gatedSnapshots struct {
	slowID  string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSnapshots) Save(context.Context, *store.Snapshot) error { return nil }

func (g *gatedSnapshots) Latest(ctx context.Context, studentID string) (*store.Snapshot, error) {
	if studentID == g.slowID {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func (g *gatedSnapshots) Prune(context.Context, string, int) error { return nil }

func TestSlowLoadDoesNotBlockOtherStudents(t *testing.T) {
	r, err := router.New(router.DefaultConfig())
	require.NoError(t, err)
	snaps := &gatedSnapshots{slowID: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	svc, err := NewService(Deps{Router: r, Snapshots: snaps})
	require.NoError(t, err)

	slowDone := make(chan error, 1)
	go func() {
		_, err := svc.Respond(context.Background(), "slow", "explain dfs", nil)
		slowDone <- err
	}()
	<-snaps.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := svc.Respond(context.Background(), "fast", "explain dfs", nil)
		fastDone <- err
	}()
	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("another student's load blocked this one")
	}

	close(snaps.release)
	require.NoError(t, <-slowDone)
}

func TestPersistenceErrors(t *testing.T) {
	r, err := router.New(router.DefaultConfig())
	require.NoError(t, err)

	svc, err := NewService(Deps{Router: r, Snapshots: failingSnapshots{saveErr: errors.New("disk full")}})
	require.NoError(t, err)
	res, err := svc.RecordAnswer(context.Background(), "ada", dfsMistake)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, res, "the in-memory update still happened")
	assert.InDelta(t, 0.14, res.Change.To, 1e-9)

	svc, err = NewService(Deps{Router: r, Snapshots: failingSnapshots{loadErr: errors.New("connection refused")}})
	require.NoError(t, err)
	_, err = svc.Respond(context.Background(), "ada", "explain dfs", nil)
	assert.ErrorContains(t, err, "load student ada")
}

func TestInputErrors(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)

	r, err := router.New(router.DefaultConfig())
	require.NoError(t, err)
	svc, err := NewService(Deps{Router: r})
	require.NoError(t, err)

	_, err = svc.Respond(context.Background(), "", "explain dfs", nil)
	assert.ErrorContains(t, err, "student id is required")

	_, err = svc.RecordAnswer(context.Background(), "ada", Answer{Topic: "  "})
	assert.ErrorContains(t, err, "topic is required")
}
