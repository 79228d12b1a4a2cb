package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("store: closed")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	Before    int64     // sequence < Before
	From      time.Time // timestamp >= From
	To        time.Time // timestamp <= To
	StudentID string    // only events for this student, where the event carries one
}

// Snapshot is a point-in-time capture of one student's model.
type Snapshot struct {
	ID        int
	StudentID string
	Sequence  int64
	Timestamp time.Time
	Data      StudentRecord
}

// SnapshotRepo persists student snapshots. Every backend (sqlite, badger,
// redis) implements it.
type SnapshotRepo interface {
	// Save stores a new snapshot. A zero Sequence is assigned by the backend.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the most recent snapshot for studentID, or nil if the
	// student has none.
	Latest(ctx context.Context, studentID string) (*Snapshot, error)

	// Prune deletes all but the keep most recent snapshots of studentID.
	Prune(ctx context.Context, studentID string, keep int) error
}

// LLMRequestEventData captures a single LLM API call.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEventRecord is a stored LLM request event.
type LLMRequestEventRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM calls grouped by a key (purpose or model).
type LLMUsage struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// MasteryEventData captures one mastery update.
type MasteryEventData struct {
	StudentID   string
	SessionID   string
	Topic       string
	FromMastery float64
	ToMastery   float64
	FromState   string
	ToState     string
	Correct     bool
}

// MasteryEventRecord is a stored mastery event.
type MasteryEventRecord struct {
	Sequence  int64
	Timestamp time.Time
	MasteryEventData
}

// RoutingEventData captures one routing decision.
type RoutingEventData struct {
	EventID       string
	StudentID     string
	SessionID     string
	Profile       string
	Label         string
	Confidence    float64
	Rules         []string
	FollowUp      bool
	ShouldConfirm bool
	Degraded      bool
	Cached        bool
}

// RoutingEventRecord is a stored routing event.
type RoutingEventRecord struct {
	Sequence  int64
	Timestamp time.Time
	RoutingEventData
}

// MisconceptionEventData captures one detected misconception.
type MisconceptionEventData struct {
	StudentID       string
	SessionID       string
	Topic           string
	MisconceptionID string
	Detector        string
	StudentAnswer   string
}

// EventRepo provides append and query access to the event log. All events
// share one global sequence so their relative order is preserved across
// tables.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	AppendMasteryEvent(ctx context.Context, data MasteryEventData) error
	AppendRoutingEvent(ctx context.Context, data RoutingEventData) error
	AppendMisconceptionEvent(ctx context.Context, data MisconceptionEventData) error

	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEventRecord, error)
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEventRecord, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)

	QueryMasteryEvents(ctx context.Context, opts QueryOpts) ([]MasteryEventRecord, error)
	QueryRoutingEvents(ctx context.Context, opts QueryOpts) ([]RoutingEventRecord, error)

	// MisconceptionCounts returns how often each misconception id was
	// detected for studentID.
	MisconceptionCounts(ctx context.Context, studentID string) (map[string]int, error)
}
