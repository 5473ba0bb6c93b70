package apperrors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Record is one captured failure kept for later diagnostics.
type Record struct {
	Kind      Kind           `json:"kind"`
	Message   string         `json:"message"`
	Status    int            `json:"status,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	OriginURL string         `json:"origin_url,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
}

// Persister stores the serialized error log between process restarts.
// Implementations live in core/storage; persistence is always best-effort.
type Persister interface {
	SaveErrorLog(ctx context.Context, data []byte) error
	LoadErrorLog(ctx context.Context) ([]byte, error)
}

// Sink receives flushed records, e.g. an external monitoring endpoint.
type Sink interface {
	Flush(ctx context.Context, records []Record) error
}

const defaultQueueCapacity = 50

// Queue is a bounded FIFO of error records. Once capacity is reached the
// oldest record is evicted. All operations are safe for concurrent use.
//
// A persistence failure never escalates: losing a diagnostic record must
// not become a user-visible error itself.
type Queue struct {
	mu        sync.Mutex
	records   []Record
	capacity  int
	persister Persister
	logger    *slog.Logger
	now       func() time.Time
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithCapacity sets the maximum number of retained records.
func WithCapacity(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithPersister enables opportunistic persistence of the queue.
func WithPersister(p Persister) QueueOption {
	return func(q *Queue) {
		q.persister = p
	}
}

// WithLogger sets the logger for swallowed persistence failures.
func WithLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) QueueOption {
	return func(q *Queue) {
		if now != nil {
			q.now = now
		}
	}
}

// NewQueue creates an error queue. Call Restore to reload previously
// persisted records.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		capacity: defaultQueueCapacity,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Append classifies nothing itself; it records an already classified
// failure, evicting the oldest record past capacity, and persists the
// queue best-effort.
func (q *Queue) Append(ctx context.Context, rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = q.now()
	}

	q.mu.Lock()
	q.records = append(q.records, rec)
	if len(q.records) > q.capacity {
		q.records = q.records[len(q.records)-q.capacity:]
	}
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.persist(ctx, snapshot)
}

// Capture is a convenience that classifies err and appends a record for it.
func (q *Queue) Capture(ctx context.Context, err error, extra map[string]any) {
	if err == nil {
		return
	}
	rec := Record{
		Kind:    Classify(err),
		Message: err.Error(),
		Context: extra,
	}
	var ae *Error
	if errors.As(err, &ae) {
		rec.Status = ae.Status
	}
	q.Append(ctx, rec)
}

// Records returns a copy of the retained records, oldest first.
func (q *Queue) Records() []Record {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Len reports the current number of retained records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Restore reloads persisted records, keeping the newest up to capacity.
// Missing or corrupt persisted data is ignored.
func (q *Queue) Restore(ctx context.Context) {
	if q.persister == nil {
		return
	}

	data, err := q.persister.LoadErrorLog(ctx)
	if err != nil || len(data) == 0 {
		return
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		q.logger.DebugContext(ctx, "discarding corrupt persisted error log", slog.String("error", err.Error()))
		return
	}
	if len(records) > q.capacity {
		records = records[len(records)-q.capacity:]
	}

	q.mu.Lock()
	q.records = records
	q.mu.Unlock()
}

// FlushTo sends all retained records to the sink. On success the queue is
// emptied and the empty state persisted; on failure the records stay queued.
func (q *Queue) FlushTo(ctx context.Context, sink Sink) error {
	q.mu.Lock()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	if err := sink.Flush(ctx, snapshot); err != nil {
		return err
	}

	q.mu.Lock()
	q.records = nil
	q.mu.Unlock()

	q.persist(ctx, nil)
	return nil
}

func (q *Queue) snapshotLocked() []Record {
	out := make([]Record, len(q.records))
	copy(out, q.records)
	return out
}

func (q *Queue) persist(ctx context.Context, records []Record) {
	if q.persister == nil {
		return
	}

	data, err := json.Marshal(records)
	if err != nil {
		q.logger.DebugContext(ctx, "failed to serialize error log", slog.String("error", err.Error()))
		return
	}
	if err := q.persister.SaveErrorLog(ctx, data); err != nil {
		q.logger.DebugContext(ctx, "failed to persist error log", slog.String("error", err.Error()))
	}
}
