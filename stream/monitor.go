package stream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/skillsenselab/flowkit/logger"
	"github.com/skillsenselab/flowkit/observability"
)

// PartitionOffset is the committed and consumed position of one partition.
type PartitionOffset struct {
	// Committed is the newest offset produced to the partition.
	Committed int64
	// Consumed is the newest offset the consumer has processed.
	Consumed int64
}

// Handle exposes the observable state of one consumed stream. Implementations
// wrap a concrete consumer; Monitor only reads through this interface so
// synthetic handles can drive tests.
type Handle interface {
	// Topic returns the stream identifier.
	Topic() string
	// Offsets returns per-partition offset positions.
	Offsets(ctx context.Context) (map[int]PartitionOffset, error)
	// NewestRecordTime returns the timestamp of the newest consumed record.
	// The zero time means no record has been consumed yet.
	NewestRecordTime(ctx context.Context) (time.Time, error)
	// Throughput returns consumed records per second over the recent window.
	Throughput(ctx context.Context) (float64, error)
	// Schema returns the current record schema as field name to type name.
	Schema(ctx context.Context) (map[string]string, error)
}

// Thresholds bound a healthy stream. A zero field disables that check.
type Thresholds struct {
	// MaxLag is the maximum total consumer lag in messages.
	MaxLag int64
	// MaxFreshness is the maximum age of the newest consumed record.
	MaxFreshness time.Duration
	// MinThroughput is the minimum consumed records per second.
	MinThroughput float64
}

// HealthState classifies a snapshot.
type HealthState string

const (
	Healthy  HealthState = "healthy"
	Degraded HealthState = "degraded"
)

// DriftKind identifies a schema change between polls.
type DriftKind string

const (
	FieldAdded   DriftKind = "field_added"
	FieldRemoved DriftKind = "field_removed"
	TypeChanged  DriftKind = "type_changed"
)

// DriftEvent records one schema change. Drift is advisory: it is reported
// but never degrades the snapshot on its own.
type DriftEvent struct {
	Kind  DriftKind `json:"kind"`
	Field string    `json:"field"`
	From  string    `json:"from,omitempty"`
	To    string    `json:"to,omitempty"`
}

// Snapshot is one observation of stream health.
type Snapshot struct {
	Topic      string        `json:"topic"`
	Timestamp  time.Time     `json:"timestamp"`
	Lag        int64         `json:"lag"`
	Freshness  time.Duration `json:"freshness"`
	Throughput float64       `json:"throughput"`
	Drift      []DriftEvent  `json:"drift,omitempty"`
	State      HealthState   `json:"state"`
	// Reasons lists the threshold breaches behind a degraded state.
	Reasons []string `json:"reasons,omitempty"`
}

// DefaultHistorySize bounds the snapshot ring buffer when unset.
const DefaultHistorySize = 64

// Monitor polls stream handles and classifies their health. An external
// scheduler owns the polling cadence; Monitor itself never spawns a loop.
type Monitor struct {
	Thresholds Thresholds
	// HistorySize bounds retained snapshots (0 = DefaultHistorySize).
	HistorySize int
	// Log defaults to the global logger when nil.
	Log *logger.Logger
	// Metrics is optional; nil skips metric recording.
	Metrics *observability.PipelineMetrics

	stateMu    sync.Mutex
	lastSchema map[string]string
	history    []Snapshot

	// now is a test hook.
	now func() time.Time
}

// NewMonitor creates a Monitor with the given thresholds.
func NewMonitor(thresholds Thresholds) *Monitor {
	return &Monitor{Thresholds: thresholds}
}

// Poll takes one health snapshot of the handle. Snapshots are appended to
// the bounded history; the oldest entries are dropped first.
func (m *Monitor) Poll(ctx context.Context, h Handle) (Snapshot, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanStreamPoll)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrTopic, h.Topic())

	snap := Snapshot{
		Topic:     h.Topic(),
		Timestamp: m.clock()(),
		State:     Healthy,
	}

	offsets, err := h.Offsets(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return Snapshot{}, fmt.Errorf("reading offsets for %s: %w", h.Topic(), err)
	}
	for _, po := range offsets {
		if d := po.Committed - po.Consumed; d > 0 {
			snap.Lag += d
		}
	}

	newest, err := h.NewestRecordTime(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return Snapshot{}, fmt.Errorf("reading newest record time for %s: %w", h.Topic(), err)
	}
	if !newest.IsZero() {
		snap.Freshness = snap.Timestamp.Sub(newest)
	}

	snap.Throughput, err = h.Throughput(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return Snapshot{}, fmt.Errorf("reading throughput for %s: %w", h.Topic(), err)
	}

	schema, err := h.Schema(ctx)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return Snapshot{}, fmt.Errorf("reading schema for %s: %w", h.Topic(), err)
	}

	m.stateMu.Lock()
	snap.Drift = diffSchemas(m.lastSchema, schema)
	if schema != nil {
		m.lastSchema = schema
	}
	m.classify(&snap)
	m.record(snap)
	m.stateMu.Unlock()

	log := m.logger().WithContext(ctx)
	fields := logger.Fields(
		logger.FieldTopic, snap.Topic,
		logger.FieldLag, snap.Lag,
		"freshness_ms", snap.Freshness.Milliseconds(),
		"throughput", snap.Throughput,
		logger.FieldState, string(snap.State),
	)
	if snap.State == Degraded {
		log.Warn("stream degraded", fields)
	} else {
		log.Debug("stream healthy", fields)
	}
	for _, d := range snap.Drift {
		log.Warn("schema drift detected", logger.Fields(
			logger.FieldTopic, snap.Topic,
			"kind", string(d.Kind),
			"field", d.Field,
		))
	}

	if m.Metrics != nil {
		m.Metrics.RecordStreamHealth(ctx, snap.Topic, snap.Lag, snap.Freshness)
	}
	return snap, nil
}

// classify fills State and Reasons against the thresholds.
func (m *Monitor) classify(snap *Snapshot) {
	t := m.Thresholds
	if t.MaxLag > 0 && snap.Lag > t.MaxLag {
		snap.Reasons = append(snap.Reasons,
			fmt.Sprintf("lag %d exceeds %d", snap.Lag, t.MaxLag))
	}
	if t.MaxFreshness > 0 && snap.Freshness > t.MaxFreshness {
		snap.Reasons = append(snap.Reasons,
			fmt.Sprintf("freshness %s exceeds %s", snap.Freshness, t.MaxFreshness))
	}
	if t.MinThroughput > 0 && snap.Throughput < t.MinThroughput {
		snap.Reasons = append(snap.Reasons,
			fmt.Sprintf("throughput %.2f below %.2f", snap.Throughput, t.MinThroughput))
	}
	if len(snap.Reasons) > 0 {
		snap.State = Degraded
	}
}

func (m *Monitor) record(snap Snapshot) {
	size := m.HistorySize
	if size <= 0 {
		size = DefaultHistorySize
	}
	m.history = append(m.history, snap)
	if len(m.history) > size {
		m.history = m.history[len(m.history)-size:]
	}
}

// History returns retained snapshots, oldest first.
func (m *Monitor) History() []Snapshot {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	out := make([]Snapshot, len(m.history))
	copy(out, m.history)
	return out
}

// CheckHealth reports the most recent snapshot as component health.
func (m *Monitor) CheckHealth(ctx context.Context) observability.Health {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if len(m.history) == 0 {
		return observability.Health{
			Name:    "stream",
			Status:  observability.HealthStatusUp,
			Message: "no snapshots yet",
		}
	}
	last := m.history[len(m.history)-1]
	health := observability.Health{
		Name:   last.Topic,
		Status: observability.HealthStatusUp,
		Details: map[string]string{
			"lag":        fmt.Sprintf("%d", last.Lag),
			"freshness":  last.Freshness.String(),
			"throughput": fmt.Sprintf("%.2f", last.Throughput),
		},
	}
	if last.State == Degraded {
		health.Status = observability.HealthStatusDegraded
		if len(last.Reasons) > 0 {
			health.Message = last.Reasons[0]
		}
	}
	return health
}

func (m *Monitor) clock() func() time.Time {
	if m.now != nil {
		return m.now
	}
	return time.Now
}

func (m *Monitor) logger() *logger.Logger {
	if m.Log != nil {
		return m.Log
	}
	return logger.GetGlobalLogger()
}

// diffSchemas compares field sets and types, sorted by field name. A nil
// previous schema establishes the baseline without reporting drift.
func diffSchemas(prev, cur map[string]string) []DriftEvent {
	if prev == nil || cur == nil {
		return nil
	}

	var events []DriftEvent
	for field, typ := range cur {
		old, ok := prev[field]
		switch {
		case !ok:
			events = append(events, DriftEvent{Kind: FieldAdded, Field: field, To: typ})
		case old != typ:
			events = append(events, DriftEvent{Kind: TypeChanged, Field: field, From: old, To: typ})
		}
	}
	for field, typ := range prev {
		if _, ok := cur[field]; !ok {
			events = append(events, DriftEvent{Kind: FieldRemoved, Field: field, From: typ})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Field != events[j].Field {
			return events[i].Field < events[j].Field
		}
		return events[i].Kind < events[j].Kind
	})
	return events
}
