package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skillsenselab/flowkit/observability"
)

// stubHandle is a synthetic Handle for driving Poll directly.
type stubHandle struct {
	topic      string
	offsets    map[int]PartitionOffset
	newest     time.Time
	throughput float64
	schema     map[string]string
	err        error
}

func (s *stubHandle) Topic() string { return s.topic }

func (s *stubHandle) Offsets(ctx context.Context) (map[int]PartitionOffset, error) {
	return s.offsets, s.err
}

func (s *stubHandle) NewestRecordTime(ctx context.Context) (time.Time, error) {
	return s.newest, nil
}

func (s *stubHandle) Throughput(ctx context.Context) (float64, error) {
	return s.throughput, nil
}

func (s *stubHandle) Schema(ctx context.Context) (map[string]string, error) {
	return s.schema, nil
}

func TestPollHealthy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(Thresholds{MaxLag: 10000, MaxFreshness: 5 * time.Minute, MinThroughput: 10})
	m.now = func() time.Time { return now }

	h := &stubHandle{
		topic: "orders.events",
		offsets: map[int]PartitionOffset{
			0: {Committed: 1000, Consumed: 900},
			1: {Committed: 2000, Consumed: 1950},
		},
		newest:     now.Add(-30 * time.Second),
		throughput: 120,
	}

	snap, err := m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != Healthy {
		t.Errorf("expected healthy, got %s (%v)", snap.State, snap.Reasons)
	}
	if snap.Lag != 150 {
		t.Errorf("expected lag 150, got %d", snap.Lag)
	}
	if snap.Freshness != 30*time.Second {
		t.Errorf("expected freshness 30s, got %v", snap.Freshness)
	}
}

func TestPollLagDegrades(t *testing.T) {
	m := NewMonitor(Thresholds{MaxLag: 10000})

	h := &stubHandle{
		topic:   "orders.events",
		offsets: map[int]PartitionOffset{0: {Committed: 15000, Consumed: 0}},
	}

	snap, err := m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != Degraded {
		t.Fatalf("expected degraded, got %s", snap.State)
	}
	if snap.Lag != 15000 {
		t.Errorf("expected lag 15000, got %d", snap.Lag)
	}
	if len(snap.Reasons) != 1 {
		t.Errorf("expected one reason, got %v", snap.Reasons)
	}
}

func TestPollFreshnessAndThroughputDegrade(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMonitor(Thresholds{MaxFreshness: time.Minute, MinThroughput: 50})
	m.now = func() time.Time { return now }

	h := &stubHandle{
		topic:      "payments.events",
		offsets:    map[int]PartitionOffset{},
		newest:     now.Add(-10 * time.Minute),
		throughput: 5,
	}

	snap, err := m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != Degraded {
		t.Fatalf("expected degraded, got %s", snap.State)
	}
	if len(snap.Reasons) != 2 {
		t.Errorf("expected freshness and throughput reasons, got %v", snap.Reasons)
	}
}

func TestPollNegativeLagClampedToZero(t *testing.T) {
	m := NewMonitor(Thresholds{})

	h := &stubHandle{
		topic:   "orders.events",
		offsets: map[int]PartitionOffset{0: {Committed: 10, Consumed: 20}},
	}

	snap, err := m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Lag != 0 {
		t.Errorf("expected lag 0, got %d", snap.Lag)
	}
}

func TestPollSchemaDriftAdvisory(t *testing.T) {
	m := NewMonitor(Thresholds{})

	h := &stubHandle{
		topic:   "orders.events",
		offsets: map[int]PartitionOffset{},
		schema:  map[string]string{"id": "string", "amount": "number"},
	}

	// First poll establishes the baseline.
	snap, err := m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Drift) != 0 {
		t.Errorf("expected no drift on baseline, got %v", snap.Drift)
	}

	h.schema = map[string]string{"id": "number", "currency": "string"}
	snap, err = m.Poll(context.Background(), h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []DriftEvent{
		{Kind: FieldRemoved, Field: "amount", From: "number"},
		{Kind: FieldAdded, Field: "currency", To: "string"},
		{Kind: TypeChanged, Field: "id", From: "string", To: "number"},
	}
	if len(snap.Drift) != len(want) {
		t.Fatalf("expected %d drift events, got %v", len(want), snap.Drift)
	}
	for i, event := range want {
		if snap.Drift[i] != event {
			t.Errorf("drift[%d]: expected %+v, got %+v", i, event, snap.Drift[i])
		}
	}

	// Drift alone never degrades.
	if snap.State != Healthy {
		t.Errorf("expected drift to stay advisory, got %s", snap.State)
	}
}

func TestPollHandleError(t *testing.T) {
	m := NewMonitor(Thresholds{})
	h := &stubHandle{topic: "broken", err: errors.New("broker unreachable")}

	if _, err := m.Poll(context.Background(), h); err == nil {
		t.Fatal("expected error from failing handle")
	}
	if len(m.History()) != 0 {
		t.Error("expected no snapshot recorded on error")
	}
}

func TestHistoryRingBuffer(t *testing.T) {
	m := NewMonitor(Thresholds{})
	m.HistorySize = 3

	for i := 0; i < 5; i++ {
		h := &stubHandle{
			topic:   fmt.Sprintf("topic-%d", i),
			offsets: map[int]PartitionOffset{},
		}
		if _, err := m.Poll(context.Background(), h); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 retained snapshots, got %d", len(history))
	}
	// Oldest first.
	for i, want := range []string{"topic-2", "topic-3", "topic-4"} {
		if history[i].Topic != want {
			t.Errorf("history[%d]: expected %s, got %s", i, want, history[i].Topic)
		}
	}
}

func TestCheckHealth(t *testing.T) {
	m := NewMonitor(Thresholds{MaxLag: 100})

	health := m.CheckHealth(context.Background())
	if health.Status != observability.HealthStatusUp {
		t.Errorf("expected up before any poll, got %s", health.Status)
	}

	h := &stubHandle{
		topic:   "orders.events",
		offsets: map[int]PartitionOffset{0: {Committed: 500, Consumed: 0}},
	}
	if _, err := m.Poll(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	health = m.CheckHealth(context.Background())
	if health.Status != observability.HealthStatusDegraded {
		t.Errorf("expected degraded, got %s", health.Status)
	}
	if health.Name != "orders.events" {
		t.Errorf("expected component name from topic, got %s", health.Name)
	}
}

func TestKafkaHandleObserve(t *testing.T) {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "orders.events",
		GroupID: "flowkit-monitor",
	})
	defer reader.Close()

	h := NewKafkaHandle(reader)
	if h.Topic() != "orders.events" {
		t.Errorf("expected topic from reader config, got %s", h.Topic())
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h.Observe(kafkago.Message{
		Time:  ts,
		Value: []byte(`{"id":"o-1","amount":12.5,"paid":true}`),
	})
	h.Observe(kafkago.Message{
		Time:  ts.Add(-time.Hour),
		Value: []byte("not json"),
	})

	newest, err := h.NewestRecordTime(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !newest.Equal(ts) {
		t.Errorf("expected newest %v, got %v", ts, newest)
	}

	schema, err := h.Schema(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"id": "string", "amount": "number", "paid": "boolean"}
	if len(schema) != len(want) {
		t.Fatalf("expected schema %v, got %v", want, schema)
	}
	for field, typ := range want {
		if schema[field] != typ {
			t.Errorf("field %s: expected %s, got %s", field, typ, schema[field])
		}
	}

	throughput, err := h.Throughput(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if throughput <= 0 {
		t.Errorf("expected positive throughput, got %f", throughput)
	}
}

func TestInferSchemaTypes(t *testing.T) {
	schema := inferSchema([]byte(`{"s":"x","n":1,"b":false,"o":{},"a":[],"z":null}`))
	want := map[string]string{
		"s": "string", "n": "number", "b": "boolean",
		"o": "object", "a": "array", "z": "null",
	}
	for field, typ := range want {
		if schema[field] != typ {
			t.Errorf("field %s: expected %s, got %s", field, typ, schema[field])
		}
	}
	if inferSchema([]byte("plain text")) != nil {
		t.Error("expected nil schema for non-JSON payload")
	}
}
