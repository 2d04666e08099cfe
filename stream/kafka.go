package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

// KafkaHandle adapts a kafka-go Reader to the Handle interface. Offsets and
// lag come from Reader.Stats(); record time, throughput, and schema come
// from messages the consumer feeds through Observe.
type KafkaHandle struct {
	reader *kafkago.Reader
	topic  string

	mu          sync.Mutex
	newest      time.Time
	schema      map[string]string
	count       int64
	windowStart time.Time
}

// NewKafkaHandle wraps a configured Reader. The caller keeps ownership of
// the reader and must call Observe for each consumed message.
func NewKafkaHandle(reader *kafkago.Reader) *KafkaHandle {
	return &KafkaHandle{
		reader:      reader,
		topic:       reader.Config().Topic,
		windowStart: time.Now(),
	}
}

// Observe records one consumed message: newest timestamp, throughput
// counting, and schema inference for JSON payloads.
func (h *KafkaHandle) Observe(msg kafkago.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.Time.After(h.newest) {
		h.newest = msg.Time
	}
	h.count++

	if schema := inferSchema(msg.Value); schema != nil {
		h.schema = schema
	}
}

func (h *KafkaHandle) Topic() string { return h.topic }

// Offsets reports the reader's position. Reader.Stats() aggregates the
// consumer group, so the result is a single pseudo-partition whose
// committed offset is the consumed offset plus the reported lag.
func (h *KafkaHandle) Offsets(ctx context.Context) (map[int]PartitionOffset, error) {
	stats := h.reader.Stats()
	return map[int]PartitionOffset{
		0: {Committed: stats.Offset + stats.Lag, Consumed: stats.Offset},
	}, nil
}

func (h *KafkaHandle) NewestRecordTime(ctx context.Context) (time.Time, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.newest, nil
}

// Throughput returns records per second since the previous call and resets
// the window.
func (h *KafkaHandle) Throughput(ctx context.Context) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	elapsed := time.Since(h.windowStart)
	count := h.count
	h.count = 0
	h.windowStart = time.Now()

	if elapsed <= 0 {
		return 0, nil
	}
	return float64(count) / elapsed.Seconds(), nil
}

func (h *KafkaHandle) Schema(ctx context.Context) (map[string]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.schema == nil {
		return nil, nil
	}
	out := make(map[string]string, len(h.schema))
	for k, v := range h.schema {
		out[k] = v
	}
	return out, nil
}

// inferSchema maps top-level JSON fields to their JSON type names. Non-JSON
// payloads yield nil.
func inferSchema(value []byte) map[string]string {
	var fields map[string]any
	if err := json.Unmarshal(value, &fields); err != nil {
		return nil
	}
	schema := make(map[string]string, len(fields))
	for name, v := range fields {
		schema[name] = jsonTypeName(v)
	}
	return schema
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
