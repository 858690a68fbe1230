package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"attestor/internal/platform/kafka"
)

// Streamer fans appended entries out to downstream consumers.
type Streamer interface {
	Publish(ctx context.Context, entries []Entry) error
}

// MessagePublisher is the slice of the Kafka producer the streamer needs.
type MessagePublisher interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaStreamer publishes entries as JSON records keyed by acting DID so one
// actor's history stays ordered within a partition.
type KafkaStreamer struct {
	producer MessagePublisher
	topic    string
}

func NewKafkaStreamer(producer MessagePublisher, topic string) *KafkaStreamer {
	return &KafkaStreamer{producer: producer, topic: topic}
}

func (k *KafkaStreamer) Publish(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(entries))
	for _, e := range entries {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal audit entry %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Topic: k.topic,
			Key:   []byte(e.ActorDID),
			Value: value,
			Headers: map[string]string{
				"action":   string(e.Action),
				"entry_id": e.ID.String(),
			},
		})
	}
	return k.producer.Publish(ctx, msgs...)
}

// BufferedStreamer decouples Record from the downstream stream: entries are
// buffered and flushed in batches by Run.
type BufferedStreamer struct {
	next      Streamer
	buffer    *RingBuffer
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

type BufferedOption func(*BufferedStreamer)

func WithBatchSize(n int) BufferedOption {
	return func(b *BufferedStreamer) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) BufferedOption {
	return func(b *BufferedStreamer) {
		if d > 0 {
			b.interval = d
		}
	}
}

func WithStreamLogger(l *slog.Logger) BufferedOption {
	return func(b *BufferedStreamer) { b.logger = l }
}

func WithStreamMetrics(m *Metrics) BufferedOption {
	return func(b *BufferedStreamer) { b.metrics = m }
}

func NewBufferedStreamer(next Streamer, capacity int, opts ...BufferedOption) *BufferedStreamer {
	b := &BufferedStreamer{
		next:      next,
		buffer:    NewRingBuffer(capacity),
		batchSize: 100,
		interval:  500 * time.Millisecond,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish only enqueues; it never blocks on the downstream stream.
func (b *BufferedStreamer) Publish(_ context.Context, entries []Entry) error {
	for _, e := range entries {
		b.buffer.Enqueue(e)
	}
	return nil
}

// Run flushes until ctx is done, then makes a final bounded flush.
func (b *BufferedStreamer) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			b.Flush(drainCtx)
			cancel()
			return nil
		case <-ticker.C:
			b.Flush(ctx)
		}
	}
}

// Flush publishes buffered entries until the buffer is empty or a publish fails.
// Failed batches go back to the front of the buffer.
func (b *BufferedStreamer) Flush(ctx context.Context) {
	for {
		batch := b.buffer.DequeueBatch(b.batchSize)
		if len(batch) == 0 {
			return
		}
		if err := b.next.Publish(ctx, batch); err != nil {
			b.buffer.Requeue(batch)
			b.metrics.IncStreamFailures()
			b.logger.WarnContext(ctx, "audit stream publish failed",
				"batch_size", len(batch),
				"buffered", b.buffer.Len(),
				"error", err,
			)
			return
		}
		b.metrics.AddStreamed(len(batch))
	}
}

// Pending is the number of buffered entries.
func (b *BufferedStreamer) Pending() int { return b.buffer.Len() }

// OutboxRecord is one unpublished row of the transactional outbox.
type OutboxRecord struct {
	ID      uuid.UUID
	Payload []byte
}

// OutboxSource hands out pending outbox rows and marks them published when the
// callback succeeds.
type OutboxSource interface {
	ClaimPending(ctx context.Context, limit int, publish func(context.Context, []OutboxRecord) error) (int, error)
}

// OutboxRelay moves outbox rows to the stream. Used with the Postgres store,
// where the outbox row is committed together with the entry.
type OutboxRelay struct {
	source    OutboxSource
	stream    Streamer
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
	metrics   *Metrics
}

func NewOutboxRelay(source OutboxSource, stream Streamer, logger *slog.Logger, metrics *Metrics) *OutboxRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxRelay{
		source:    source,
		stream:    stream,
		batchSize: 100,
		interval:  time.Second,
		logger:    logger,
		metrics:   metrics,
	}
}

func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.metrics.IncStreamFailures()
				r.logger.WarnContext(ctx, "audit outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many rows were relayed.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	n, err := r.source.ClaimPending(ctx, r.batchSize, func(ctx context.Context, records []OutboxRecord) error {
		entries := make([]Entry, 0, len(records))
		for _, rec := range records {
			var e Entry
			if err := json.Unmarshal(rec.Payload, &e); err != nil {
				return fmt.Errorf("decode outbox record %s: %w", rec.ID, err)
			}
			entries = append(entries, e)
		}
		return r.stream.Publish(ctx, entries)
	})
	if err == nil {
		r.metrics.AddStreamed(n)
	}
	return n, err
}
