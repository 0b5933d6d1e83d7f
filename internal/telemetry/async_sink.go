// Package telemetry persists call and decode records off the request path.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"taxrecon/internal/domain"
	"taxrecon/internal/port"
)

const (
	defaultBufferSize = 256
	writeTimeout      = 5 * time.Second
)

// AsyncSink queues records on a buffered channel and writes them from a single
// background goroutine. Record never blocks: when the buffer is full the record
// is dropped and counted. With a nil repository records are only logged.
type AsyncSink struct {
	repo    port.TelemetryRepository
	records chan domain.TelemetryRecord
	done    chan struct{}
	dropped atomic.Int64
	closed  atomic.Bool
	mu      sync.RWMutex
	once    sync.Once
}

// NewAsyncSink starts the background writer.
func NewAsyncSink(repo port.TelemetryRepository, bufferSize int) *AsyncSink {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	s := &AsyncSink{
		repo:    repo,
		records: make(chan domain.TelemetryRecord, bufferSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Record implements port.TelemetrySink.
func (s *AsyncSink) Record(_ context.Context, rec domain.TelemetryRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		s.drop(rec, "sink closed")
		return
	}
	select {
	case s.records <- rec:
	default:
		s.drop(rec, "buffer full")
	}
}

// Dropped returns the number of records discarded so far.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting records and waits until the queue is drained or ctx
// expires.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.records)
		s.mu.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSink) drop(rec domain.TelemetryRecord, reason string) {
	n := s.dropped.Add(1)
	log.Warn().Str("service", rec.Service).Str("method", rec.Method).Str("reason", reason).
		Int64("dropped_total", n).Msg("telemetry.Record: record dropped")
}

func (s *AsyncSink) run() {
	defer close(s.done)
	for rec := range s.records {
		s.write(rec)
	}
}

func (s *AsyncSink) write(rec domain.TelemetryRecord) {
	event := log.Debug().Str("service", rec.Service).Str("endpoint", rec.Endpoint).
		Str("method", rec.Method).Str("status", rec.Status).Int64("elapsed_ms", rec.ElapsedMS)
	if s.repo == nil {
		event.Msg("telemetry.write: call recorded")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, &rec); err != nil {
		log.Error().Err(err).Str("service", rec.Service).Str("method", rec.Method).
			Msg("telemetry.write: failed to persist record")
		return
	}
	event.Msg("telemetry.write: record persisted")
}
