// Package notify fans review-run notifications out to sinks. The bus is
// buffered and never blocks the producer; observability must not stall a
// review run.
package notify

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
	"github.com/bkyoung/review-gateway/pkg/log"
)

const defaultBufferSize = 256

// Sink receives notifications from the bus worker, one at a time and in
// order. A slow sink delays later notifications, never the run emitting them.
type Sink interface {
	Publish(n orchestrate.Notification) error
}

// Bus buffers notifications and delivers them to every configured sink on a
// single worker goroutine. Implements orchestrate.Notifier.
type Bus struct {
	ch     chan orchestrate.Notification
	sinks  []Sink
	logger log.Logger

	dropped   atomic.Int64
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// BusConfig configures a Bus. Zero values mean a 256-slot buffer and a nop
// logger; a bus without sinks swallows notifications after counting them.
type BusConfig struct {
	BufferSize int
	Logger     log.Logger
	Sinks      []Sink
}

// NewBus starts the delivery worker.
func NewBus(cfg BusConfig) *Bus {
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	b := &Bus{
		ch:     make(chan orchestrate.Notification, size),
		sinks:  cfg.Sinks,
		logger: logger,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

// Notify enqueues a notification without blocking. When the buffer is full
// the notification is dropped and counted.
func (b *Bus) Notify(n orchestrate.Notification) {
	select {
	case <-b.quit:
		return
	default:
	}
	select {
	case b.ch <- n:
	default:
		b.dropped.Add(1)
		b.logger.Warnf(context.Background(), "notification buffer full, dropped %s for %s/%s#%d", n.Kind, n.Owner, n.Repo, n.Number)
	}
}

// Dropped reports how many notifications were discarded on overflow.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops accepting notifications, delivers what is already buffered,
// and waits for the worker to exit.
func (b *Bus) Close() {
	b.closeOnce.Do(func() { close(b.quit) })
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			for {
				select {
				case n := <-b.ch:
					b.deliver(n)
				default:
					return
				}
			}
		case n := <-b.ch:
			b.deliver(n)
		}
	}
}

func (b *Bus) deliver(n orchestrate.Notification) {
	for _, sink := range b.sinks {
		if err := sink.Publish(n); err != nil {
			b.logger.Warnf(context.Background(), "notification sink failed for %s: %v", n.Kind, err)
		}
	}
}

// LogSink writes every notification to the structured log.
type LogSink struct {
	logger log.Logger
}

// NewLogSink wraps a logger as a sink.
func NewLogSink(logger log.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs one notification. Never returns an error.
func (s *LogSink) Publish(n orchestrate.Notification) error {
	ctx := context.Background()
	switch n.Kind {
	case orchestrate.NoteEventObserved:
		s.logger.Debugf(ctx, "event observed on %s %s/%s#%d: %s", n.Platform, n.Owner, n.Repo, n.Number, n.Message)
	case orchestrate.NoteRunFailed:
		s.logger.Errorf(ctx, "run %s failed on %s/%s#%d at %s: %s", n.RunID, n.Owner, n.Repo, n.Number, n.Stage, n.Message)
	default:
		s.logger.Infof(ctx, "%s on %s %s/%s#%d run=%s: %s", n.Kind, n.Platform, n.Owner, n.Repo, n.Number, n.RunID, n.Message)
	}
	return nil
}
