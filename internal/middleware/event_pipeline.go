package middleware

import (
	"context"
	"sync"
	"time"

	"arbwatch/internal/domain/models"
	domrepo "arbwatch/internal/domain/repository"
	applogger "arbwatch/pkg/logger"
)

// EventPipeline sits between the spread monitor and its sinks.
// Publish never blocks: events are buffered and fanned out by one background
// worker, and dropped when the buffer is full.
type EventPipeline struct {
	sinks       []domrepo.Sink
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	bufSize     int
	sinkTimeout time.Duration
	bufCh       chan models.MonitorEvent

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type PipelineOption func(*EventPipeline)

// WithBufferSize sets how many events may wait for delivery.
func WithBufferSize(n int) PipelineOption {
	return func(p *EventPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithSinkTimeout bounds each sink call.
func WithSinkTimeout(d time.Duration) PipelineOption {
	return func(p *EventPipeline) {
		if d > 0 {
			p.sinkTimeout = d
		}
	}
}

// NewEventPipeline creates a new pipeline.
func NewEventPipeline(sinks []domrepo.Sink, metrics domrepo.Metrics, logger *applogger.Logger, opts ...PipelineOption) *EventPipeline {
	p := &EventPipeline{
		sinks:       sinks,
		metrics:     metrics,
		logger:      logger,
		bufSize:     1024,
		sinkTimeout: 2 * time.Second,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.MonitorEvent, p.bufSize)
	return p
}

// Publish enqueues ev and reports whether it was accepted.
func (p *EventPipeline) Publish(ev models.MonitorEvent) bool {
	select {
	case p.bufCh <- ev:
		p.metrics.RecordPipelineDepth(len(p.bufCh))
		return true
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		return false
	}
}

// Start launches the delivery worker.
func (p *EventPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-p.stopCh:
				p.drain(ctx)
				return
			case ev := <-p.bufCh:
				p.deliver(ctx, ev)
			}
		}
	}()
}

// Stop delivers what is still buffered and waits for the worker to exit.
func (p *EventPipeline) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Close releases every sink.
func (p *EventPipeline) Close() {
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			p.logger.Warn("sink close error", applogger.String("sink", s.Name()), applogger.Error(err))
		}
	}
}

func (p *EventPipeline) drain(ctx context.Context) {
	for {
		select {
		case ev := <-p.bufCh:
			p.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (p *EventPipeline) deliver(ctx context.Context, ev models.MonitorEvent) {
	p.metrics.RecordPipelineDepth(len(p.bufCh))
	for _, s := range p.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sinkTimeout)
		err := s.Handle(sctx, ev)
		cancel()
		if err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			p.logger.Warn("sink error", applogger.String("sink", s.Name()), applogger.Error(err))
		}
	}
}
