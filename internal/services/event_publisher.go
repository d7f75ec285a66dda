package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wealthwise/internal/amqp"
	"wealthwise/internal/goals"
)

// GoalEventPublisher is implemented by *amqp.Client.
type GoalEventPublisher interface {
	PublishGoalEvent(ctx context.Context, msg *amqp.GoalEventMessage) error
}

// EventPublisherConfig holds configuration for the event publisher
type EventPublisherConfig struct {
	// QueueSize bounds the changes waiting to be published (default: 64)
	QueueSize int

	// PublishTimeout limits a single publish attempt (default: 10s)
	PublishTimeout time.Duration
}

// DefaultEventPublisherConfig returns sensible defaults
func DefaultEventPublisherConfig() EventPublisherConfig {
	return EventPublisherConfig{
		QueueSize:      64,
		PublishTimeout: 10 * time.Second,
	}
}

// EventPublisher forwards goal repository changes to the message broker.
// Goals are saved before the change reaches it, so a failed publish is
// logged and never fails the mutation. Changes are published in mutation
// order; when the queue is full the change is dropped.
type EventPublisher struct {
	publisher GoalEventPublisher
	config    EventPublisherConfig
	logger    *slog.Logger

	queue       chan goals.Change
	unsubscribe func()

	mu      sync.Mutex
	running bool
	closing bool
	doneCh  chan struct{}
	dropped int64
}

// NewEventPublisher creates a new event publisher. A nil publisher is
// accepted and turns every change into a logged no-op.
func NewEventPublisher(publisher GoalEventPublisher, config EventPublisherConfig, logger *slog.Logger) *EventPublisher {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultEventPublisherConfig().QueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultEventPublisherConfig().PublishTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		publisher: publisher,
		config:    config,
		logger:    logger.With("component", "event_publisher"),
		queue:     make(chan goals.Change, config.QueueSize),
	}
}

// Start subscribes to repo and begins publishing. Returns an error if
// already running.
func (p *EventPublisher) Start(ctx context.Context, repo *goals.Repository) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("event publisher is already running")
	}
	if p.closing {
		p.mu.Unlock()
		return fmt.Errorf("event publisher is closed")
	}
	p.running = true
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	p.unsubscribe = repo.Subscribe(p.enqueue)
	go p.runLoop(context.WithoutCancel(ctx))

	p.logger.InfoContext(ctx, "Event publisher started", "queue_size", p.config.QueueSize)
	return nil
}

func (p *EventPublisher) enqueue(c goals.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	select {
	case p.queue <- c:
	default:
		p.dropped++
		p.logger.Warn("Event queue full, dropping goal event",
			"operation", string(c.Op),
			"goal_id", c.GoalID,
			"dropped", p.dropped)
	}
}

func (p *EventPublisher) runLoop(ctx context.Context) {
	defer close(p.doneCh)
	for c := range p.queue {
		p.publish(ctx, c)
	}
}

func (p *EventPublisher) publish(ctx context.Context, c goals.Change) {
	if p.publisher == nil {
		p.logger.WarnContext(ctx, "AMQP client not available, skipping goal event", "operation", string(c.Op))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	msg := amqp.NewGoalEventMessage(string(c.Op), c.GoalID, c.Goals, c.At)
	if err := p.publisher.PublishGoalEvent(ctx, msg); err != nil {
		p.logger.ErrorContext(ctx, "Failed to publish goal event",
			"operation", string(c.Op),
			"goal_id", c.GoalID,
			"error", err)
	}
}

// Dropped returns the number of changes discarded because the queue was full.
func (p *EventPublisher) Dropped() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// Stop unsubscribes, publishes what is already queued and waits for the
// loop to finish or ctx to expire.
func (p *EventPublisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running || p.closing {
		p.mu.Unlock()
		return nil
	}
	p.closing = true
	close(p.queue)
	p.mu.Unlock()

	if p.unsubscribe != nil {
		p.unsubscribe()
	}

	select {
	case <-p.doneCh:
		p.logger.InfoContext(ctx, "Event publisher stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Event publisher stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the publisher loop is active
func (p *EventPublisher) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
