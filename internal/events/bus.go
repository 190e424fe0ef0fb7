package events

import (
	"context"
	"sync"
)

// Topic names for engine events
const (
	TopicErrorCaptured       = "error_captured"
	TopicErrorGrouped        = "error_grouped"
	TopicAlertTriggered      = "alert_triggered"
	TopicErrorResolved       = "error_resolved"
	TopicErrorAssigned       = "error_assigned"
	TopicNoteAdded           = "note_added"
	TopicPatternDetected     = "pattern_detected"
	TopicCorrelationDetected = "correlation_detected"
	TopicImpactPrediction    = "impact_prediction"
	TopicInsightsGenerated   = "insights_generated"
)

// Event is a message published on the bus
type Event struct {
	Type    string
	Payload any
}

// Subscriber receives events for the topics it declares
type Subscriber interface {
	Handle(ctx context.Context, evt Event)
	Topics() []string
}

// SubscriberFunc adapts a function to the Subscriber interface
type SubscriberFunc struct {
	Fn     func(ctx context.Context, evt Event)
	Listen []string
}

func (s SubscriberFunc) Handle(ctx context.Context, evt Event) { s.Fn(ctx, evt) }
func (s SubscriberFunc) Topics() []string                      { return s.Listen }

// Bus is an in-memory pub/sub bus with a single dispatcher goroutine.
// Delivery is at-least-once, in publish order: the dispatcher invokes
// subscribers synchronously. Publishers that need ordering across
// concurrent producers serialize their own enqueues; the group store
// does this per shard, which is what gives subscribers monotonic
// counts per fingerprint.
type Bus struct {
	mu    sync.RWMutex
	subs  map[string][]Subscriber
	queue chan Event
	stop  chan struct{}
	done  chan struct{}
}

// NewBus constructs a Bus with the given queue depth and starts its dispatcher
func NewBus(buffer int) *Bus {
	b := &Bus{
		subs:  make(map[string][]Subscriber),
		queue: make(chan Event, buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Bus) loop() {
	defer close(b.done)
	for {
		select {
		case evt := <-b.queue:
			b.dispatch(evt)
		case <-b.stop:
			// Drain anything already queued before stopping
			for {
				select {
				case evt := <-b.queue:
					b.dispatch(evt)
				default:
					return
				}
			}
		}
	}
}

// Close stops the dispatcher after draining queued events
func (b *Bus) Close() {
	close(b.stop)
	<-b.done
}

// Register adds a subscriber for its declared topics
func (b *Bus) Register(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range sub.Topics() {
		b.subs[t] = append(b.subs[t], sub)
	}
}

// Publish enqueues an event. Blocks only if the queue is full.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	select {
	case b.queue <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-b.stop:
		return context.Canceled
	}
}

func (b *Bus) dispatch(evt Event) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[evt.Type]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s.Handle(context.Background(), evt)
	}
}
