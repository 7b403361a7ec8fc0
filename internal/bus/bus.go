// Package bus implements the real-time fan-out pipeline: a single
// process-local subscriber to the backing store's pub/sub, multiplexed to
// every connected live-view listener with explicit backpressure by
// eviction.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

const subscribePattern = "channel:queue_update:*"

// Event is the frame format carried over the bus and rendered verbatim as
// an SSE frame by the live client stream.
type Event struct {
	TicketID int64  `json:"ticket_id"`
	Number   int64  `json:"number"`
	Service  string `json:"service"`
	Counter  string `json:"counter"`
	Status   string `json:"status,omitempty"`
}

func channelName(service string) string {
	return "channel:queue_update:" + service
}

// Publisher is the outbound half of the backing pub/sub, satisfied by
// kv.PubSubService.
type Publisher interface {
	PublishEvent(channel string, event interface{}) error
}

// Subscriber is the inbound half: a pattern subscription delivering every
// message to a handler. Also satisfied by kv.PubSubService.
type Subscriber interface {
	PSubscribeToEvents(pattern string, readyChan chan<- interface{}, handler func(channel string, payload []byte) error) error
}

// Listener is one in-process consumer of the bus, one-to-one with a
// connected live-view client. Its queue is small (default 5): a slow
// client is evicted rather than allowed to stall the bus.
type Listener struct {
	id   int
	ch   chan Event
	dead chan struct{}
}

func (l *Listener) Events() <-chan Event  { return l.ch }
func (l *Listener) Done() <-chan struct{} { return l.dead }

// Bus is the process-local multiplexer. Exactly one background
// subscriber goroutine should ever run per Bus; Start is a no-op if
// already running.
type Bus struct {
	mu        sync.Mutex
	listeners []*Listener
	nextID    int
	queueSize int
	started   bool

	sub Subscriber
	log *logrus.Entry

	onEvent func(Event) // also handed every published event, e.g. the push dispatcher
}

func New(sub Subscriber, queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 5
	}
	return &Bus{
		sub:       sub,
		queueSize: queueSize,
		log:       logrus.WithFields(logrus.Fields{"component": "bus"}),
	}
}

// OnEvent registers a callback invoked for every event the bus receives,
// in addition to fan-out to listeners — the push dispatcher's hook.
func (b *Bus) OnEvent(fn func(Event)) {
	b.onEvent = fn
}

// Start attaches the single long-lived pub/sub subscriber. Calling it
// again while already running is a no-op.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	ready := make(chan interface{}, 1)
	go func() {
		err := b.sub.PSubscribeToEvents(subscribePattern, ready, func(channel string, payload []byte) error {
			var ev Event
			if err := json.Unmarshal(payload, &ev); err != nil {
				return err
			}
			b.announce(ev)
			if b.onEvent != nil {
				b.onEvent(ev)
			}
			return nil
		})
		if err != nil {
			b.log.WithError(err).Error("bus subscriber exited")
		}
	}()
	<-ready
}

// Publish sends ev out over the backing pub/sub channel for its service.
func Publish(pub Publisher, ev Event) error {
	return pub.PublishEvent(channelName(ev.Service), ev)
}

// Listen registers a new listener and returns its handle. The caller must
// eventually call Remove once the client disconnects.
func (b *Bus) Listen() *Listener {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	l := &Listener{
		id:   b.nextID,
		ch:   make(chan Event, b.queueSize),
		dead: make(chan struct{}),
	}
	b.listeners = append(b.listeners, l)
	return l
}

// Remove unregisters a listener, e.g. once its client disconnects.
func (b *Bus) Remove(l *Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, candidate := range b.listeners {
		if candidate == l {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			return
		}
	}
}

// announce delivers ev to every listener without blocking; a listener
// whose queue is full is evicted. Iteration is right-to-left so in-place
// removal never skips an index.
func (b *Bus) announce(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.listeners) - 1; i >= 0; i-- {
		l := b.listeners[i]
		select {
		case l.ch <- ev:
		default:
			close(l.dead)
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
		}
	}
}

func (e Event) String() string {
	return fmt.Sprintf("Event{ticket_id=%d number=%d service=%s counter=%s status=%s}",
		e.TicketID, e.Number, e.Service, e.Counter, e.Status)
}
