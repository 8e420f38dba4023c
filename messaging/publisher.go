package messaging

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ZaguanLabs/pagetl"
)

// Publisher delivers messages to whoever listens.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// PublishTimeout bounds a publish made on behalf of an observer.
const PublishTimeout = 5 * time.Second

// Observer publishes every run event. Failed publishes are logged and
// dropped: listeners may come and go during a run.
func Observer(pub Publisher, logger *slog.Logger) pagetl.Observer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return pagetl.ObserverFunc(func(ev pagetl.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		msg := FromEvent(ev)
		if err := pub.Publish(ctx, msg); err != nil {
			logger.Warn("event publish failed", "type", msg.Type, "run", ev.RunID, "error", err)
		}
	})
}

// Bus fans messages out to in-process subscribers. A subscriber whose
// buffer is full misses the message instead of blocking the publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]chan Message
	next   int
	closed bool
	logger *slog.Logger
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bus{subs: make(map[int]chan Message), logger: logger}
}

// Subscribe returns a channel receiving subsequent messages and a function
// that cancels the subscription.
func (b *Bus) Subscribe(buffer int) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

// Publish delivers msg to every subscriber with room for it.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			b.logger.Debug("subscriber too slow, message dropped", "subscriber", id, "type", msg.Type)
		}
	}
	return nil
}

// Close ends every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}

// Verify Bus implements Publisher
var _ Publisher = (*Bus)(nil)
