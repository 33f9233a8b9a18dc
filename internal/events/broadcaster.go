package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/awlondon/openclaw/internal/logging"
)

// Observer receives published events.
type Observer func(Event)

// Broadcaster delivers every published event to all registered observers,
// in registration order. Registration and publishing are safe for
// concurrent use.
type Broadcaster struct {
	mu        sync.RWMutex
	observers map[int64]Observer
	order     []int64
	next      int64
	log       *logging.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(log *logging.Logger) *Broadcaster {
	if log == nil {
		log = logging.NewNop()
	}
	return &Broadcaster{
		observers: make(map[int64]Observer),
		log:       log.Named("events"),
	}
}

// Register adds an observer and returns its id for Unregister.
func (b *Broadcaster) Register(obs Observer) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.observers[id] = obs
	b.order = append(b.order, id)
	return id
}

// Unregister removes an observer. Unknown ids are ignored.
func (b *Broadcaster) Unregister(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.observers[id]; !ok {
		return
	}
	delete(b.observers, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers the event to every registered observer. Observers run
// synchronously on the caller's goroutine.
func (b *Broadcaster) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	observers := make([]Observer, 0, len(b.order))
	for _, id := range b.order {
		observers = append(observers, b.observers[id])
	}
	b.mu.RUnlock()

	b.log.Debug(ctx, "publishing event",
		zap.String("type", string(e.Type)),
		zap.String("repo", e.Repo),
		zap.Int("observers", len(observers)))
	for _, obs := range observers {
		obs(e)
	}
}
