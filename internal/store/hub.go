// Package store exposes the collections as live subscriptions. Every subscriber
// receives the full document set it may see, first on subscribe and again after
// each change to the collection.
package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/plant-maintenance/internal"
	"github.com/frahmantamala/plant-maintenance/internal/auth"
	"github.com/frahmantamala/plant-maintenance/internal/core/events"
	"github.com/frahmantamala/plant-maintenance/internal/metrics"
)

// Loader returns the documents of one collection as seen by p.
type Loader func(ctx context.Context, p *auth.Principal) (interface{}, error)

type Snapshot struct {
	Collection string      `json:"collection"`
	Documents  interface{} `json:"documents"`
	Sequence   uint64      `json:"sequence"`
	At         time.Time   `json:"at"`
}

var ErrUnknownCollection = internal.NewValidationFieldError("collection", "unknown collection", internal.ErrCodeUnknownCollection)

type subscription struct {
	id         uint64
	collection string
	principal  *auth.Principal
	onChange   func(Snapshot)
	// serialises pushes so a subscriber never sees snapshots out of order
	mu     sync.Mutex
	last   uint64
	pushed bool
}

// push delivers snap unless a newer snapshot already went out. Callers hold s.mu.
func (s *subscription) push(snap Snapshot) {
	if s.pushed && snap.Sequence <= s.last {
		return
	}
	s.pushed = true
	s.last = snap.Sequence
	s.onChange(snap)
}

type Hub struct {
	mu       sync.RWMutex
	loaders  map[string]Loader
	subs     map[string]map[uint64]*subscription
	sequence map[string]uint64
	nextID   uint64
	logger   *slog.Logger
	now      func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		loaders:  make(map[string]Loader),
		subs:     make(map[string]map[uint64]*subscription),
		sequence: make(map[string]uint64),
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Hub) Register(collection string, loader Loader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loaders[collection] = loader
}

func (h *Hub) Collections() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.loaders))
	for name := range h.loaders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (h *Hub) Known(collection string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.loaders[collection]
	return ok
}

// GetAll is the one-shot read of a collection.
func (h *Hub) GetAll(ctx context.Context, collection string, p *auth.Principal) (Snapshot, error) {
	h.mu.RLock()
	loader, ok := h.loaders[collection]
	seq := h.sequence[collection]
	h.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrUnknownCollection
	}

	docs, err := loader(ctx, p)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Collection: collection, Documents: docs, Sequence: seq, At: h.now()}, nil
}

// Subscribe pushes the current snapshot to onChange and then one per change until
// the returned unsubscribe is called. Callers must call it to release the subscription.
// The subscription is registered before the first load so no change is missed; a
// newer snapshot from Notify supersedes the initial one.
func (h *Hub) Subscribe(ctx context.Context, collection string, p *auth.Principal, onChange func(Snapshot)) (func(), error) {
	if p == nil {
		return nil, auth.ErrProfileNotFound
	}

	h.mu.Lock()
	loader, ok := h.loaders[collection]
	if !ok {
		h.mu.Unlock()
		return nil, ErrUnknownCollection
	}
	h.nextID++
	sub := &subscription{id: h.nextID, collection: collection, principal: p, onChange: onChange}
	if h.subs[collection] == nil {
		h.subs[collection] = make(map[uint64]*subscription)
	}
	h.subs[collection][sub.id] = sub
	seq := h.sequence[collection]
	h.mu.Unlock()

	metrics.ActiveSubscriptions.WithLabelValues(collection).Inc()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[collection], sub.id)
			h.mu.Unlock()
			metrics.ActiveSubscriptions.WithLabelValues(collection).Dec()
			h.logger.Debug("subscription closed", "collection", collection, "subscription_id", sub.id)
		})
	}

	docs, err := loader(ctx, p)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	h.logger.Debug("subscription opened", "collection", collection, "subscription_id", sub.id, "user_id", p.ID)

	sub.mu.Lock()
	sub.push(Snapshot{Collection: collection, Documents: docs, Sequence: seq, At: h.now()})
	sub.mu.Unlock()

	return unsubscribe, nil
}

// Notify reloads the collection for every subscriber and pushes the result.
func (h *Hub) Notify(ctx context.Context, collection string) {
	h.mu.Lock()
	loader, ok := h.loaders[collection]
	h.sequence[collection]++
	seq := h.sequence[collection]
	subs := make([]*subscription, 0, len(h.subs[collection]))
	for _, s := range h.subs[collection] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	for _, sub := range subs {
		docs, err := loader(ctx, sub.principal)
		if err != nil {
			h.logger.Warn("failed to refresh subscription",
				"collection", collection,
				"subscription_id", sub.id,
				"user_id", sub.principal.ID,
				"error", err)
			continue
		}

		sub.mu.Lock()
		sub.push(Snapshot{Collection: collection, Documents: docs, Sequence: seq, At: h.now()})
		sub.mu.Unlock()
	}
}

func (h *Hub) Subscribers(collection string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[collection])
}

// HandleEvent refreshes the collection named by a collection.changed event.
func (h *Hub) HandleEvent(ctx context.Context, e events.Event) error {
	ev, ok := e.(*events.CollectionChangedEvent)
	if !ok {
		return nil
	}
	h.Notify(ctx, ev.Collection)
	return nil
}

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

func (h *Hub) Listen(bus Subscriber) {
	bus.Subscribe(events.EventTypeCollectionChanged, h.HandleEvent)
}
