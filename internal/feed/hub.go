// Package feed distributes live resource changes to data source sessions.
package feed

import (
	"sync"

	"github.com/google/uuid"

	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/source"
)

// Event is one batch of resource changes.
type Event struct {
	Updated []resource.Resource
	Deleted []uuid.UUID
}

// Empty reports whether the event carries no changes.
func (e Event) Empty() bool {
	return len(e.Updated) == 0 && len(e.Deleted) == 0
}

// ForFilter narrows e to a subscriber's filter. Updated resources that no
// longer match are reported as deleted, so a resource leaving a pool drops
// out of that pool's view.
func (e Event) ForFilter(f source.Filter) Event {
	out := Event{Deleted: append([]uuid.UUID(nil), e.Deleted...)}
	for _, r := range e.Updated {
		if f.Matches(r) {
			out.Updated = append(out.Updated, r)
		} else {
			out.Deleted = append(out.Deleted, r.ID)
		}
	}
	return out
}

// Handler processes an event delivered to a subscription.
type Handler func(Event)

// Subscription is a registered interest in resource changes.
type Subscription struct {
	id      uuid.UUID
	filter  source.Filter
	handler Handler
}

// Filter returns the filter the subscription was created with.
func (s *Subscription) Filter() source.Filter {
	return s.filter
}

// Hub fans published events out to subscriptions.
type Hub struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

// NewHub creates a hub without subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[uuid.UUID]*Subscription)}
}

// Subscribe registers handler for every event matching filter.
func (h *Hub) Subscribe(filter source.Filter, handler Handler) *Subscription {
	sub := &Subscription{id: uuid.New(), filter: filter, handler: handler}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes sub. Unknown or nil subscriptions are ignored.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, sub.id)
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers ev to every subscription, synchronously, on the caller's goroutine.
func (h *Hub) Publish(ev Event) {
	if ev.Empty() {
		return
	}

	h.mu.RLock()
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		filtered := ev.ForFilter(sub.filter)
		if filtered.Empty() {
			continue
		}
		sub.handler(filtered)
	}
}
