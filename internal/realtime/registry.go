package realtime

import (
	"encoding/json"
	"sync"
)

// Handler receives the raw payload of one domain event.
type Handler func(params json.RawMessage)

type subscription struct {
	id      int
	handler Handler
}

// handlerRegistry holds the (event, handler) pairs for a client. The
// registry itself is the durable thing: dispatch walks it once per
// inbound event, so registrations made before the first connect are
// never lost and a reconnect cannot attach a handler twice.
type handlerRegistry struct {
	mu sync.RWMutex

	nextId  int
	byEvent map[string][]subscription
}

func newHandlerRegistry() *handlerRegistry {
	return &handlerRegistry{
		byEvent: make(map[string][]subscription),
	}
}

func (r *handlerRegistry) add(event string, handler Handler) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextId++
	r.byEvent[event] = append(r.byEvent[event], subscription{
		id:      r.nextId,
		handler: handler,
	})

	return r.nextId
}

// dispatch invokes every handler for event in registration order and
// reports how many ran.
func (r *handlerRegistry) dispatch(event string, params json.RawMessage) int {
	r.mu.RLock()
	subscriptions := make([]subscription, len(r.byEvent[event]))
	copy(subscriptions, r.byEvent[event])
	r.mu.RUnlock()

	for _, s := range subscriptions {
		s.handler(params)
	}

	return len(subscriptions)
}

func (r *handlerRegistry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, subscriptions := range r.byEvent {
		total += len(subscriptions)
	}

	return total
}
