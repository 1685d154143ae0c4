// Package events carries best-effort fan-out of session state changes to
// live listeners. Delivery is fire-and-forget: events reach the listeners
// subscribed at publish time, in publish order per session, with no replay
// buffer for late joiners and no acknowledgment.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// subscriptionBuffer is how many undelivered events a single listener may
// lag behind before newer events are dropped for it. Producers never block.
const subscriptionBuffer = 64

// Subscription is one listener's handle on a session's event channel.
type Subscription struct {
	sessionID string
	events    chan Event
}

// Events exposes the receive side. The channel is closed on Unsubscribe.
// Reading it blocks cooperatively until the next event arrives.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Hub maintains the set of live subscriptions per session and broadcasts
// events to them.
type Hub struct {
	mu            sync.Mutex
	subscriptions map[string]map[*Subscription]struct{}
	logger        *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subscriptions: make(map[string]map[*Subscription]struct{}),
		logger:        logger,
	}
}

// Subscribe registers a listener on the session's channel. Events published
// before the subscription never arrive.
func (h *Hub) Subscribe(sessionID string) *Subscription {
	sub := &Subscription{
		sessionID: sessionID,
		events:    make(chan Event, subscriptionBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscriptions[sessionID] == nil {
		h.subscriptions[sessionID] = make(map[*Subscription]struct{})
	}
	h.subscriptions[sessionID][sub] = struct{}{}

	h.logger.Debug("Listener subscribed", zap.String("session_id", sessionID))
	return sub
}

// Unsubscribe removes the listener and closes its channel.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscriptions[sub.sessionID]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscriptions, sub.sessionID)
	}
	close(sub.events)

	h.logger.Debug("Listener unsubscribed", zap.String("session_id", sub.sessionID))
}

// Publish broadcasts the event to the session's current listeners. The send
// is non-blocking: a listener whose buffer is full loses the event rather
// than stalling the producer. Holding the lock across the fan-out keeps
// per-channel publish order intact under concurrent producers.
func (h *Hub) Publish(sessionID string, event Event) {
	event.SessionID = sessionID

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscriptions[sessionID] {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("Dropping event for slow listener",
				zap.String("session_id", sessionID),
				zap.String("type", string(event.Type)))
		}
	}
}
