package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

type Topic string

const (
	TopicTimerUpdate    Topic = "timer_update"
	TopicRoundRolled    Topic = "round_rolled"
	TopicRoundReset     Topic = "round_reset"
	TopicSyncSnapshot   Topic = "sync_snapshot"
	TopicNewPublicBet   Topic = "new_public_bet"
	TopicNewChatMessage Topic = "new_chat_message"
)

type Event struct {
	Topic   Topic `json:"event"`
	Payload any   `json:"data"`
}

type Publisher interface {
	Publish(topic Topic, payload any)
}

const defaultBuffer = 32

// Hub fans events out to subscribers. Delivery is best-effort: a subscriber
// whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscription
	buffer      int
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscription),
		buffer:      defaultBuffer,
	}
}

type Subscription struct {
	id     string
	topics map[Topic]struct{}
	ch     chan Event
	hub    *Hub
	once   sync.Once
}

// Subscribe registers for the given topics, or for every topic when none are given.
func (h *Hub) Subscribe(topics ...Topic) *Subscription {
	sub := &Subscription{
		id:  uuid.New().String(),
		ch:  make(chan Event, h.buffer),
		hub: h,
	}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.id] = sub
	return sub
}

func (h *Hub) Publish(topic Topic, payload any) {
	event := Event{Topic: topic, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subscribers {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Subscriber is behind, skip (don't block)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

func (s *Subscription) wants(topic Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subscribers, s.id)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
