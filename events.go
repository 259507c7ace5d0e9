package accumulate

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventQueue fans messages out to every subscriber. Each subscriber gets its
// own buffered channel and goroutine, so a slow callback never blocks
// Broadcast.
type EventQueue[T any] interface {
	On(callback func(message T)) (cleanup func())
	Broadcast(message T)
	Close()
}

type subscriber[T any] struct {
	messages chan T
	callback func(message T)
}

type eventQueue[T any] struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber[T]
	nextID      int
	closed      atomic.Bool
}

const subscriberBuffer = 100

func NewEventQueue[T any]() EventQueue[T] {
	return &eventQueue[T]{
		subscribers: make(map[int]*subscriber[T]),
	}
}

func (q *eventQueue[T]) On(callback func(message T)) (cleanup func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed.Load() {
		return func() {}
	}

	id := q.nextID
	q.nextID++

	sub := &subscriber[T]{
		messages: make(chan T, subscriberBuffer),
		callback: callback,
	}
	q.subscribers[id] = sub

	go func() {
		for msg := range sub.messages {
			sub.callback(msg)
		}
	}()

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if s, exists := q.subscribers[id]; exists {
			delete(q.subscribers, id)
			close(s.messages)
		}
	}
}

// Broadcast drops the message for any subscriber whose buffer is full.
func (q *eventQueue[T]) Broadcast(message T) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed.Load() {
		return
	}

	for _, sub := range q.subscribers {
		select {
		case sub.messages <- message:
		default:
			globalLog.Warn().Msg("event subscriber is falling behind, dropping message")
		}
	}
}

func (q *eventQueue[T]) Close() {
	if q.closed.Swap(true) {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, sub := range q.subscribers {
		close(sub.messages)
	}
	q.subscribers = make(map[int]*subscriber[T])
}

type CoordinatorEventType string

const (
	EventPrepared  CoordinatorEventType = "prepared"
	EventSubmitted CoordinatorEventType = "submitted"
	EventRejected  CoordinatorEventType = "rejected"
	EventExpired   CoordinatorEventType = "expired"
)

// CoordinatorEvent reports a change in the lifecycle of prepared
// transactions. Expired events from a sweep carry a Count and no RequestID.
type CoordinatorEvent struct {
	Type            CoordinatorEventType `json:"type"`
	RequestID       string               `json:"requestId,omitempty"`
	TransactionHash HexBytes             `json:"transactionHash,omitempty"`
	Count           int                  `json:"count,omitempty"`
	Error           string               `json:"error,omitempty"`
	At              time.Time            `json:"at"`
}
