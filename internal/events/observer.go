package events

import (
	"sync"

	"github.com/campusgrid/forum-service/internal/domain"
	"github.com/google/uuid"
)

// Event types fanned out to question subscribers.
const (
	TypeReplyCreated = "reply_created"
	TypeReplyLiked   = "reply_liked"
)

// Event is one update on a question's thread.
type Event struct {
	Type  string        `json:"type"`
	Reply *domain.Reply `json:"reply"`
}

// Observer fans out reply events to websocket subscribers per question.
// Publishing never blocks the mutation path: subscribers that cannot keep up
// have events dropped on the floor.
type Observer struct {
	mu sync.RWMutex
	//          map[questionID] map[subscriberID] channel
	subs map[string]map[string]chan Event
}

func NewObserver() *Observer {
	return &Observer{
		subs: make(map[string]map[string]chan Event),
	}
}

// Subscribe registers a subscriber for a question's events and returns the
// event channel plus a cancel function that must be called on disconnect.
func (o *Observer) Subscribe(questionID string) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	subID := uuid.NewString()

	o.mu.Lock()
	if o.subs[questionID] == nil {
		o.subs[questionID] = make(map[string]chan Event)
	}
	o.subs[questionID][subID] = ch
	o.mu.Unlock()

	cancel := func() {
		o.mu.Lock()
		if qSubs, ok := o.subs[questionID]; ok {
			delete(qSubs, subID)
			if len(qSubs) == 0 {
				delete(o.subs, questionID)
			}
		}
		o.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of the question.
func (o *Observer) Publish(questionID string, ev Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[questionID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is not reading fast enough; skip it.
		}
	}
}
