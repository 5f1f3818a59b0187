// Package realtime fans room inserts and presence counts out to every
// subscriber of a room.
package realtime

import (
	"context"
	"sync"

	"github.com/Kazorio/translation-app/internal/models"
)

type EventType string

const (
	EventInsert   EventType = "insert"
	EventPresence EventType = "presence"
)

type Event struct {
	Type  EventType                 `json:"type"`
	Entry *models.ConversationEntry `json:"entry,omitempty"`
	Count int                       `json:"count,omitempty"`
}

type Broker interface {
	PublishInsert(ctx context.Context, e *models.ConversationEntry) error
	Subscribe(ctx context.Context, roomID string) (*Subscription, error)
	// Join registers or refreshes memberID in the room's presence set.
	Join(ctx context.Context, roomID, memberID string) error
	Leave(ctx context.Context, roomID, memberID string) error
}

// Subscription delivers events in arrival order. Slow readers never block the
// publisher: pending events are buffered until read.
type Subscription struct {
	out   chan Event
	close func() error

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newSubscription(closeFn func() error) *Subscription {
	s := &Subscription{
		out:   make(chan Event),
		close: closeFn,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.pump()
	return s
}

func (s *Subscription) Events() <-chan Event { return s.out }

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.close != nil {
			err = s.close()
		}
	})
	return err
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-s.done:
				return
			}
		}
		ev := s.pending[0]
		s.pending[0] = Event{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.done:
			return
		}
	}
}
