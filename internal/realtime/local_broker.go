package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
)

// LocalBroker is an in-process Broker for single-instance deployments.
type LocalBroker struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	members map[string]map[string]time.Time
	now     func() time.Time
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{
		subs:    map[string]map[*Subscription]struct{}{},
		members: map[string]map[string]time.Time{},
		now:     time.Now,
	}
}

func (b *LocalBroker) PublishInsert(ctx context.Context, e *models.ConversationEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs[e.RoomID] {
		cp := *e
		cp.IsMine = false
		s.push(Event{Type: EventInsert, Entry: &cp})
	}
	return nil
}

func (b *LocalBroker) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() error {
		b.mu.Lock()
		delete(b.subs[roomID], sub)
		b.mu.Unlock()
		return nil
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[roomID] == nil {
		b.subs[roomID] = map[*Subscription]struct{}{}
	}
	b.subs[roomID][sub] = struct{}{}
	sub.push(Event{Type: EventPresence, Count: b.countLocked(roomID)})
	return sub, nil
}

func (b *LocalBroker) Join(ctx context.Context, roomID, memberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.members[roomID] == nil {
		b.members[roomID] = map[string]time.Time{}
	}
	b.members[roomID][memberID] = b.now()
	b.broadcastCountLocked(roomID)
	return nil
}

func (b *LocalBroker) Leave(ctx context.Context, roomID, memberID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.members[roomID], memberID)
	b.broadcastCountLocked(roomID)
	return nil
}

func (b *LocalBroker) countLocked(roomID string) int {
	cutoff := b.now().Add(-PresenceTTL)
	for id, seen := range b.members[roomID] {
		if seen.Before(cutoff) {
			delete(b.members[roomID], id)
		}
	}
	return len(b.members[roomID])
}

func (b *LocalBroker) broadcastCountLocked(roomID string) {
	n := b.countLocked(roomID)
	for s := range b.subs[roomID] {
		s.push(Event{Type: EventPresence, Count: n})
	}
}
