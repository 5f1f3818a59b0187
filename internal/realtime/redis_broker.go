package realtime

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// PresenceTTL is how long a member counts as present without a heartbeat.
const PresenceTTL = 30 * time.Second

func insertsChannel(roomID string) string  { return "room:" + roomID + ":inserts" }
func presenceKey(roomID string) string     { return "room:" + roomID + ":presence" }
func presenceChannel(roomID string) string { return "room:" + roomID + ":presence:events" }

type presenceMessage struct {
	Count int `json:"count"`
}

type RedisBroker struct {
	rdb redis.UniversalClient
	log *logrus.Entry
	now func() time.Time
}

func NewRedisBroker(rdb redis.UniversalClient, log *logrus.Logger) *RedisBroker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisBroker{
		rdb: rdb,
		log: log.WithField("component", "realtime"),
		now: time.Now,
	}
}

func (b *RedisBroker) PublishInsert(ctx context.Context, e *models.ConversationEntry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, insertsChannel(e.RoomID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (*Subscription, error) {
	ps := b.rdb.Subscribe(ctx, insertsChannel(roomID), presenceChannel(roomID))
	// wait for the subscription confirmation so nothing published after
	// Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := newSubscription(ps.Close)
	log := b.log.WithField("room_id", roomID)

	go func() {
		for m := range ps.Channel() {
			ev, ok := decodeMessage(m.Channel, m.Payload)
			if !ok {
				log.WithField("channel", m.Channel).Warn("dropping undecodable realtime message")
				continue
			}
			sub.push(ev)
		}
	}()

	if n, err := b.count(ctx, roomID); err == nil {
		sub.push(Event{Type: EventPresence, Count: n})
	}
	return sub, nil
}

func decodeMessage(channel, payload string) (Event, bool) {
	switch {
	case strings.HasSuffix(channel, ":inserts"):
		var e models.ConversationEntry
		if err := json.Unmarshal([]byte(payload), &e); err != nil || e.ID == "" {
			return Event{}, false
		}
		e.IsMine = false
		return Event{Type: EventInsert, Entry: &e}, true
	case strings.HasSuffix(channel, ":presence:events"):
		var p presenceMessage
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return Event{}, false
		}
		return Event{Type: EventPresence, Count: p.Count}, true
	}
	return Event{}, false
}

func (b *RedisBroker) Join(ctx context.Context, roomID, memberID string) error {
	score := float64(b.now().UnixMilli())
	if err := b.rdb.ZAdd(ctx, presenceKey(roomID), redis.Z{Score: score, Member: memberID}).Err(); err != nil {
		return err
	}
	_ = b.rdb.Expire(ctx, presenceKey(roomID), 2*PresenceTTL).Err()
	return b.publishCount(ctx, roomID)
}

func (b *RedisBroker) Leave(ctx context.Context, roomID, memberID string) error {
	if err := b.rdb.ZRem(ctx, presenceKey(roomID), memberID).Err(); err != nil {
		return err
	}
	return b.publishCount(ctx, roomID)
}

func (b *RedisBroker) count(ctx context.Context, roomID string) (int, error) {
	cutoff := b.now().Add(-PresenceTTL).UnixMilli()
	key := presenceKey(roomID)
	if err := b.rdb.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, err
	}
	n, err := b.rdb.ZCard(ctx, key).Result()
	return int(n), err
}

func (b *RedisBroker) publishCount(ctx context.Context, roomID string) error {
	n, err := b.count(ctx, roomID)
	if err != nil {
		return err
	}
	payload, _ := json.Marshal(presenceMessage{Count: n})
	return b.rdb.Publish(ctx, presenceChannel(roomID), payload).Err()
}
