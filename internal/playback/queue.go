package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	DefaultGap       = 100 * time.Millisecond
	blockedVibration = 200 * time.Millisecond
)

// Item is one audio payload waiting for playback. ID matches the
// conversation entry it carries, or a synthetic id for ephemeral sounds.
type Item struct {
	ID       string
	Payload  []byte
	MimeType string

	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// Status is a snapshot of the queue for UI mirroring.
type Status struct {
	Playing       bool     `json:"playing"`
	CurrentItemID string   `json:"current_item_id,omitempty"`
	Unlocked      bool     `json:"unlocked"`
	Blocked       []string `json:"blocked"`
	Pending       int      `json:"pending"`
}

type Options struct {
	Gap         time.Duration
	Haptics     Haptics
	Preferences PreferenceStore
	OnChange    func(Status)
	Logger      *logrus.Entry
}

// Queue plays items strictly in enqueue order, never two at once. Items the
// platform refuses to autoplay are retained for PlayBlockedAudio.
type Queue struct {
	newContext ContextFactory
	out        Output
	opts       Options
	log        *logrus.Entry

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	audioCtx     AudioContext
	pending      []Item
	current      *Item
	handle       Handle
	draining     bool
	unlocked     bool
	closed       bool
	blocked      map[string]Item
	blockedOrder []string
}

func NewQueue(newContext ContextFactory, out Output, opts Options) *Queue {
	if opts.Gap < 0 {
		opts.Gap = 0
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	base, cancel := context.WithCancel(context.Background())
	return &Queue{
		newContext: newContext,
		out:        out,
		opts:       opts,
		log:        log.WithField("component", "playback"),
		base:       base,
		cancel:     cancel,
		blocked:    map[string]Item{},
	}
}

// Enqueue appends item and starts playback if the queue is idle.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.log.WithField("item_id", item.ID).Debug("enqueue after close dropped")
		return
	}
	q.pending = append(q.pending, item)
	start := !q.draining
	if start {
		q.draining = true
		q.wg.Add(1)
	}
	q.mu.Unlock()

	q.log.WithField("item_id", item.ID).Debug("enqueued")
	q.notify()
	if start {
		go q.drain()
	}
}

func (q *Queue) drain() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		if q.closed || len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.pending[0]
		q.pending[0] = Item{}
		q.pending = q.pending[1:]
		q.current = &item
		q.mu.Unlock()
		q.notify()

		q.playQueued(item)

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
		q.notify()

		if q.opts.Gap > 0 {
			select {
			case <-q.base.Done():
			case <-time.After(q.opts.Gap):
			}
		}
	}
}

func (q *Queue) playQueued(item Item) {
	log := q.log.WithField("item_id", item.ID)
	q.resumeContext(q.base)

	if item.OnStart != nil {
		item.OnStart()
	}

	err := q.play(q.base, item, 1, true)
	switch {
	case err == nil:
		log.Debug("ended")
		if item.OnEnd != nil {
			item.OnEnd()
		}
	case errors.Is(err, ErrBlocked):
		log.Info("autoplay blocked; retained for manual replay")
		q.retain(item)
		if q.opts.Haptics != nil {
			q.opts.Haptics.Vibrate(blockedVibration)
		}
		if item.OnError != nil {
			item.OnError(utils.E(utils.CodePlaybackBlocked, "Queue.play", "tap to play the message", err))
		}
	case errors.Is(err, context.Canceled) || q.base.Err() != nil:
		log.Debug("stopped by teardown")
	default:
		log.WithError(err).Warn("playback failed")
		if item.OnError != nil {
			item.OnError(utils.E(utils.CodeInternal, "Queue.play", "audio playback failed", err))
		}
	}
}

// play loads and plays one payload. tracked handles are stopped by Close.
func (q *Queue) play(ctx context.Context, item Item, volume float64, tracked bool) error {
	h, err := q.out.Load(ctx, item.ID, item.Payload, item.MimeType)
	if err != nil {
		return err
	}
	defer h.Release()

	if tracked {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return context.Canceled
		}
		q.handle = h
		q.mu.Unlock()
		defer func() {
			q.mu.Lock()
			q.handle = nil
			q.mu.Unlock()
		}()
	}
	return h.Play(ctx, volume)
}

func (q *Queue) retain(item Item) {
	q.mu.Lock()
	if _, ok := q.blocked[item.ID]; !ok {
		q.blockedOrder = append(q.blockedOrder, item.ID)
	}
	q.blocked[item.ID] = item
	q.mu.Unlock()
	q.notify()
}

// PlayBlockedAudio replays a retained item out of band. It must be driven by
// a fresh user gesture. If the platform blocks it again it stays retained.
func (q *Queue) PlayBlockedAudio(ctx context.Context, id string) error {
	const op = "Queue.PlayBlockedAudio"

	q.mu.Lock()
	item, ok := q.blocked[id]
	if ok {
		delete(q.blocked, id)
		q.blockedOrder = removeID(q.blockedOrder, id)
	}
	closed := q.closed
	q.mu.Unlock()

	if !ok {
		return utils.E(utils.CodeNotFound, op, "no blocked audio for id", nil)
	}
	if closed {
		return utils.E(utils.CodeUnavailable, op, "playback closed", nil)
	}
	q.notify()

	q.resumeContext(ctx)
	err := q.play(ctx, item, 1, false)
	switch {
	case err == nil:
		if item.OnEnd != nil {
			item.OnEnd()
		}
		return nil
	case errors.Is(err, ErrBlocked):
		q.retain(item)
		return utils.E(utils.CodePlaybackBlocked, op, "playback still blocked", err)
	default:
		return utils.E(utils.CodeInternal, op, "audio playback failed", err)
	}
}

// Close stops in-flight playback, drops pending items and releases the
// audio context.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.pending = nil
	h := q.handle
	ac := q.audioCtx
	q.audioCtx = nil
	q.mu.Unlock()

	if h != nil {
		h.Stop()
	}
	q.cancel()
	q.wg.Wait()

	if ac != nil {
		return ac.Close()
	}
	return nil
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := Status{
		Playing:  q.current != nil,
		Unlocked: q.unlocked,
		Blocked:  append([]string{}, q.blockedOrder...),
		Pending:  len(q.pending),
	}
	if q.current != nil {
		s.CurrentItemID = q.current.ID
	}
	return s
}

func (q *Queue) IsUnlocked() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unlocked
}

// sharedContext returns the shared audio context, constructing it on first use.
func (q *Queue) sharedContext() AudioContext {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.audioCtx != nil || q.closed || q.newContext == nil {
		return q.audioCtx
	}
	ac, err := q.newContext()
	if err != nil {
		q.log.WithError(err).Warn("audio context unavailable")
		return nil
	}
	q.audioCtx = ac
	return ac
}

func (q *Queue) resumeContext(ctx context.Context) {
	ac := q.sharedContext()
	if ac == nil || ac.State() != ContextSuspended {
		return
	}
	if err := ac.Resume(ctx); err != nil {
		q.log.WithError(err).Warn("audio context resume failed")
	}
}

func (q *Queue) notify() {
	if q.opts.OnChange != nil {
		q.opts.OnChange(q.Status())
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
