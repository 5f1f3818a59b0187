package session

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

var errRemoteClosed = errors.New("remote device disconnected")

const (
	chunkBuffer = 64
	// the browser may show a permission prompt before answering
	micTimeout    = 30 * time.Second
	resumeTimeout = 5 * time.Second
)

// Remote is the browser seen as a device. It implements audio.Microphone,
// playback.Output, playback.AudioContext and playback.Haptics.
type Remote struct {
	w   Writer
	log *logrus.Entry
	seq atomic.Uint64

	mu       sync.Mutex
	pending  map[string]chan ClientMessage
	stream   *remoteStream
	ctxState playback.ContextState
	closed   bool
}

func NewRemote(w Writer, log *logrus.Entry) *Remote {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Remote{
		w:        w,
		log:      log,
		pending:  map[string]chan ClientMessage{},
		ctxState: playback.ContextSuspended,
	}
}

func (r *Remote) nextID() string {
	return "r" + strconv.FormatUint(r.seq.Add(1), 10)
}

func (r *Remote) send(m ServerMessage) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return errRemoteClosed
	}
	return r.w.WriteJSON(m)
}

// request sends m with a fresh request id and waits for the matching ack.
func (r *Remote) request(ctx context.Context, m ServerMessage) (ClientMessage, error) {
	return r.requestWithID(ctx, r.nextID(), m)
}

// requestWithID sends m under id and waits for the matching ack. Play picks
// the id up front so Stop can name the in-flight play.
func (r *Remote) requestWithID(ctx context.Context, id string, m ServerMessage) (ClientMessage, error) {
	m.RequestID = id
	ack := make(chan ClientMessage, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ClientMessage{}, errRemoteClosed
	}
	r.pending[id] = ack
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
	}()

	if err := r.w.WriteJSON(m); err != nil {
		return ClientMessage{}, err
	}
	select {
	case msg, ok := <-ack:
		if !ok {
			return ClientMessage{}, errRemoteClosed
		}
		return msg, nil
	case <-ctx.Done():
		return ClientMessage{}, ctx.Err()
	}
}

// Resolve delivers an acknowledgement to its waiting request. It reports
// whether a request was waiting.
func (r *Remote) Resolve(msg ClientMessage) bool {
	r.mu.Lock()
	ack, ok := r.pending[msg.RequestID]
	if ok {
		delete(r.pending, msg.RequestID)
	}
	r.mu.Unlock()
	if ok {
		ack <- msg
	}
	return ok
}

// Close fails every waiting request and ends any open stream.
func (r *Remote) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	pending := r.pending
	r.pending = map[string]chan ClientMessage{}
	s := r.stream
	r.stream = nil
	r.mu.Unlock()

	for _, ack := range pending {
		close(ack)
	}
	if s != nil {
		s.end()
	}
}

// microphone

func (r *Remote) Open(ctx context.Context) (audio.Stream, error) {
	const op = "Remote.Open"

	ctx, cancel := context.WithTimeout(ctx, micTimeout)
	defer cancel()
	ack, err := r.request(ctx, ServerMessage{Type: MsgMicRequest})
	if err != nil {
		return nil, utils.E(utils.CodePermission, op, "microphone access failed", err)
	}
	switch ack.Type {
	case MsgMicGranted:
	case MsgMicDenied:
		msg := ack.Message
		if msg == "" {
			msg = "microphone access denied"
		}
		return nil, utils.E(utils.CodePermission, op, msg, nil)
	default:
		return nil, utils.E(utils.CodePermission, op, "unexpected microphone reply: "+ack.Type, nil)
	}
	if ack.SampleRate <= 0 {
		return nil, utils.E(utils.CodePermission, op, "microphone reported no sample rate", nil)
	}

	s := &remoteStream{r: r, rate: ack.SampleRate, chunks: make(chan []float32, chunkBuffer)}
	r.mu.Lock()
	prev := r.stream
	r.stream = s
	r.mu.Unlock()
	if prev != nil {
		prev.end()
	}
	return s, nil
}

// PushChunk feeds one captured chunk to the open stream. Chunks that arrive
// with no stream open are dropped.
func (r *Remote) PushChunk(b64 string) error {
	samples, err := DecodeSamples(b64)
	if err != nil {
		return utils.E(utils.CodeInvalidArgument, "Remote.PushChunk", "invalid audio chunk", err)
	}
	r.mu.Lock()
	s := r.stream
	r.mu.Unlock()
	if s == nil {
		return nil
	}
	s.push(samples)
	return nil
}

type remoteStream struct {
	r      *Remote
	rate   int
	chunks chan []float32

	mu     sync.Mutex
	closed bool
}

func (s *remoteStream) SampleRate() int           { return s.rate }
func (s *remoteStream) Chunks() <-chan []float32 { return s.chunks }

func (s *remoteStream) push(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.chunks <- samples
}

func (s *remoteStream) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.chunks)
}

// Close releases the browser microphone.
func (s *remoteStream) Close() error {
	s.r.mu.Lock()
	if s.r.stream == s {
		s.r.stream = nil
	}
	s.r.mu.Unlock()
	s.end()

	if err := s.r.send(ServerMessage{Type: MsgMicRelease}); err != nil && !errors.Is(err, errRemoteClosed) {
		return err
	}
	return nil
}

// output

func (r *Remote) Load(ctx context.Context, id string, payload []byte, mimeType string) (playback.Handle, error) {
	if len(payload) == 0 {
		return nil, errors.New("empty audio payload")
	}
	return &remoteHandle{r: r, id: id, payload: payload, mime: mimeType}, nil
}

type remoteHandle struct {
	r       *Remote
	id      string
	payload []byte
	mime    string

	mu        sync.Mutex
	requestID string
}

func (h *remoteHandle) Play(ctx context.Context, volume float64) error {
	reqID := h.r.nextID()
	h.mu.Lock()
	h.requestID = reqID
	h.mu.Unlock()

	ack, err := h.r.requestWithID(ctx, reqID, ServerMessage{
		Type:     MsgPlay,
		ItemID:   h.id,
		MimeType: h.mime,
		Audio:    base64.StdEncoding.EncodeToString(h.payload),
		Volume:   volume,
	})
	if err != nil {
		if ctx.Err() != nil {
			h.Stop()
		}
		return err
	}
	switch ack.Type {
	case MsgPlayEnded:
		return nil
	case MsgPlayBlocked:
		return playback.ErrBlocked
	default:
		msg := ack.Message
		if msg == "" {
			msg = "audio playback failed"
		}
		return errors.New(msg)
	}
}

func (h *remoteHandle) Stop() {
	h.mu.Lock()
	id := h.requestID
	h.mu.Unlock()
	if id == "" {
		return
	}
	_ = h.r.send(ServerMessage{Type: MsgStop, RequestID: id, ItemID: h.id})
}

func (h *remoteHandle) Release() {}

// audio context

// NewContext is the playback.ContextFactory for this device.
func (r *Remote) NewContext() (playback.AudioContext, error) {
	return (*remoteContext)(r), nil
}

// SetContextState mirrors an unsolicited context_state report.
func (r *Remote) SetContextState(state string) {
	switch playback.ContextState(state) {
	case playback.ContextSuspended, playback.ContextRunning, playback.ContextClosed:
		r.mu.Lock()
		r.ctxState = playback.ContextState(state)
		r.mu.Unlock()
	default:
		r.log.WithField("state", state).Debug("unknown context state ignored")
	}
}

type remoteContext Remote

func (c *remoteContext) State() playback.ContextState {
	r := (*Remote)(c)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ctxState
}

func (c *remoteContext) Resume(ctx context.Context) error {
	r := (*Remote)(c)
	ctx, cancel := context.WithTimeout(ctx, resumeTimeout)
	defer cancel()
	ack, err := r.request(ctx, ServerMessage{Type: MsgContextResume})
	if err != nil {
		return err
	}
	r.SetContextState(ack.State)
	if c.State() != playback.ContextRunning {
		return errors.New("audio context did not resume")
	}
	return nil
}

func (c *remoteContext) Close() error {
	r := (*Remote)(c)
	r.mu.Lock()
	r.ctxState = playback.ContextClosed
	r.mu.Unlock()
	if err := r.send(ServerMessage{Type: MsgContextClose}); err != nil && !errors.Is(err, errRemoteClosed) {
		return err
	}
	return nil
}

// haptics

func (r *Remote) Vibrate(pattern ...time.Duration) bool {
	ms := make([]int64, len(pattern))
	for i, p := range pattern {
		ms[i] = p.Milliseconds()
	}
	return r.send(ServerMessage{Type: MsgVibrate, Pattern: ms}) == nil
}

var (
	_ audio.Microphone      = (*Remote)(nil)
	_ playback.Output       = (*Remote)(nil)
	_ playback.Haptics      = (*Remote)(nil)
	_ playback.AudioContext = (*remoteContext)(nil)
)
