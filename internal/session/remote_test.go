package session

import (
	"context"
	"testing"
	"time"

	"github.com/Kazorio/translation-app/internal/logger"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	out chan ServerMessage
}

func newFakeWriter() *fakeWriter { return &fakeWriter{out: make(chan ServerMessage, 512)} }

func (w *fakeWriter) WriteJSON(v any) error {
	w.out <- v.(ServerMessage)
	return nil
}

// next returns the next message of type typ, skipping others.
func (w *fakeWriter) next(t *testing.T, typ string) ServerMessage {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m := <-w.out:
			if m.Type == typ {
				return m
			}
		case <-deadline:
			t.Fatalf("no %q message", typ)
			return ServerMessage{}
		}
	}
}

func newTestRemote() (*Remote, *fakeWriter) {
	w := newFakeWriter()
	return NewRemote(w, logrus.NewEntry(logger.Discard())), w
}

func TestSamplesRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -1, 0.25}
	out, err := DecodeSamples(EncodeSamples(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeSamples("AAA=")
	assert.Error(t, err)
	_, err = DecodeSamples("not base64!")
	assert.Error(t, err)
}

func TestOpenGrantedStreamsChunks(t *testing.T) {
	r, w := newTestRemote()

	type result struct {
		s   interface{ SampleRate() int }
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := r.Open(context.Background())
		done <- result{s, err}
	}()

	req := w.next(t, MsgMicRequest)
	require.NotEmpty(t, req.RequestID)
	assert.True(t, r.Resolve(ClientMessage{Type: MsgMicGranted, RequestID: req.RequestID, SampleRate: 48000}))

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, 48000, res.s.SampleRate())

	stream := r.stream
	require.NoError(t, r.PushChunk(EncodeSamples([]float32{0.1, 0.2})))
	assert.Equal(t, []float32{0.1, 0.2}, <-stream.Chunks())

	require.NoError(t, stream.Close())
	w.next(t, MsgMicRelease)
	_, open := <-stream.Chunks()
	assert.False(t, open)

	// no stream: dropped silently
	assert.NoError(t, r.PushChunk(EncodeSamples([]float32{0.3})))
}

func TestOpenDenied(t *testing.T) {
	r, w := newTestRemote()
	errs := make(chan error, 1)
	go func() {
		_, err := r.Open(context.Background())
		errs <- err
	}()

	req := w.next(t, MsgMicRequest)
	r.Resolve(ClientMessage{Type: MsgMicDenied, RequestID: req.RequestID, Message: "Permission denied"})

	err := <-errs
	assert.True(t, utils.IsCode(err, utils.CodePermission))
	assert.Equal(t, "Permission denied", utils.UserMessage(err))
}

func TestPlayOutcomes(t *testing.T) {
	cases := map[string]func(t *testing.T, err error){
		MsgPlayEnded:   func(t *testing.T, err error) { assert.NoError(t, err) },
		MsgPlayBlocked: func(t *testing.T, err error) { assert.ErrorIs(t, err, playback.ErrBlocked) },
		MsgPlayError:   func(t *testing.T, err error) { assert.EqualError(t, err, "decode failed") },
	}
	for ack, check := range cases {
		t.Run(ack, func(t *testing.T) {
			r, w := newTestRemote()
			h, err := r.Load(context.Background(), "e1", []byte("mp3"), "audio/mpeg")
			require.NoError(t, err)

			errs := make(chan error, 1)
			go func() { errs <- h.Play(context.Background(), 1) }()

			play := w.next(t, MsgPlay)
			assert.Equal(t, "e1", play.ItemID)
			assert.Equal(t, "audio/mpeg", play.MimeType)
			assert.Equal(t, "bXAz", play.Audio)
			r.Resolve(ClientMessage{Type: ack, RequestID: play.RequestID, Message: "decode failed"})

			check(t, <-errs)
		})
	}
}

func TestLoadRejectsEmptyPayload(t *testing.T) {
	r, _ := newTestRemote()
	_, err := r.Load(context.Background(), "e1", nil, "audio/mpeg")
	assert.Error(t, err)
}

func TestPlayCancelSendsStop(t *testing.T) {
	r, w := newTestRemote()
	h, _ := r.Load(context.Background(), "e1", []byte("x"), "audio/wav")
	ctx, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)
	go func() { errs <- h.Play(ctx, 1) }()
	play := w.next(t, MsgPlay)
	cancel()

	assert.ErrorIs(t, <-errs, context.Canceled)
	stop := w.next(t, MsgStop)
	assert.Equal(t, play.RequestID, stop.RequestID)
}

func TestCloseFailsPendingRequests(t *testing.T) {
	r, w := newTestRemote()
	errs := make(chan error, 1)
	go func() {
		_, err := r.request(context.Background(), ServerMessage{Type: MsgContextResume})
		errs <- err
	}()
	w.next(t, MsgContextResume)
	r.Close()

	assert.ErrorIs(t, <-errs, errRemoteClosed)
	_, err := r.request(context.Background(), ServerMessage{Type: MsgContextResume})
	assert.ErrorIs(t, err, errRemoteClosed)
	assert.False(t, r.Vibrate(200*time.Millisecond))
}

func TestContextMirrorsBrowserState(t *testing.T) {
	r, w := newTestRemote()
	ac, err := r.NewContext()
	require.NoError(t, err)
	assert.Equal(t, playback.ContextSuspended, ac.State())

	errs := make(chan error, 1)
	go func() { errs <- ac.Resume(context.Background()) }()
	req := w.next(t, MsgContextResume)
	r.Resolve(ClientMessage{Type: MsgContextState, RequestID: req.RequestID, State: "running"})
	require.NoError(t, <-errs)
	assert.Equal(t, playback.ContextRunning, ac.State())

	r.SetContextState("suspended")
	assert.Equal(t, playback.ContextSuspended, ac.State())
	r.SetContextState("bogus")
	assert.Equal(t, playback.ContextSuspended, ac.State())

	require.NoError(t, ac.Close())
	w.next(t, MsgContextClose)
	assert.Equal(t, playback.ContextClosed, ac.State())
}

func TestVibrateSendsPattern(t *testing.T) {
	r, w := newTestRemote()
	assert.True(t, r.Vibrate(200*time.Millisecond, 50*time.Millisecond))
	assert.Equal(t, []int64{200, 50}, w.next(t, MsgVibrate).Pattern)
}
