// Package playback plays audio payloads one at a time through a platform
// output that may refuse autonomous playback until a user gesture unlocks it.
package playback

import (
	"context"
	"errors"
	"time"
)

// ErrBlocked is returned by Handle.Play when the platform rejected a
// programmatic play call.
var ErrBlocked = errors.New("playback blocked by platform autoplay policy")

type ContextState string

const (
	ContextSuspended ContextState = "suspended"
	ContextRunning   ContextState = "running"
	ContextClosed    ContextState = "closed"
)

// AudioContext is the shared audio-processing context of a session.
type AudioContext interface {
	State() ContextState
	Resume(ctx context.Context) error
	Close() error
}

// ContextFactory constructs the AudioContext on first use.
type ContextFactory func() (AudioContext, error)

// Output turns payloads into playable handles. A Load error is a load or
// decode failure.
type Output interface {
	Load(ctx context.Context, id string, payload []byte, mimeType string) (Handle, error)
}

// Handle is one playable payload.
type Handle interface {
	// Play blocks until playback completes. It returns nil when playback
	// ended normally, ErrBlocked when the platform refused it, and any other
	// error for playback failures.
	Play(ctx context.Context, volume float64) error
	Stop()
	Release()
}

// Haptics reports whether a vibration was issued.
type Haptics interface {
	Vibrate(pattern ...time.Duration) bool
}

// PreferenceStore persists the "audio enabled" choice across sessions.
type PreferenceStore interface {
	SetAudioEnabled(ctx context.Context, enabled bool) error
}
