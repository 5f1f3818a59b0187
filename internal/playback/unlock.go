package playback

import (
	"context"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
)

const (
	unlockItemID   = "unlock"
	unlockVolume   = 0.01
	unlockTimeout  = 5 * time.Second
	unlockRate     = 44100
	unlockDuration = 0.1
)

// Unlock performs the gesture-gated unlock: resume the shared context, play
// a near-silent buffer, then mark the session unlocked whatever the outcome.
// It reports whether the silent buffer played. Calling it again only resumes
// a re-suspended context.
func (q *Queue) Unlock(ctx context.Context) bool {
	q.resumeContext(ctx)

	q.mu.Lock()
	already, closed := q.unlocked, q.closed
	q.mu.Unlock()
	if closed {
		return false
	}
	if already {
		return true
	}

	playCtx, cancel := context.WithTimeout(ctx, unlockTimeout)
	defer cancel()

	err := q.play(playCtx, Item{
		ID:       unlockItemID,
		Payload:  audio.SilentWAV(unlockRate, unlockDuration),
		MimeType: "audio/wav",
	}, unlockVolume, false)
	if err != nil {
		q.log.WithError(err).Warn("silent unlock buffer failed; autoplay may still be blocked")
	} else {
		q.log.Info("audio unlocked")
	}

	q.mu.Lock()
	q.unlocked = true
	q.mu.Unlock()

	if q.opts.Preferences != nil {
		if perr := q.opts.Preferences.SetAudioEnabled(ctx, true); perr != nil {
			q.log.WithError(perr).Warn("failed to persist audio preference")
		}
	}
	q.notify()
	return err == nil
}
