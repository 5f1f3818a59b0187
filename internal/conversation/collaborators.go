package conversation

import (
	"context"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/playback"
)

type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, lang models.LanguageOption) (text string, confidence float64, err error)
}

type Translator interface {
	Translate(ctx context.Context, text string, from, to models.LanguageOption) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (payload []byte, mimeType string, err error)
}

// Store persists entries and broadcasts them to the room. Append returns the
// stored row with its server-assigned id and timestamp.
type Store interface {
	Append(ctx context.Context, e *models.ConversationEntry) (*models.ConversationEntry, error)
	History(ctx context.Context, roomID string) ([]models.ConversationEntry, error)
}

// Player is the session's single playback queue.
type Player interface {
	Enqueue(item playback.Item)
	Unlock(ctx context.Context) bool
}

type Recorder interface {
	Start(ctx context.Context) error
	Stop() (*audio.Recording, error)
}

// Preferences persists the participant's language for this device.
type Preferences interface {
	SetLanguage(ctx context.Context, lang *models.LanguageOption) error
}
