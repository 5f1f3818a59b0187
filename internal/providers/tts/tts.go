package tts

import "context"

type Provider interface {
	// Synthesize returns an audio payload and its mime type.
	Synthesize(ctx context.Context, text, language string) (audio []byte, mimeType string, err error)
	Close() error
}
