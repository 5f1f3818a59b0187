package stt

import "context"

// Provider turns one recorded WAV utterance into text. language is a locale
// tag such as "de-DE"; an empty transcript is not an error here.
type Provider interface {
	Transcribe(ctx context.Context, wav []byte, language string) (text string, confidence float64, err error)
	Close() error
}
