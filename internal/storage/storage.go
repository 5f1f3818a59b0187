package storage

import (
	"context"
	"io"
	"time"
)

const ContentTypeWAV = "audio/wav"

type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// Signer hands out temporary read access to a private object.
type Signer interface {
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// UtteranceObject is the object name of an archived utterance recording,
// one prefix per room.
func UtteranceObject(roomID, utteranceID string) string {
	return "utterances/" + roomID + "/" + utteranceID + ".wav"
}
