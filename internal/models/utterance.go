package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ArchiveStatus string

const (
	ArchivePending  ArchiveStatus = "pending"
	ArchiveArchived ArchiveStatus = "archived"
	ArchiveFailed   ArchiveStatus = "failed"
)

// UtteranceAudio holds a recorded WAV until the archive worker moves it to
// object storage. Expired by TTL index on expires_at.
type UtteranceAudio struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UtteranceID string             `bson:"utterance_id" json:"utterance_id"`
	RoomID      string             `bson:"room_id" json:"room_id"`
	SpeakerID   string             `bson:"speaker_id" json:"speaker_id"`
	Language    string             `bson:"language" json:"language"`

	AudioWAV   []byte  `bson:"audio_wav,omitempty" json:"-"`
	DurationS  float64 `bson:"duration_s" json:"duration_s"`
	SampleRate uint32  `bson:"sample_rate" json:"sample_rate"`

	Status     ArchiveStatus `bson:"status" json:"status"`
	ObjectPath string        `bson:"object_path,omitempty" json:"object_path,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}
