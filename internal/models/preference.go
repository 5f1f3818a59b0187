package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DevicePreference replaces the browser's local storage: it survives across
// sessions of the same device.
type DevicePreference struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	DeviceID     string             `bson:"device_id" json:"device_id"`
	SpeakerID    string             `bson:"speaker_id" json:"speaker_id"`
	Language     *LanguageOption    `bson:"language,omitempty" json:"language,omitempty"`
	AudioEnabled bool               `bson:"audio_enabled" json:"audio_enabled"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}
