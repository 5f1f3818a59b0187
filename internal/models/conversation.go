package models

import (
	"regexp"
	"time"

	"gorm.io/datatypes"
)

type SpeakerRole string

const (
	SpeakerSelf    SpeakerRole = "self"
	SpeakerPartner SpeakerRole = "partner"
)

func (r SpeakerRole) Valid() bool { return r == SpeakerSelf || r == SpeakerPartner }

// ConversationEntry is one exchanged utterance.
// IsMine is computed per viewer and never persisted.
type ConversationEntry struct {
	ID             string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RoomID         string         `gorm:"column:room_id;type:text;index:idx_room_created,priority:1" json:"room_id"`
	Speaker        SpeakerRole    `gorm:"column:speaker_role;type:text" json:"speaker"`
	SpeakerID      string         `gorm:"column:speaker_id;type:text" json:"speaker_id"`
	OriginalText   string         `gorm:"column:original_text;type:text" json:"original_text"`
	TranslatedText string         `gorm:"column:translated_text;type:text" json:"translated_text"`
	SourceLanguage string         `gorm:"column:source_language;type:text" json:"source_language"`
	TargetLanguage string         `gorm:"column:target_language;type:text" json:"target_language"`
	CreatedAt      time.Time      `gorm:"column:created_at;type:timestamptz;index:idx_room_created,priority:2" json:"created_at"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	IsMine bool `gorm:"-" json:"is_mine"`
}

func (ConversationEntry) TableName() string { return "trans-app_conversations" }

// EntryMetadata is stored in the jsonb metadata column.
type EntryMetadata struct {
	CaptureMS  int64   `json:"capture_ms,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type ConversationStatus string

const (
	StatusIdle       ConversationStatus = "idle"
	StatusRecording  ConversationStatus = "recording"
	StatusProcessing ConversationStatus = "processing"
	StatusError      ConversationStatus = "error"
)

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidRoomID reports whether id is a non-empty URL-safe room identifier.
func ValidRoomID(id string) bool { return roomIDPattern.MatchString(id) }
