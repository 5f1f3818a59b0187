package conversation

import (
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
)

type EventType string

const (
	EventStatus            EventType = "status"
	EventHistory           EventType = "history"
	EventEntryAdded        EventType = "entry_added"
	EventEntryUpdated      EventType = "entry_updated"
	EventRetranslating     EventType = "retranslating"
	EventUserCount         EventType = "user_count"
	EventTranscriptCleared EventType = "transcript_cleared"
	EventLanguage          EventType = "language"
	EventAudioEnabled      EventType = "audio_enabled"
)

// Event is pushed to the session listener. Only the fields relevant to Type
// are set.
type Event struct {
	Type EventType `json:"type"`

	Status    models.ConversationStatus `json:"status,omitempty"`
	ErrorCode utils.Code                `json:"error_code,omitempty"`
	Error     string                    `json:"error,omitempty"`

	Entry   *models.ConversationEntry  `json:"entry,omitempty"`
	Entries []models.ConversationEntry `json:"entries,omitempty"`

	Retranslating []string               `json:"retranslating,omitempty"`
	UserCount     int                    `json:"user_count"`
	Language      *models.LanguageOption `json:"language,omitempty"`
	AudioEnabled  bool                   `json:"audio_enabled,omitempty"`
}

type Listener func(Event)

// State is a point-in-time copy of the orchestrator state.
type State struct {
	Status        models.ConversationStatus  `json:"status"`
	Error         string                     `json:"error,omitempty"`
	Entries       []models.ConversationEntry `json:"entries"`
	Retranslating []string                   `json:"retranslating"`
	UserCount     int                        `json:"user_count"`
	Language      *models.LanguageOption     `json:"language,omitempty"`
	AudioEnabled  bool                       `json:"audio_enabled"`
}
