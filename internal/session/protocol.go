// Package session runs one participant's connection to a room. The browser
// is driven as a remote device: the server asks it for a microphone, plays
// audio through it, and waits for its acknowledgements.
package session

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Kazorio/translation-app/internal/conversation"
	"github.com/Kazorio/translation-app/internal/playback"
	"github.com/Kazorio/translation-app/internal/utils"
)

// server -> client commands
const (
	MsgMicRequest     = "mic_request"
	MsgMicRelease     = "mic_release"
	MsgPlay           = "play"
	MsgStop           = "stop"
	MsgContextResume  = "context_resume"
	MsgContextClose   = "context_close"
	MsgVibrate        = "vibrate"
	MsgEvent          = "event"
	MsgPlaybackStatus = "playback"
	MsgState          = "state"
	MsgError          = "error"
)

// client -> server acknowledgements and reports
const (
	MsgMicGranted   = "mic_granted"
	MsgMicDenied    = "mic_denied"
	MsgAudioChunk   = "audio_chunk"
	MsgPlayEnded    = "play_ended"
	MsgPlayBlocked  = "play_blocked"
	MsgPlayError    = "play_error"
	MsgContextState = "context_state"
)

// client gestures
const (
	MsgUnlock           = "unlock"
	MsgRecordStart      = "record_start"
	MsgRecordStop       = "record_stop"
	MsgPlayBlockedAudio = "play_blocked_audio"
	MsgSetLanguage      = "set_language"
	MsgClearTranscript  = "clear_transcript"
)

type ServerMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	ItemID   string  `json:"item_id,omitempty"`
	MimeType string  `json:"mime_type,omitempty"`
	Audio    string  `json:"audio,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Pattern  []int64 `json:"pattern,omitempty"`

	Event     *conversation.Event `json:"event,omitempty"`
	Playback  *playback.Status    `json:"playback,omitempty"`
	State     *conversation.State `json:"state,omitempty"`
	SpeakerID string              `json:"speaker_id,omitempty"`

	Code    utils.Code `json:"code,omitempty"`
	Message string     `json:"message,omitempty"`
}

type ClientMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`

	SampleRate int    `json:"sample_rate,omitempty"`
	Samples    string `json:"samples,omitempty"`
	State      string `json:"state,omitempty"`
	Message    string `json:"message,omitempty"`
	ID         string `json:"id,omitempty"`
	Code       string `json:"code,omitempty"`
}

// Writer sends one JSON message to the browser. Implementations serialize
// concurrent writes.
type Writer interface {
	WriteJSON(v any) error
}

// DecodeSamples reads base64 little-endian float32 mono samples.
func DecodeSamples(b64 string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("sample payload length %d is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// EncodeSamples is the inverse of DecodeSamples.
func EncodeSamples(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}
