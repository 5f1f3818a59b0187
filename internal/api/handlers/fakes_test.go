package handlers

import (
	"context"
	"strconv"
	"sync"

	"github.com/Kazorio/translation-app/internal/languages"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
)

type fakeConversations struct {
	mu   sync.Mutex
	rows []models.ConversationEntry
	err  error
}

func (f *fakeConversations) Append(ctx context.Context, e *models.ConversationEntry) (*models.ConversationEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	if e.OriginalText == "" {
		return nil, utils.E(utils.CodeInvalidArgument, "fake", "original_text is required", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row := *e
	row.ID = "row-" + strconv.Itoa(len(f.rows)+1)
	f.rows = append(f.rows, row)
	return &row, nil
}

func (f *fakeConversations) History(ctx context.Context, roomID string) ([]models.ConversationEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ConversationEntry
	for _, r := range f.rows {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeConversations) Get(ctx context.Context, id string) (*models.ConversationEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, utils.E(utils.CodeNotFound, "fake", "entry not found", nil)
}

type fakeSpeech struct {
	lastLocale string
}

func (f *fakeSpeech) Transcribe(ctx context.Context, wav []byte, lang models.LanguageOption) (string, float64, error) {
	f.lastLocale = lang.Locale
	return "Bonjour", 0.75, nil
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text, language string) ([]byte, string, error) {
	return []byte("ID3" + text), "audio/mpeg", nil
}

type fakeTranslation struct{}

func (fakeTranslation) Translate(ctx context.Context, text string, from, to models.LanguageOption) (string, error) {
	if to.Code == "xx" {
		return "", utils.E(utils.CodeTranslation, "fake", "translation failed: model unavailable", nil)
	}
	return from.Code + ">" + to.Code + ":" + text, nil
}

type fakePreferences struct {
	mu    sync.Mutex
	prefs map[string]*models.DevicePreference
}

func newFakePreferences() *fakePreferences {
	return &fakePreferences{prefs: map[string]*models.DevicePreference{}}
}

func (f *fakePreferences) Get(ctx context.Context, deviceID string) (*models.DevicePreference, error) {
	if !models.ValidRoomID(deviceID) {
		return nil, utils.E(utils.CodeInvalidArgument, "fake", "a valid device_id is required", nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prefs[deviceID]
	if !ok {
		p = &models.DevicePreference{DeviceID: deviceID, SpeakerID: "speaker-" + deviceID}
		f.prefs[deviceID] = p
	}
	cp := *p
	return &cp, nil
}

func (f *fakePreferences) SetLanguage(ctx context.Context, deviceID, code string) (*models.LanguageOption, error) {
	lang, err := languages.Find(code)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[deviceID].Language = &lang
	return &lang, nil
}

func (f *fakePreferences) SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[deviceID].AudioEnabled = enabled
	return nil
}

type fakeUtterances struct {
	submitted [][]byte
}

func (f *fakeUtterances) Submit(ctx context.Context, roomID, speakerID, language string, wav []byte) (*models.UtteranceAudio, error) {
	f.submitted = append(f.submitted, wav)
	return &models.UtteranceAudio{UtteranceID: "u1", RoomID: roomID, SpeakerID: speakerID, Language: language, Status: models.ArchivePending}, nil
}

func (f *fakeUtterances) Get(ctx context.Context, roomID, utteranceID string) (*models.UtteranceAudio, error) {
	if utteranceID != "u1" {
		return nil, utils.E(utils.CodeNotFound, "fake", "recording not found", nil)
	}
	return &models.UtteranceAudio{UtteranceID: "u1", RoomID: roomID, Status: models.ArchiveArchived}, nil
}

func (f *fakeUtterances) PlaybackURL(ctx context.Context, roomID, utteranceID string) (string, error) {
	return "https://signed.example/" + roomID + "/" + utteranceID, nil
}

func (f *fakeUtterances) List(ctx context.Context, roomID string) ([]models.UtteranceAudio, error) {
	return []models.UtteranceAudio{{UtteranceID: "u1", RoomID: roomID}}, nil
}
