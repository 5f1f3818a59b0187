package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAPI struct {
	r      *gin.Engine
	convos *fakeConversations
	speech *fakeSpeech
	prefs  *fakePreferences
	utts   *fakeUtterances
}

func newTestAPI() *testAPI {
	gin.SetMode(gin.TestMode)
	a := &testAPI{
		r:      gin.New(),
		convos: &fakeConversations{},
		speech: &fakeSpeech{},
		prefs:  newFakePreferences(),
		utts:   &fakeUtterances{},
	}
	sh := NewSpeechHandler(a.speech, fakeTranslation{})
	ch := NewConversationHandler(a.convos)
	ph := NewPreferenceHandler(a.prefs)
	uh := NewUtteranceHandler(a.utts)

	a.r.GET("/api/languages", sh.Languages)
	a.r.POST("/api/transcribe", sh.Transcribe)
	a.r.POST("/api/translate", sh.Translate)
	a.r.POST("/api/tts", sh.Synthesize)
	a.r.GET("/rooms/:room_id/entries", ch.List)
	a.r.POST("/rooms/:room_id/entries", ch.Append)
	a.r.GET("/rooms/:room_id/entries/:entry_id", ch.Get)
	a.r.GET("/devices/:device_id/preferences", ph.Get)
	a.r.PUT("/devices/:device_id/preferences", ph.Update)
	a.r.POST("/rooms/:room_id/utterances", uh.Upload)
	a.r.GET("/rooms/:room_id/utterances", uh.List)
	a.r.GET("/rooms/:room_id/utterances/:utterance_id", uh.Get)
	a.r.GET("/rooms/:room_id/utterances/:utterance_id/url", uh.PlaybackURL)
	return a
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func (a *testAPI) upload(path string, fields map[string]string, audioData []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if audioData != nil {
		fw, _ := mw.CreateFormFile("audio", "utterance.wav")
		_, _ = fw.Write(audioData)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestLanguages(t *testing.T) {
	w := newTestAPI().do(http.MethodGet, "/api/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	langs := decode(t, w)["languages"].([]any)
	assert.Len(t, langs, 4)
}

func TestTranscribe(t *testing.T) {
	a := newTestAPI()
	w := a.upload("/api/transcribe", map[string]string{"language": "fr"}, audio.SilentWAV(16000, 0.5))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bonjour", decode(t, w)["text"])
	assert.Equal(t, "fr-FR", a.speech.lastLocale)

	w = a.upload("/api/transcribe", map[string]string{"language": "klingon"}, audio.SilentWAV(16000, 0.5))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.upload("/api/transcribe", map[string]string{"language": "fr"}, []byte("%PDF-1.4 definitely not audio"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.upload("/api/transcribe", map[string]string{"language": "fr"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranslate(t *testing.T) {
	a := newTestAPI()
	w := a.do(http.MethodPost, "/api/translate", map[string]string{
		"text": "Hallo", "sourceLanguage": "de", "targetLanguage": "en",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "de>en:Hallo", decode(t, w)["translatedText"])

	w = a.do(http.MethodPost, "/api/translate", map[string]string{"text": "Hallo"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodPost, "/api/translate", map[string]string{
		"text": "Hallo", "sourceLanguage": "de", "targetLanguage": "xx",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "TRANSLATION", body["code"])
	assert.Equal(t, "translation failed: model unavailable", body["message"])
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	w := newTestAPI().do(http.MethodPost, "/api/tts", map[string]string{"text": "Hello", "language": "en"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "ID3Hello", w.Body.String())
}

func TestEntriesAppendAndList(t *testing.T) {
	a := newTestAPI()
	w := a.do(http.MethodPost, "/rooms/room-1/entries", map[string]string{
		"original_text": "Hallo", "translated_text": "Hello",
		"source_language": "de", "target_language": "en", "speaker_id": "speaker-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	row := decode(t, w)
	assert.Equal(t, "row-1", row["id"])
	assert.Equal(t, "room-1", row["room_id"])

	w = a.do(http.MethodGet, "/rooms/room-1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["entries"].([]any), 1)

	w = a.do(http.MethodGet, "/rooms/room-1/entries/row-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, "/rooms/room-2/entries/row-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/rooms/room-1/entries", map[string]string{"original_text": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreferencesPartialUpdate(t *testing.T) {
	a := newTestAPI()
	w := a.do(http.MethodGet, "/devices/dev-1/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "speaker-dev-1", decode(t, w)["speaker_id"])

	w = a.do(http.MethodPut, "/devices/dev-1/preferences", map[string]any{"language": "fa"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "fa", body["language"].(map[string]any)["code"])
	assert.Equal(t, false, body["audio_enabled"])

	w = a.do(http.MethodPut, "/devices/dev-1/preferences", map[string]any{"audio_enabled": true})
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, true, body["audio_enabled"])
	assert.Equal(t, "fa", body["language"].(map[string]any)["code"], "language kept")

	w = a.do(http.MethodPut, "/devices/dev-1/preferences", map[string]any{"language": "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUtteranceUploadAndLookup(t *testing.T) {
	a := newTestAPI()
	w := a.upload("/rooms/room-1/utterances", map[string]string{"language": "de", "speaker_id": "speaker-1"}, audio.SilentWAV(16000, 0.5))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "pending", decode(t, w)["status"])
	require.Len(t, a.utts.submitted, 1)

	w = a.do(http.MethodGet, "/rooms/room-1/utterances/u1/url", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(decode(t, w)["url"].(string), "https://signed.example/room-1/u1"))

	w = a.do(http.MethodGet, "/rooms/room-1/utterances/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/rooms/room-1/utterances", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCallerSpeakerIDOverridesBody(t *testing.T) {
	a := newTestAPI()
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("speaker_id", "user-7"); c.Next() })
	r.POST("/rooms/:room_id/entries", NewConversationHandler(a.convos).Append)

	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(map[string]string{
		"original_text": "Hallo", "source_language": "de", "target_language": "en", "speaker_id": "forged",
	})
	req := httptest.NewRequest(http.MethodPost, "/rooms/room-1/entries", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-7", decode(t, w)["speaker_id"])
}
