package services

import (
	"context"
	"strings"
	"time"

	"github.com/Kazorio/translation-app/internal/audio"
	"github.com/Kazorio/translation-app/internal/cache"
	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/providers/stt"
	"github.com/Kazorio/translation-app/internal/providers/tts"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

const maxSynthesisChars = 1000

type SpeechService interface {
	Transcribe(ctx context.Context, wav []byte, lang models.LanguageOption) (text string, confidence float64, err error)
	Synthesize(ctx context.Context, text, language string) (payload []byte, mimeType string, err error)
}

type cachedAudio struct {
	MimeType string `json:"mime_type"`
	Audio    []byte `json:"audio"`
}

type speechService struct {
	stt     stt.Provider
	tts     tts.Provider
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func NewSpeechService(sttP stt.Provider, ttsP tts.Provider, c cache.Cache, ttl time.Duration, m *metrics.Metrics, log *logrus.Logger) SpeechService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &speechService{
		stt:     sttP,
		tts:     ttsP,
		cache:   c,
		ttl:     ttl,
		metrics: m,
		log:     log.WithField("component", "speech_service"),
	}
}

func (s *speechService) Transcribe(ctx context.Context, wav []byte, lang models.LanguageOption) (string, float64, error) {
	const op = "SpeechService.Transcribe"

	if err := audio.ValidateWAV(wav); err != nil {
		return "", 0, utils.E(utils.CodeInvalidArgument, op, "audio must be a 16-bit PCM WAV", err)
	}
	locale := lang.Locale
	if locale == "" {
		locale = lang.Code
	}

	start := time.Now()
	text, conf, err := s.stt.Transcribe(ctx, wav, locale)
	s.metrics.ObserveStage("transcribe", start, err)
	if err != nil {
		return "", 0, utils.E(utils.CodeTranscription, op, "transcription failed: "+err.Error(), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", 0, utils.E(utils.CodeTranscription, op, "no speech detected", nil)
	}
	return text, conf, nil
}

func (s *speechService) Synthesize(ctx context.Context, text, language string) ([]byte, string, error) {
	const op = "SpeechService.Synthesize"

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "text is required", nil)
	}
	if len([]rune(text)) > maxSynthesisChars {
		return nil, "", utils.E(utils.CodeInvalidArgument, op, "text is too long", nil)
	}

	key := cache.Key("tts", text, language)
	if s.cache != nil {
		var hit cachedAudio
		ok, err := s.cache.GetJSON(ctx, key, &hit)
		if err != nil {
			s.log.WithError(err).Warn("tts cache read failed")
		}
		s.metrics.CacheResult("tts", ok && len(hit.Audio) > 0)
		if ok && len(hit.Audio) > 0 {
			return hit.Audio, hit.MimeType, nil
		}
	}

	start := time.Now()
	payload, mime, err := s.tts.Synthesize(ctx, text, language)
	s.metrics.ObserveStage("synthesize", start, err)
	if err != nil {
		return nil, "", utils.E(utils.CodeUnavailable, op, "speech synthesis failed", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, cachedAudio{MimeType: mime, Audio: payload}, s.ttl); err != nil {
			s.log.WithError(err).Warn("tts cache write failed")
		}
	}
	return payload, mime, nil
}
