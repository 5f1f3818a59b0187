package services

import (
	"context"
	"strings"
	"time"

	"github.com/Kazorio/translation-app/internal/cache"
	"github.com/Kazorio/translation-app/internal/metrics"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/providers/translator"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/sirupsen/logrus"
)

type TranslationService interface {
	Translate(ctx context.Context, text string, from, to models.LanguageOption) (string, error)
}

type translationService struct {
	tr      translator.Provider
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logrus.Entry
}

func NewTranslationService(tr translator.Provider, c cache.Cache, ttl time.Duration, m *metrics.Metrics, log *logrus.Logger) TranslationService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &translationService{
		tr:      tr,
		cache:   c,
		ttl:     ttl,
		metrics: m,
		log:     log.WithField("component", "translation_service"),
	}
}

func (s *translationService) Translate(ctx context.Context, text string, from, to models.LanguageOption) (string, error) {
	const op = "TranslationService.Translate"

	text = strings.TrimSpace(text)
	if text == "" || from.Code == "" || to.Code == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "text, source and target language are required", nil)
	}

	key := cache.Key("tr", text, from.Code, to.Code)
	if s.cache != nil {
		b, ok, err := s.cache.GetBytes(ctx, key)
		if err != nil {
			s.log.WithError(err).Warn("translation cache read failed")
		}
		s.metrics.CacheResult("translation", ok)
		if ok && len(b) > 0 {
			return string(b), nil
		}
	}

	start := time.Now()
	out, err := s.tr.Translate(ctx, text, label(from), label(to))
	s.metrics.ObserveStage("translate", start, err)
	if err != nil {
		return "", utils.E(utils.CodeTranslation, op, "translation failed: "+err.Error(), err)
	}
	if out == "" {
		return "", utils.E(utils.CodeTranslation, op, "translation came back empty", nil)
	}

	if s.cache != nil {
		if err := s.cache.SetBytes(ctx, key, []byte(out), s.ttl); err != nil {
			s.log.WithError(err).Warn("translation cache write failed")
		}
	}
	return out, nil
}

func label(l models.LanguageOption) string {
	if l.Label != "" {
		return l.Label
	}
	return l.Code
}
