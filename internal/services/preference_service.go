package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Kazorio/translation-app/internal/languages"
	"github.com/Kazorio/translation-app/internal/models"
	mongorepo "github.com/Kazorio/translation-app/internal/repositories/mongo"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/google/uuid"
)

type PreferenceService interface {
	// Get returns the device's preferences, creating them with a fresh
	// speaker id on first use.
	Get(ctx context.Context, deviceID string) (*models.DevicePreference, error)
	SetLanguage(ctx context.Context, deviceID, code string) (*models.LanguageOption, error)
	SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error
}

type preferenceService struct {
	prefs mongorepo.PreferenceRepository
	now   func() time.Time
}

func NewPreferenceService(prefs mongorepo.PreferenceRepository) PreferenceService {
	return &preferenceService{prefs: prefs, now: time.Now}
}

// NewSpeakerID returns "speaker-<unix ms>-<9 random chars>".
func NewSpeakerID(now time.Time) string {
	r := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("speaker-%d-%s", now.UnixMilli(), r[:9])
}

func validDeviceID(id string) bool {
	return models.ValidRoomID(id)
}

func (s *preferenceService) Get(ctx context.Context, deviceID string) (*models.DevicePreference, error) {
	const op = "PreferenceService.Get"

	if !validDeviceID(deviceID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid device_id is required", nil)
	}
	if _, err := s.prefs.EnsureSpeakerID(ctx, deviceID, NewSpeakerID(s.now())); err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to initialise device preferences", err)
	}
	p, err := s.prefs.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to load device preferences", err)
	}
	return p, nil
}

func (s *preferenceService) SetLanguage(ctx context.Context, deviceID, code string) (*models.LanguageOption, error) {
	const op = "PreferenceService.SetLanguage"

	if !validDeviceID(deviceID) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "a valid device_id is required", nil)
	}
	lang, err := languages.Find(code)
	if err != nil {
		return nil, err
	}
	if err := s.prefs.SetLanguage(ctx, deviceID, &lang); err != nil {
		return nil, utils.E(utils.CodePersistence, op, "failed to save language", err)
	}
	return &lang, nil
}

func (s *preferenceService) SetAudioEnabled(ctx context.Context, deviceID string, enabled bool) error {
	const op = "PreferenceService.SetAudioEnabled"

	if !validDeviceID(deviceID) {
		return utils.E(utils.CodeInvalidArgument, op, "a valid device_id is required", nil)
	}
	if err := s.prefs.SetAudioEnabled(ctx, deviceID, enabled); err != nil {
		return utils.E(utils.CodePersistence, op, "failed to save audio preference", err)
	}
	return nil
}
