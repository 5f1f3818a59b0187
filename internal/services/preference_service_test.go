package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSpeakerIDFormat(t *testing.T) {
	id := NewSpeakerID(time.UnixMilli(1700000000123))
	assert.Regexp(t, regexp.MustCompile(`^speaker-1700000000123-[0-9a-f]{9}$`), id)
	assert.NotEqual(t, id, NewSpeakerID(time.UnixMilli(1700000000123)))
}

func TestPreferenceGetEnsuresSpeakerID(t *testing.T) {
	repo := &mockPrefRepo{}
	repo.On("EnsureSpeakerID", mock.Anything, "dev-1", mock.MatchedBy(func(id string) bool {
		return len(id) > len("speaker-")
	})).Return("speaker-1-abc", nil)
	repo.On("GetByDeviceID", mock.Anything, "dev-1").Return(&models.DevicePreference{
		DeviceID: "dev-1", SpeakerID: "speaker-1-abc",
	}, nil)
	svc := NewPreferenceService(repo)

	p, err := svc.Get(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "speaker-1-abc", p.SpeakerID)
	repo.AssertExpectations(t)
}

func TestPreferenceValidation(t *testing.T) {
	svc := NewPreferenceService(&mockPrefRepo{})

	_, err := svc.Get(context.Background(), "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	_, err = svc.SetLanguage(context.Background(), "dev 1", "de")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	assert.True(t, utils.IsCode(svc.SetAudioEnabled(context.Background(), "", true), utils.CodeInvalidArgument))
}

func TestPreferenceSetLanguage(t *testing.T) {
	repo := &mockPrefRepo{}
	repo.On("SetLanguage", mock.Anything, "dev-1", mock.MatchedBy(func(l *models.LanguageOption) bool {
		return l.Code == "fa" && l.Locale == "fa-IR"
	})).Return(nil)
	svc := NewPreferenceService(repo)

	lang, err := svc.SetLanguage(context.Background(), "dev-1", "fa")
	require.NoError(t, err)
	assert.Equal(t, "fa", lang.Code)

	_, err = svc.SetLanguage(context.Background(), "dev-1", "xx")
	assert.Error(t, err)
	repo.AssertNumberOfCalls(t, "SetLanguage", 1)
}

func TestPreferenceSetAudioEnabledFailure(t *testing.T) {
	repo := &mockPrefRepo{}
	repo.On("SetAudioEnabled", mock.Anything, "dev-1", true).Return(errors.New("mongo down"))
	svc := NewPreferenceService(repo)

	err := svc.SetAudioEnabled(context.Background(), "dev-1", true)
	assert.True(t, utils.IsCode(err, utils.CodePersistence))
}
