package services

import (
	"context"
	"errors"
	"testing"

	"github.com/Kazorio/translation-app/internal/logger"
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var english = models.LanguageOption{Code: "en", Label: "English", Locale: "en-US"}

func TestTranslatePassesLabelsAndCaches(t *testing.T) {
	tr := &mockTranslator{}
	tr.On("Translate", mock.Anything, "Hallo", "German", "English").Return("Hello", nil).Once()
	svc := NewTranslationService(tr, newMemCache(), 0, nil, logger.Discard())

	for i := 0; i < 2; i++ {
		out, err := svc.Translate(context.Background(), "Hallo", german, english)
		require.NoError(t, err)
		assert.Equal(t, "Hello", out)
	}
	tr.AssertNumberOfCalls(t, "Translate", 1)
}

func TestTranslateFailures(t *testing.T) {
	tr := &mockTranslator{}
	tr.On("Translate", mock.Anything, "Hallo", "German", "English").Return("", errors.New("deadline exceeded")).Once()
	tr.On("Translate", mock.Anything, "Tschüss", "German", "English").Return("", nil).Once()
	svc := NewTranslationService(tr, nil, 0, nil, logger.Discard())

	_, err := svc.Translate(context.Background(), "Hallo", german, english)
	assert.True(t, utils.IsCode(err, utils.CodeTranslation))
	assert.Contains(t, utils.UserMessage(err), "deadline exceeded")

	_, err = svc.Translate(context.Background(), "Tschüss", german, english)
	assert.True(t, utils.IsCode(err, utils.CodeTranslation))

	_, err = svc.Translate(context.Background(), "", german, english)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
