package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, "Op: msg: boom", E(CodeInternal, "Op", "msg", base).Error())
	assert.Equal(t, "Op: msg", E(CodeInternal, "Op", "msg", nil).Error())
	assert.Equal(t, "msg", E(CodeInternal, "", "msg", nil).Error())
	assert.ErrorIs(t, E(CodeInternal, "Op", "msg", base), base)
}

func TestCodeAndMessageSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", E(CodeTranscription, "STT", "speech recognition failed", errors.New("rpc")))

	assert.True(t, IsCode(err, CodeTranscription))
	assert.Equal(t, CodeTranscription, CodeOf(err))
	assert.Equal(t, "speech recognition failed", UserMessage(err))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, "unexpected error", UserMessage(errors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument: http.StatusBadRequest,
		CodeTooShort:        http.StatusBadRequest,
		CodeConfiguration:   http.StatusBadRequest,
		CodePermission:      http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeTranscription:   http.StatusBadGateway,
		CodeTranslation:     http.StatusBadGateway,
		CodePersistence:     http.StatusInternalServerError,
		CodePlaybackBlocked: http.StatusConflict,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(E(code, "", "", nil)), code)
	}
	assert.Equal(t, http.StatusNotFound, HTTPStatus(ErrNotFound))
}
