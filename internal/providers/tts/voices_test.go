package tts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoiceFor(t *testing.T) {
	assert.Equal(t, "de-DE", VoiceFor("de").LanguageCode)
	assert.Equal(t, "fa-IR", VoiceFor("fa").LanguageCode)
	assert.Equal(t, DefaultVoice, VoiceFor("xx"))
	assert.Equal(t, DefaultVoice, VoiceFor(""))
}
