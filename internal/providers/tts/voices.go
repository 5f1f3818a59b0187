package tts

// Voice is a concrete synthesis voice for one locale.
type Voice struct {
	LanguageCode string
	Name         string
}

var DefaultVoice = Voice{LanguageCode: "en-US", Name: "en-US-Neural2-F"}

var voices = map[string]Voice{
	"de": {LanguageCode: "de-DE", Name: "de-DE-Neural2-B"},
	"en": {LanguageCode: "en-US", Name: "en-US-Neural2-F"},
	"fr": {LanguageCode: "fr-FR", Name: "fr-FR-Neural2-A"},
	"fa": {LanguageCode: "fa-IR", Name: "fa-IR-Standard-A"},
}

// VoiceFor looks up the voice for a language code, falling back to DefaultVoice.
func VoiceFor(code string) Voice {
	if v, ok := voices[code]; ok {
		return v
	}
	return DefaultVoice
}
