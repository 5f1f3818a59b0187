// Package languages holds the fixed set of languages a participant can pick.
package languages

import (
	"github.com/Kazorio/translation-app/internal/models"
	"github.com/Kazorio/translation-app/internal/utils"
)

var supported = []models.LanguageOption{
	{Code: "de", Label: "German", Locale: "de-DE"},
	{Code: "fa", Label: "Farsi (Persian)", Locale: "fa-IR"},
	{Code: "en", Label: "English", Locale: "en-US"},
	{Code: "fr", Label: "French", Locale: "fr-FR"},
}

// Supported returns a copy of the supported set in display order.
func Supported() []models.LanguageOption {
	out := make([]models.LanguageOption, len(supported))
	copy(out, supported)
	return out
}

func Find(code string) (models.LanguageOption, error) {
	for _, l := range supported {
		if l.Code == code {
			return l, nil
		}
	}
	return models.LanguageOption{}, utils.E(utils.CodeInvalidArgument, "languages.Find", "unsupported language code: "+code, nil)
}

// Resolve returns the supported option for code, or a bare option whose label
// and locale are the code itself. Entries written by other clients may carry
// codes outside the set.
func Resolve(code string) models.LanguageOption {
	if l, err := Find(code); err == nil {
		return l
	}
	return models.LanguageOption{Code: code, Label: code, Locale: code}
}
