package models

// LanguageOption is drawn from the fixed supported set in package languages.
type LanguageOption struct {
	Code   string `json:"code" bson:"code"`
	Label  string `json:"label" bson:"label"`
	Locale string `json:"locale" bson:"locale"`
}

func (l *LanguageOption) Valid() bool {
	return l != nil && l.Code != "" && l.Label != "" && l.Locale != ""
}
