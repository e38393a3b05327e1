// Package models defines server-side data models persisted in the database.
package models

import "time"

// Language tags the front end can render.
const (
	LanguageSpanish    = "es"
	LanguageEnglish    = "en"
	LanguagePortuguese = "pt"

	DefaultLanguage = LanguageSpanish
)

// SupportedLanguages lists the accepted values of User.Language.
var SupportedLanguages = []string{LanguageSpanish, LanguageEnglish, LanguagePortuguese}

// User is created on first contact and identified externally by the chat
// account id. Deleting a user cascades to every row it owns.
type User struct {
	ID           int64
	ExternalID   int64
	Language     string
	GDPRConsent  bool
	RegisteredAt time.Time
}
