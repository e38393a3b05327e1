package models

import "time"

// SecondFactor is the single TOTP credential of a user. Re-enrolment
// replaces the row wholesale.
type SecondFactor struct {
	UserID    int64
	Secret    string
	Enabled   bool
	CreatedAt time.Time
}
