package models

import "time"

// Reminder is the persisted intent behind a timer. TimeOfDay is the
// canonical "HH:MM" form. Completed only ever goes false -> true.
type Reminder struct {
	ID        int64
	UserID    int64
	Text      string
	TimeOfDay string
	Recurring bool
	Completed bool
	CreatedAt time.Time

	// OwnerExternalID is filled by boot-time listings, which join users so
	// the scheduler can address deliveries.
	OwnerExternalID int64
}
