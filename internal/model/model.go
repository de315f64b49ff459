package model

import "time"

// DescribedEvent is a recurring calendar event together with the English
// rendering of its recurrence rule.
type DescribedEvent struct {
	SourceID string `json:"source_id"` // calendar source ID (config ICS ID)
	UID      string `json:"uid"`       // iCalendar UID

	Summary  string `json:"summary"`
	Location string `json:"location,omitempty"`

	// RRule is the raw RRULE value as found in the feed.
	RRule  string    `json:"rrule"`
	Start  time.Time `json:"start"`
	AllDay bool      `json:"all_day"` // DTSTART is a date without a time

	// Description is empty when rendering failed; Error then says why.
	Description string `json:"description,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed reports whether the rule could not be described.
func (e DescribedEvent) Failed() bool {
	return e.Error != ""
}
