package domain

import (
	"time"
)

type EventStatus string

const (
	EventUpcoming  EventStatus = "upcoming"
	EventLive      EventStatus = "live"
	EventCompleted EventStatus = "completed"
)

type Winner string

const (
	WinnerRed       Winner = "red"
	WinnerBlue      Winner = "blue"
	WinnerDraw      Winner = "draw"
	WinnerNoContest Winner = "no_contest"
)

type Event struct {
	ExternalID string // last path segment of the event detail URL
	Name       string
	Date       time.Time
	Status     EventStatus
	Location   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Bout struct {
	ExternalID      string // last path segment of the fight detail URL
	EventExternalID string
	BoutOrder       int // 0 = main event, increasing down the card
	RedName         string
	RedFighterID    string
	BlueName        string
	BlueFighterID   string
	WeightClass     string
	ScheduledRounds int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Result struct {
	BoutExternalID string
	Winner         Winner
	Method         string // free text from the source, e.g. "KO/TKO"
	EndRound       *int   // nil for decisions
	EndTime        *string
	Details        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusForDate derives an event's lifecycle status from its calendar date.
// The source site does not expose status directly.
func StatusForDate(date, now time.Time) EventStatus {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return EventLive
	}
	if date.After(now) {
		return EventUpcoming
	}
	return EventCompleted
}
