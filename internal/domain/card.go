package domain

import "time"

// Card represents a single reviewable flashcard decoded from the local
// Mochi store.
type Card struct {
	ID       string
	DeckID   string
	Question string
	Answer   string
	Reviews  []Review
	Trashed  bool
	Archived bool
}

// Review records a single historical grading event for a card. Only the
// most recent review determines due-ness; earlier entries are kept for
// display.
type Review struct {
	Date         time.Time
	IntervalDays int
}

// Cards created in the app but never filled in carry this name.
const untitledPlaceholder = "Untitled card"

// LastReview returns the most recent review event. ok is false when the
// card has never been reviewed.
func (c Card) LastReview() (Review, bool) {
	if len(c.Reviews) == 0 {
		return Review{}, false
	}
	return c.Reviews[len(c.Reviews)-1], true
}

// Valid reports whether the card has reviewable content. Cards with an
// empty question or the untouched placeholder name are never presented.
func (c Card) Valid() bool {
	return c.Question != "" && c.Question != untitledPlaceholder
}
