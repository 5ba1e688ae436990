// Package due decides which cards are currently due for review.
//
// A card with no review history is always due. Otherwise the stored
// interval of the most recent review is added to its date and compared
// against now using calendar days in a fixed location, so a card
// reviewed late in the evening still becomes due at the next midnight
// rather than at the same wall-clock hour.
package due

import (
	"time"

	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
)

// Resolver evaluates due-ness against a single fixed location.
type Resolver struct {
	loc *time.Location
}

// NewResolver returns a resolver pinned to loc. A nil loc means the
// process's local time zone.
func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{loc: loc}
}

// Resolve filters cards down to the reviewable due subset at now.
// Trashed, archived and invalid cards are skipped, as are cards outside
// deckID when it is non-empty. Input order is preserved.
func (r *Resolver) Resolve(cards []domain.Card, deckID string, now time.Time) []domain.Card {
	var due []domain.Card
	for _, card := range cards {
		if card.Trashed || card.Archived || !card.Valid() {
			continue
		}
		if deckID != "" && card.DeckID != deckID {
			continue
		}
		if r.Due(card, now) {
			due = append(due, card)
		}
	}
	return due
}

// Due reports whether a single card is due at now. Review events whose
// date failed to decode count as no review at all.
func (r *Resolver) Due(card domain.Card, now time.Time) bool {
	last, ok := card.LastReview()
	if !ok || last.Date.IsZero() {
		return true
	}
	dueDay := r.day(last.Date).AddDate(0, 0, last.IntervalDays)
	return !r.day(now).Before(dueDay)
}

// day truncates t to midnight in the resolver's location.
func (r *Resolver) day(t time.Time) time.Time {
	y, m, d := t.In(r.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}
