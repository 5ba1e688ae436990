package due

import (
	"testing"
	"time"

	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
)

func reviewed(date time.Time, interval int) domain.Card {
	return domain.Card{
		ID:       "c1",
		Question: "Q",
		Reviews:  []domain.Review{{Date: date, IntervalDays: interval}},
	}
}

func TestDue(t *testing.T) {
	loc := time.UTC
	r := NewResolver(loc)
	reviewedAt := time.Date(2023, 10, 14, 21, 30, 0, 0, loc)

	testCases := []struct {
		name     string
		card     domain.Card
		now      time.Time
		expected bool
	}{
		{
			name:     "New card is always due",
			card:     domain.Card{Question: "Q"},
			now:      time.Date(2000, 1, 1, 0, 0, 0, 0, loc),
			expected: true,
		},
		{
			name:     "Review with undecoded date counts as new",
			card:     reviewed(time.Time{}, 30),
			now:      time.Date(2023, 10, 14, 0, 0, 0, 0, loc),
			expected: true,
		},
		{
			name:     "Not due the day after a 3 day interval starts",
			card:     reviewed(reviewedAt, 3),
			now:      reviewedAt.Add(24 * time.Hour),
			expected: false,
		},
		{
			name:     "Not due just before midnight of the due day",
			card:     reviewed(reviewedAt, 3),
			now:      time.Date(2023, 10, 16, 23, 59, 59, 0, loc),
			expected: false,
		},
		{
			name:     "Due at midnight of the due day",
			card:     reviewed(reviewedAt, 3),
			now:      time.Date(2023, 10, 17, 0, 0, 0, 0, loc),
			expected: true,
		},
		{
			name:     "Due long after",
			card:     reviewed(reviewedAt, 3),
			now:      time.Date(2024, 2, 1, 12, 0, 0, 0, loc),
			expected: true,
		},
		{
			name: "Only the last review matters",
			card: domain.Card{
				Question: "Q",
				Reviews: []domain.Review{
					{Date: reviewedAt.AddDate(0, 0, -60), IntervalDays: 1},
					{Date: reviewedAt, IntervalDays: 30},
				},
			},
			now:      reviewedAt.AddDate(0, 0, 5),
			expected: false,
		},
		{
			name:     "Zero interval is due same day",
			card:     reviewed(reviewedAt, 0),
			now:      reviewedAt.Add(time.Minute),
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Due(tc.card, tc.now); got != tc.expected {
				t.Errorf("Due() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(time.UTC)
	now := time.Date(2023, 10, 20, 12, 0, 0, 0, time.UTC)

	cards := []domain.Card{
		{ID: "a", DeckID: "d1", Question: "first"},
		{ID: "b", DeckID: "d2", Question: "wrong deck"},
		{ID: "c", DeckID: "d1", Question: "trashed", Trashed: true},
		{ID: "d", DeckID: "d1", Question: "archived", Archived: true},
		{ID: "e", DeckID: "d1", Question: ""},
		{ID: "f", DeckID: "d1", Question: "Untitled card"},
		{ID: "g", DeckID: "d1", Question: "not yet", Reviews: []domain.Review{{Date: now, IntervalDays: 10}}},
		{ID: "h", DeckID: "d1", Question: "last"},
	}

	t.Run("Deck filter and exclusions", func(t *testing.T) {
		due := r.Resolve(cards, "d1", now)
		if len(due) != 2 {
			t.Fatalf("Expected 2 due cards, got %d", len(due))
		}
		if due[0].ID != "a" || due[1].ID != "h" {
			t.Errorf("Expected store order a,h but got %s,%s", due[0].ID, due[1].ID)
		}
	})

	t.Run("No deck filter includes all decks", func(t *testing.T) {
		due := r.Resolve(cards, "", now)
		if len(due) != 3 {
			t.Fatalf("Expected 3 due cards, got %d", len(due))
		}
		if due[1].ID != "b" {
			t.Errorf("Expected b second, got %s", due[1].ID)
		}
	})

	t.Run("Trashed excluded even when due and matching deck", func(t *testing.T) {
		for _, card := range r.Resolve(cards, "d1", now) {
			if card.Trashed || card.Archived {
				t.Errorf("Lifecycle-flagged card %s leaked through", card.ID)
			}
		}
	})
}
