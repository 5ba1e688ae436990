package transit

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	testCases := []struct {
		name     string
		input    any
		expected time.Time
	}{
		{
			name:     "Tagged milliseconds",
			input:    "~t1697241600000",
			expected: time.UnixMilli(1697241600000),
		},
		{
			name:     "Missing tag",
			input:    "1697241600000",
			expected: time.Time{},
		},
		{
			name:     "Not a string",
			input:    1697241600000.0,
			expected: time.Time{},
		},
		{
			name:     "Tag with garbage",
			input:    "~tnonsense",
			expected: time.Time{},
		},
		{
			name:     "Nil",
			input:    nil,
			expected: time.Time{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTimestamp(tc.input)
			if !got.Equal(tc.expected) {
				t.Errorf("Expected %v, but got %v", tc.expected, got)
			}
		})
	}
}

func TestSplitContent(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expectedQ string
		expectedA string
	}{
		{
			name:      "Plain separator",
			input:     "Q\n---\nA",
			expectedQ: "Q",
			expectedA: "A",
		},
		{
			name:      "Blank lines around separator",
			input:     "Q\n\n---\n\nA",
			expectedQ: "Q",
			expectedA: "A",
		},
		{
			name:      "Trailing space after separator",
			input:     "Q\n--- \nA",
			expectedQ: "Q",
			expectedA: "A",
		},
		{
			name:      "Long separator line",
			input:     "Q\n-----\nA",
			expectedQ: "Q",
			expectedA: "A",
		},
		{
			name:      "No separator",
			input:     "  just a question  ",
			expectedQ: "just a question",
			expectedA: "",
		},
		{
			name:      "Only first separator splits",
			input:     "Q\n---\nA\n---\nB",
			expectedQ: "Q",
			expectedA: "A\n---\nB",
		},
		{
			name:      "Hyphens inline are not a separator",
			input:     "a --- b",
			expectedQ: "a --- b",
			expectedA: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, a := SplitContent(tc.input)
			if q != tc.expectedQ {
				t.Errorf("Expected question '%s', but got '%s'", tc.expectedQ, q)
			}
			if a != tc.expectedA {
				t.Errorf("Expected answer '%s', but got '%s'", tc.expectedA, a)
			}
		})
	}
}

func TestDecodeCard(t *testing.T) {
	t.Run("Content field wins over name", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:content": "What?\n---\nThat.",
			"~:name":    "ignored",
		})
		if card.Question != "What?" || card.Answer != "That." {
			t.Errorf("Unexpected split: %q / %q", card.Question, card.Answer)
		}
	})

	t.Run("Name plus field value", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:name": "Capital of France?",
			"~:fields": map[string]any{
				"~:name":  map[string]any{"~:value": "Capital of France?"},
				"abcdef1": map[string]any{"~:value": "Paris"},
			},
		})
		if card.Question != "Capital of France?" {
			t.Errorf("Expected question from name, got %q", card.Question)
		}
		if card.Answer != "Paris" {
			t.Errorf("Expected answer from field, got %q", card.Answer)
		}
	})

	t.Run("Name alone", func(t *testing.T) {
		card := DecodeCard(map[string]any{"~:name": "Solo"})
		if card.Question != "Solo" || card.Answer != "" {
			t.Errorf("Unexpected card: %q / %q", card.Question, card.Answer)
		}
	})

	t.Run("Tagged ids are stripped", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:id":      "~:abc123",
			"~:deck-id": "~:deck9",
		})
		if card.ID != "abc123" {
			t.Errorf("Expected id abc123, got %q", card.ID)
		}
		if card.DeckID != "deck9" {
			t.Errorf("Expected deck id deck9, got %q", card.DeckID)
		}
	})

	t.Run("Trashed by presence, archived by value", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:trashed?":  "~t1697241600000",
			"~:archived?": false,
		})
		if !card.Trashed {
			t.Error("Expected trashed to be set by key presence")
		}
		if card.Archived {
			t.Error("Expected archived false for false value")
		}
	})

	t.Run("Reviews decode in order", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:reviews": []any{
				map[string]any{"~:date": "~t1000", "~:interval": 1.0},
				map[string]any{"~:date": "~t2000", "~:interval": 3.0},
			},
		})
		if len(card.Reviews) != 2 {
			t.Fatalf("Expected 2 reviews, got %d", len(card.Reviews))
		}
		if card.Reviews[1].IntervalDays != 3 {
			t.Errorf("Expected last interval 3, got %d", card.Reviews[1].IntervalDays)
		}
		if !card.Reviews[0].Date.Equal(time.UnixMilli(1000)) {
			t.Errorf("Unexpected first review date: %v", card.Reviews[0].Date)
		}
	})

	t.Run("Malformed tree degrades to zero values", func(t *testing.T) {
		card := DecodeCard(map[string]any{
			"~:content": 42,
			"~:reviews": "not a list",
			"~:fields":  []any{"not", "a", "map"},
		})
		if card.Question != "" || card.Answer != "" || card.Reviews != nil {
			t.Errorf("Expected zero card, got %+v", card)
		}
	})
}

func TestDecodeDocument(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"type":"card","transit-data":{"~:content":"Q\n---\nA"}}`))
	if err != nil {
		t.Fatalf("DecodeDocument() returned an unexpected error: %v", err)
	}
	if doc.Type != "card" {
		t.Errorf("Expected type card, got %q", doc.Type)
	}
	if _, err := DecodeDocument([]byte(`{not json`)); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}
