// Package transit decodes the tagged-value documents the Mochi desktop
// app persists in its local store. The format is a JSON rendering of
// Transit: keyword keys carry a literal "~:" prefix and timestamps are
// strings tagged "~t" followed by milliseconds since the Unix epoch.
//
// The shape of a document varies between app versions, so every field
// access is a lookup with a default. Decoding never fails; missing or
// ill-typed fields degrade to zero values.
package transit

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
)

const (
	keyContent  = "~:content"
	keyName     = "~:name"
	keyFields   = "~:fields"
	keyValue    = "~:value"
	keyReviews  = "~:reviews"
	keyDate     = "~:date"
	keyInterval = "~:interval"
	keyDeckID   = "~:deck-id"
	keyID       = "~:id"
	keyTrashed  = "~:trashed?"
	keyArchived = "~:archived?"

	timestampTag = "~t"
)

// Question and answer are separated by a line of three or more hyphens,
// with one or more newlines on each side and an optional trailing space.
var separator = regexp.MustCompile(`\n+-{3,}[ ]?\n+`)

// Document is the top-level shape of one persisted row. TransitData is
// kept generic; DecodeCard normalizes it.
type Document struct {
	Type        string         `json:"type"`
	TransitData map[string]any `json:"transit-data"`
}

// DecodeDocument parses a raw store payload into its envelope.
func DecodeDocument(payload []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DecodeCard normalizes a transit-data tree into a Card. The card ID may
// come back empty; callers fall back to the row's document id.
func DecodeCard(data map[string]any) domain.Card {
	card := domain.Card{
		ID:       TrimTag(str(data[keyID])),
		DeckID:   TrimTag(str(data[keyDeckID])),
		Trashed:  hasKey(data, keyTrashed),
		Archived: truthy(data[keyArchived]),
		Reviews:  decodeReviews(data[keyReviews]),
	}
	card.Question, card.Answer = SplitContent(content(data))
	return card
}

// ParseTimestamp converts a "~t<ms>" tagged value to a time. Anything
// not bearing the tag yields the zero time.
func ParseTimestamp(v any) time.Time {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, timestampTag) {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(s[len(timestampTag):], 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// TrimTag strips leading keyword-prefix runes from an id value.
func TrimTag(s string) string {
	return strings.TrimLeft(s, "~:")
}

// SplitContent splits combined card text into question and answer on the
// first separator line. Without a separator the whole text is the
// question. Both halves are trimmed.
func SplitContent(content string) (question, answer string) {
	parts := separator.Split(content, 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(content), ""
}

// content resolves the combined question+answer text: a non-empty
// "content" field wins; otherwise the card name is joined with the first
// non-name template field.
func content(data map[string]any) string {
	if c := str(data[keyContent]); c != "" {
		return c
	}
	name := str(data[keyName])
	answer := firstFieldValue(data[keyFields])
	switch {
	case name != "" && answer != "":
		return name + "\n---\n" + answer
	case name != "":
		return name
	}
	return ""
}

// firstFieldValue picks the value of the first non-name field. Field ids
// are iterated in sorted order so the choice is deterministic; in
// practice template cards carry exactly one field beside the name.
func firstFieldValue(v any) string {
	fields, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	ids := make([]string, 0, len(fields))
	for id := range fields {
		if id == keyName {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if field, ok := fields[id].(map[string]any); ok {
			return str(field[keyValue])
		}
	}
	return ""
}

func decodeReviews(v any) []domain.Review {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	reviews := make([]domain.Review, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		reviews = append(reviews, domain.Review{
			Date:         ParseTimestamp(m[keyDate]),
			IntervalDays: intval(m[keyInterval]),
		})
	}
	if len(reviews) == 0 {
		return nil
	}
	return reviews
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func intval(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func hasKey(data map[string]any, key string) bool {
	_, ok := data[key]
	return ok
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}
