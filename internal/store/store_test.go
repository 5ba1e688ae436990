package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newFixture writes a minimal Mochi database and returns its path.
func newFixture(t *testing.T, rows []fixtureRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mochi.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE 'by-sequence' (doc_id TEXT, json TEXT, deleted INTEGER)`)
	require.NoError(t, err)

	for _, row := range rows {
		_, err = db.Exec(`INSERT INTO 'by-sequence' (doc_id, json, deleted) VALUES (?, ?, ?)`,
			row.docID, row.json, row.deleted)
		require.NoError(t, err)
	}
	return path
}

type fixtureRow struct {
	docID   string
	json    string
	deleted int
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "mochi store not found")
}

func TestReadCards(t *testing.T) {
	path := newFixture(t, []fixtureRow{
		{
			docID: "doc-1",
			json:  `{"type":"card","transit-data":{"~:id":"~:card-1","~:deck-id":"~:deck-1","~:content":"Q1\n---\nA1"}}`,
		},
		{
			// No ~:id; the row's doc_id is the fallback.
			docID: "doc-2",
			json:  `{"type":"card","transit-data":{"~:content":"Q2"}}`,
		},
		{
			// Deleted at the storage layer: filtered out.
			docID:   "doc-3",
			json:    `{"type":"card","transit-data":{"~:content":"gone"}}`,
			deleted: 1,
		},
		{
			// Not a card document.
			docID: "doc-4",
			json:  `{"type":"deck","transit-data":{"~:name":"My Deck"}}`,
		},
		{
			// A non-card whose payload happens to contain the card type
			// string, so the SQL LIKE filter matches it.
			docID: "doc-5",
			json:  `{"type":"template","transit-data":{"~:kind":{"type":"card"}}}`,
		},
		{
			// Malformed payload: skipped, scan continues.
			docID: "doc-6",
			json:  `{"type":"card","transit-data":`,
		},
		{
			docID: "doc-7",
			json:  `{"type":"card","transit-data":{"~:content":"Q3","~:trashed?":"~t1000"}}`,
		},
	})

	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	cards, err := db.ReadCards()
	require.NoError(t, err)
	require.Len(t, cards, 3)

	require.Equal(t, "card-1", cards[0].ID)
	require.Equal(t, "deck-1", cards[0].DeckID)
	require.Equal(t, "Q1", cards[0].Question)
	require.Equal(t, "A1", cards[0].Answer)

	require.Equal(t, "doc-2", cards[1].ID)
	require.Equal(t, "Q2", cards[1].Question)

	// Payload-level trashed flag is decoded but not filtered here.
	require.True(t, cards[2].Trashed)
}
