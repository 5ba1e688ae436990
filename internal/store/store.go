// Package store reads card documents out of the Mochi desktop app's
// local sqlite database. The database belongs to the app: it is opened
// strictly read-only and nothing here ever writes to it.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/HartreeWorks/skill--mochi-srs/internal/domain"
	"github.com/HartreeWorks/skill--mochi-srs/internal/transit"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB wraps a read-only connection to the Mochi store.
type DB struct {
	conn *sql.DB
}

// DefaultPath returns the platform location of the Mochi database.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Mochi", "mochi.db"), nil
	}
	return filepath.Join(home, ".config", "Mochi", "mochi.db"), nil
}

// Open opens the store at path read-only. The file must already exist;
// a missing file means Mochi has never synced on this machine.
func Open(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("mochi store not found at %s (install Mochi and sync at least once): %w", path, err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open mochi store: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to mochi store (the Mochi app may hold a lock): %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ReadCards enumerates every live card document in the store. Rows whose
// payload fails to decode are skipped and the scan continues; the
// storage-level deleted flag is filtered here while the payload-level
// trashed/archived flags are left to the due resolver.
func (db *DB) ReadCards() ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT doc_id, json
		FROM 'by-sequence'
		WHERE json LIKE '%"type":"card"%'
		AND deleted = 0
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card rows: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var docID, payload string
		if err := rows.Scan(&docID, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}

		doc, err := transit.DecodeDocument([]byte(payload))
		if err != nil {
			slog.Debug("skipping malformed card row", "doc_id", docID, "error", err)
			continue
		}
		// The LIKE filter can match the type string anywhere in the
		// payload; only keep documents that really are cards.
		if doc.Type != "card" {
			continue
		}

		card := transit.DecodeCard(doc.TransitData)
		if card.ID == "" {
			card.ID = docID
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card rows: %w", err)
	}
	return cards, nil
}
