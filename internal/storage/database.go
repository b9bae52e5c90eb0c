package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open creates a new database connection and migrates the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single connection: the CLI is the only writer.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &DB{conn: conn, now: time.Now}, nil
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Session is the stored login.
type Session struct {
	Username  string
	Token     string
	ExpiresAt sql.NullTime
	SavedAt   time.Time
}

// SaveSession replaces the stored session.
func (db *DB) SaveSession(ctx context.Context, s Session) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO session (id, username, token, expires_at, saved_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			token = excluded.token,
			expires_at = excluded.expires_at,
			saved_at = excluded.saved_at
	`, s.Username, s.Token, s.ExpiresAt, db.now())
	if err != nil {
		return fmt.Errorf("failed to save session for %s: %w", s.Username, err)
	}
	return nil
}

// LoadSession returns the stored session, or nil if there is none.
func (db *DB) LoadSession(ctx context.Context) (*Session, error) {
	var s Session
	row := db.conn.QueryRowContext(ctx, `
		SELECT username, token, expires_at, saved_at
		FROM session WHERE id = 1
	`)
	err := row.Scan(&s.Username, &s.Token, &s.ExpiresAt, &s.SavedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &s, nil
}

// ClearSession removes the stored session. Clearing an empty store is not an error.
func (db *DB) ClearSession(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Source represents a card source, either a local path or a Git URL, feeding one deck.
type Source struct {
	ID          int64
	DeckID      string
	Path        string
	LastScanned sql.NullTime
}

// UpsertSource returns the source for deckID and path, creating it if needed.
func (db *DB) UpsertSource(ctx context.Context, deckID, path string) (*Source, error) {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sources (deck_id, path) VALUES (?, ?)
		ON CONFLICT (deck_id, path) DO NOTHING
	`, deckID, path)
	if err != nil {
		return nil, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	s, err := db.FindSource(ctx, deckID, path)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("source %s vanished after insert", path)
	}
	return s, nil
}

// FindSource retrieves a source by deck and path, or nil if there is none.
func (db *DB) FindSource(ctx context.Context, deckID, path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, deck_id, path, last_scanned
		FROM sources WHERE deck_id = ? AND path = ?
	`, deckID, path)

	err := row.Scan(&s.ID, &s.DeckID, &s.Path, &s.LastScanned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources, oldest first.
func (db *DB) GetAllSources(ctx context.Context) ([]Source, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, deck_id, path, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.DeckID, &s.Path, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(ctx context.Context, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE sources SET last_scanned = ? WHERE id = ?
	`, db.now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// ImportedCard records that a source lists a server card. The row exists
// only if some import created the card; cards authored on the server are
// never recorded.
type ImportedCard struct {
	DeckID     string
	Hash       string
	SourceID   int64
	CardID     string
	Front      string
	ImportedAt time.Time
}

// InsertImportedCard records c for its source. Rows of other sources with the
// same hash are left alone.
func (db *DB) InsertImportedCard(ctx context.Context, c ImportedCard) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imported_cards (deck_id, hash, source_id, card_id, front, imported_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (deck_id, hash, source_id) DO UPDATE SET
			card_id = excluded.card_id,
			front = excluded.front,
			imported_at = excluded.imported_at
	`, c.DeckID, c.Hash, c.SourceID, c.CardID, c.Front, db.now())
	if err != nil {
		return fmt.Errorf("failed to insert imported card %s: %w", c.Hash, err)
	}
	return nil
}

// FindImportedCard returns the oldest record of hash in the deck from any
// source, or nil when no import ever produced it.
func (db *DB) FindImportedCard(ctx context.Context, deckID, hash string) (*ImportedCard, error) {
	var c ImportedCard
	row := db.conn.QueryRowContext(ctx, `
		SELECT deck_id, hash, source_id, card_id, front, imported_at
		FROM imported_cards WHERE deck_id = ? AND hash = ?
		ORDER BY imported_at, source_id
		LIMIT 1
	`, deckID, hash)
	err := row.Scan(&c.DeckID, &c.Hash, &c.SourceID, &c.CardID, &c.Front, &c.ImportedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find imported card %s: %w", hash, err)
	}
	return &c, nil
}

// GetImportedCardsBySourceID retrieves all cards listed by a source.
func (db *DB) GetImportedCardsBySourceID(ctx context.Context, sourceID int64) ([]ImportedCard, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT deck_id, hash, source_id, card_id, front, imported_at
		FROM imported_cards WHERE source_id = ?
		ORDER BY imported_at, hash
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	var cards []ImportedCard
	for rows.Next() {
		var c ImportedCard
		if err := rows.Scan(&c.DeckID, &c.Hash, &c.SourceID, &c.CardID, &c.Front, &c.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan imported card row for source ID %d: %w", sourceID, err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// DeleteImportedCard removes the source's record of hash. Other sources keep theirs.
func (db *DB) DeleteImportedCard(ctx context.Context, deckID, hash string, sourceID int64) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM imported_cards WHERE deck_id = ? AND hash = ? AND source_id = ?
	`, deckID, hash, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete imported card with hash %s: %w", hash, err)
	}
	return nil
}
