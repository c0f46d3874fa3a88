// Package sqlite implements store.Store on SQLite with an FTS5 index
// for keyword search. The database doubles as the durable memory store
// and the lexical side of hybrid retrieval.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/store"
)

// Store implements store.Store backed by SQLite.
type Store struct {
	db      *sql.DB
	entropy *rand.Rand
}

// New opens or creates a database at the given path. ":memory:" works
// for tests.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if dbPath == ":memory:" {
		// each pooled connection would otherwise see its own empty db
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memory_entries (
		id              TEXT PRIMARY KEY,
		profile_id      TEXT NOT NULL,
		conversation_id TEXT,
		content         TEXT NOT NULL,
		type            TEXT NOT NULL DEFAULT 'FACT',
		lane            TEXT NOT NULL DEFAULT 'CANON',
		status          TEXT NOT NULL DEFAULT 'ACTIVE',
		importance      REAL NOT NULL DEFAULT 50,
		confidence      REAL NOT NULL DEFAULT 50,
		keywords        TEXT,
		embedding       TEXT,
		canonical_key   TEXT NOT NULL,
		retrieval_count INTEGER NOT NULL DEFAULT 0,
		success_rate    REAL NOT NULL DEFAULT 0,
		quality_score   REAL NOT NULL DEFAULT 0,
		source          TEXT,
		source_id       TEXT,
		parent_fact_id  TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL,
		UNIQUE(profile_id, canonical_key)
	);
	CREATE INDEX IF NOT EXISTS idx_entries_profile ON memory_entries(profile_id, status);
	CREATE INDEX IF NOT EXISTS idx_entries_source ON memory_entries(profile_id, source);
	CREATE INDEX IF NOT EXISTS idx_entries_parent ON memory_entries(parent_fact_id);

	CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
		content,
		keywords,
		content=memory_entries,
		content_rowid=rowid
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS triggers keep the index in sync with the base table. A failed
	// trigger would silently desync keyword search, so these are as
	// fatal as the schema itself.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON memory_entries BEGIN
			INSERT INTO entries_fts(rowid, content, keywords) VALUES (new.rowid, new.content, new.keywords);
		END`,
		`CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON memory_entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, keywords) VALUES('delete', old.rowid, old.content, old.keywords);
		END`,
		`CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE OF content, keywords ON memory_entries BEGIN
			INSERT INTO entries_fts(entries_fts, rowid, content, keywords) VALUES('delete', old.rowid, old.content, old.keywords);
			INSERT INTO entries_fts(rowid, content, keywords) VALUES (new.rowid, new.content, new.keywords);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create fts trigger: %w", err)
		}
	}

	return nil
}

// Put inserts an entry. Canonical-key collisions return
// store.ErrDuplicateKey without modifying the existing row. An ATOMIC
// entry with a parent inherits the parent's lane when its own is unset
// and is rejected if the lanes disagree.
func (s *Store) Put(ctx context.Context, e *core.MemoryEntry) error {
	laneUnset := e.Lane == ""
	e.Normalize()

	if e.ID == "" {
		e.ID = s.newID()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	if e.Type == core.TypeAtomic && e.ParentFactID != "" {
		parent, err := s.Get(ctx, e.ProfileID, e.ParentFactID)
		if err == nil {
			if laneUnset {
				e.Lane = parent.Lane
			} else if e.Lane != parent.Lane {
				return fmt.Errorf("atomic fact lane %s conflicts with parent lane %s", e.Lane, parent.Lane)
			}
		}
	}

	var keywordsJSON, embeddingJSON sql.NullString
	if len(e.Keywords) > 0 {
		b, _ := json.Marshal(e.Keywords)
		keywordsJSON = sql.NullString{String: string(b), Valid: true}
	}
	if len(e.Embedding) > 0 {
		b, _ := json.Marshal(e.Embedding)
		embeddingJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_entries (
			id, profile_id, conversation_id, content, type, lane, status,
			importance, confidence, keywords, embedding, canonical_key,
			retrieval_count, success_rate, quality_score,
			source, source_id, parent_fact_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, canonical_key) DO NOTHING`,
		e.ID, e.ProfileID, nullable(e.ConversationID), e.Content, string(e.Type),
		string(e.Lane), string(e.Status), e.Importance, e.Confidence,
		keywordsJSON, embeddingJSON, e.CanonicalKey,
		e.RetrievalCount, e.SuccessRate, e.QualityScore,
		nullable(e.Source), nullable(e.SourceID), nullable(e.ParentFactID),
		e.CreatedAt.Format(time.RFC3339), e.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrDuplicateKey
	}
	return nil
}

// Get fetches one entry by profile and id.
func (s *Store) Get(ctx context.Context, profileID, id string) (*core.MemoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		selectCols("")+` FROM memory_entries WHERE profile_id = ? AND id = ?`,
		profileID, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListActive returns ACTIVE entries for a profile ordered by importance,
// mirroring the maintenance export queries.
func (s *Store) ListActive(ctx context.Context, profileID string, limit int) ([]*core.MemoryEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		selectCols("")+` FROM memory_entries
		 WHERE profile_id = ? AND status = 'ACTIVE'
		 ORDER BY importance DESC, created_at DESC
		 LIMIT ?`, profileID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEntries(rows)
}

// IncrementRetrieval bumps retrieval_count. Best-effort by contract:
// callers fire it off the critical path and tolerate lost updates.
func (s *Store) IncrementRetrieval(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, time.Now().UTC().Format(time.RFC3339))
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf(
		`UPDATE memory_entries
		 SET retrieval_count = retrieval_count + 1, updated_at = ?
		 WHERE id IN (%s)`, placeholders)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("increment retrieval count: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var entryColumns = []string{
	"id", "profile_id", "conversation_id", "content", "type", "lane", "status",
	"importance", "confidence", "keywords", "embedding", "canonical_key",
	"retrieval_count", "success_rate", "quality_score",
	"source", "source_id", "parent_fact_id", "created_at", "updated_at",
}

// selectCols renders the entry column list, optionally qualified with a
// table alias for queries that join the FTS index.
func selectCols(alias string) string {
	cols := make([]string, len(entryColumns))
	for i, c := range entryColumns {
		if alias != "" {
			cols[i] = alias + "." + c
		} else {
			cols[i] = c
		}
	}
	return "SELECT " + strings.Join(cols, ", ")
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*core.MemoryEntry, error) {
	var e core.MemoryEntry
	var conversationID, keywordsJSON, embeddingJSON, source, sourceID, parentFactID sql.NullString
	var entryType, lane, status, createdAt, updatedAt string

	err := row.Scan(
		&e.ID, &e.ProfileID, &conversationID, &e.Content, &entryType, &lane, &status,
		&e.Importance, &e.Confidence, &keywordsJSON, &embeddingJSON, &e.CanonicalKey,
		&e.RetrievalCount, &e.SuccessRate, &e.QualityScore,
		&source, &sourceID, &parentFactID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Type = core.MemoryType(entryType)
	e.Lane = core.Lane(lane)
	e.Status = core.Status(status)
	e.ConversationID = conversationID.String
	e.Source = source.String
	e.SourceID = sourceID.String
	e.ParentFactID = parentFactID.String
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if keywordsJSON.Valid {
		json.Unmarshal([]byte(keywordsJSON.String), &e.Keywords)
	}
	if embeddingJSON.Valid {
		json.Unmarshal([]byte(embeddingJSON.String), &e.Embedding)
	}

	e.Normalize()
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]*core.MemoryEntry, error) {
	var entries []*core.MemoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
