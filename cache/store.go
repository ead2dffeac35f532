// Package cache keeps extracted text in SQLite, keyed by document content.
//
// Text is stored zstd-compressed. Entries are never invalidated by content
// change since the key is derived from the content itself; Purge drops entries
// by age.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/hazyhaar/parsekit/dbopen"
	"github.com/hazyhaar/parsekit/format"
)

const schema = `CREATE TABLE IF NOT EXISTS extractions (
	key        TEXT PRIMARY KEY,
	format     TEXT NOT NULL,
	text       BLOB NOT NULL,
	size       INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extractions_created ON extractions(created_at);`

// Entry is a cached extraction.
type Entry struct {
	Format    format.FileFormat
	Text      string
	Size      int64
	CreatedAt time.Time
}

// Stats summarises the cache contents.
type Stats struct {
	Entries         int64 `json:"entries"`
	SourceBytes     int64 `json:"source_bytes"`
	CompressedBytes int64 `json:"compressed_bytes"`
}

// Store is the extraction table.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
	now func() time.Time
}

// Open opens (creating if needed) a cache database at path.
func Open(path string) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, err
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database, creating the table if needed.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("cache: schema: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("cache: zstd writer: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("cache: zstd reader: %w", err)
	}
	return &Store{db: db, enc: enc, dec: dec, now: time.Now}, nil
}

// Key derives the cache key for a document. The filename contributes only
// the format of its extension, which is all detection reads from it;
// fingerprint captures parser settings that change decoder output.
func Key(data []byte, filename, fingerprint string) string {
	ext := strings.ToLower(format.DetectFromExtension(filename).String())
	return fmt.Sprintf("%016x-%d-%s-%s", xxhash.Sum64(data), len(data), ext, fingerprint)
}

// Get returns the entry stored under key.
func (s *Store) Get(ctx context.Context, key string) (*Entry, bool, error) {
	var (
		name      string
		blob      []byte
		size      int64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT format, text, size, created_at FROM extractions WHERE key = ?`, key,
	).Scan(&name, &blob, &size, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}

	text, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache: decompress %s: %w", key, err)
	}
	f, ok := format.ParseName(name)
	if !ok {
		return nil, false, fmt.Errorf("cache: unknown format %q", name)
	}
	return &Entry{
		Format:    f,
		Text:      string(text),
		Size:      size,
		CreatedAt: time.UnixMilli(createdAt),
	}, true, nil
}

// Put stores an extraction, replacing any previous entry for key.
func (s *Store) Put(ctx context.Context, key string, f format.FileFormat, text string, size int64) error {
	blob := s.enc.EncodeAll([]byte(text), nil)
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO extractions (key, format, text, size, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET format = excluded.format, text = excluded.text,
		 size = excluded.size, created_at = excluded.created_at`,
		key, f.String(), blob, size, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}
	return nil
}

// Stats reports entry count and byte totals.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(SUM(LENGTH(text)), 0) FROM extractions`,
	).Scan(&st.Entries, &st.SourceBytes, &st.CompressedBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: stats: %w", err)
	}
	return st, nil
}

// Purge deletes entries created more than olderThan ago and reports how many
// were removed. A zero olderThan empties the cache.
func (s *Store) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).UnixMilli()
	res, err := dbopen.Exec(ctx, s.db, `DELETE FROM extractions WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the codecs and the database.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
