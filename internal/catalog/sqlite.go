package catalog

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/bclegal-go/internal/recommend"
)

// SQLite is a catalog stored in a local SQLite database. It is written by
// Import and read once at startup by Load.
type SQLite struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns ~/.bclegal/catalog.db, creating the directory if
// needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".bclegal")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) the catalog at path and runs the schema migration.
// Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// One connection: keeps :memory: databases shared and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS lawyers (
    seq           INTEGER PRIMARY KEY,
    id            TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL DEFAULT '',
    phone         TEXT NOT NULL DEFAULT '',
    location      TEXT NOT NULL DEFAULT '',
    specialty     TEXT NOT NULL DEFAULT '',
    fee_structure TEXT NOT NULL DEFAULT '',
    languages     TEXT NOT NULL DEFAULT '',
    website       TEXT NOT NULL DEFAULT '',
    embedding     BLOB            -- little-endian float32
);
CREATE TABLE IF NOT EXISTS resources (
    seq           INTEGER PRIMARY KEY,
    id            TEXT NOT NULL UNIQUE,
    source        TEXT NOT NULL DEFAULT '',
    text          TEXT NOT NULL,
    embedding     BLOB
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// Import replaces the stored datasets with c in a single transaction.
// Record order is preserved.
func (s *SQLite) Import(ctx context.Context, c *Catalog) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: import: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{`DELETE FROM lawyers`, `DELETE FROM resources`} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("catalog: import: clear: %w", err)
		}
	}

	const insLawyer = `INSERT INTO lawyers
    (seq, id, name, email, phone, location, specialty, fee_structure, languages, website, embedding)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i, l := range c.Lawyers {
		_, err = tx.ExecContext(ctx, insLawyer, i, l.ID, l.Name, l.Email, l.Phone, l.Location,
			l.Specialty, l.FeeStructure, l.Languages, l.Website, encodeVector(l.Embedding))
		if err != nil {
			return fmt.Errorf("catalog: import lawyer %q: %w", l.ID, err)
		}
	}

	const insResource = `INSERT INTO resources (seq, id, source, text, embedding) VALUES (?, ?, ?, ?, ?)`
	for i, r := range c.Resources {
		_, err = tx.ExecContext(ctx, insResource, i, r.ID, r.Source, r.Text, encodeVector(r.Embedding))
		if err != nil {
			return fmt.Errorf("catalog: import resource %q: %w", r.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("catalog: import: commit: %w", err)
	}
	return nil
}

// Load reads both datasets in import order. An empty database yields ErrEmpty.
func (s *SQLite) Load(ctx context.Context) (*Catalog, error) {
	c := &Catalog{}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, email, phone, location, specialty, fee_structure, languages, website, embedding
FROM lawyers ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load lawyers: %w", err)
	}
	for rows.Next() {
		l := &recommend.Lawyer{}
		var blob []byte
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Location, &l.Specialty,
			&l.FeeStructure, &l.Languages, &l.Website, &blob); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("catalog: scan lawyer: %w", err)
		}
		if l.Embedding, err = decodeVector(blob); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("catalog: lawyer %q: %w", l.ID, err)
		}
		c.Lawyers = append(c.Lawyers, l)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("catalog: load lawyers: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load lawyers: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, source, text, embedding FROM resources ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("catalog: load resources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r := &recommend.Resource{}
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Source, &r.Text, &blob); err != nil {
			return nil, fmt.Errorf("catalog: scan resource: %w", err)
		}
		if r.Embedding, err = decodeVector(blob); err != nil {
			return nil, fmt.Errorf("catalog: resource %q: %w", r.ID, err)
		}
		c.Resources = append(c.Resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: load resources: %w", err)
	}

	if c.Empty() {
		return nil, ErrEmpty
	}
	return c, nil
}

// Close releases the database connection pool.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}

var errBadVector = errors.New("embedding blob length is not a multiple of 4")

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errBadVector
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
