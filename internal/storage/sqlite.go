package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			name TEXT PRIMARY KEY,
			path TEXT,
			hash TEXT,
			lines INTEGER,
			indexed_at TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_modules_path ON modules(path);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

const upsertModule = `
	INSERT INTO modules (name, path, hash, lines, indexed_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		path=excluded.path,
		hash=excluded.hash,
		lines=excluded.lines,
		indexed_at=excluded.indexed_at
`

func (s *SQLiteStore) SaveModule(ctx context.Context, rec *ModuleRecord) error {
	_, err := s.db.ExecContext(ctx, upsertModule,
		rec.Name, rec.Path, rec.Hash, rec.Lines, rec.IndexedAt)
	return err
}

func (s *SQLiteStore) SaveModules(ctx context.Context, recs []*ModuleRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertModule)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Name, rec.Path, rec.Hash, rec.Lines, rec.IndexedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetModule(ctx context.Context, name string) (*ModuleRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, path, hash, lines, indexed_at FROM modules WHERE name = ?", name)

	var rec ModuleRecord
	if err := row.Scan(&rec.Name, &rec.Path, &rec.Hash, &rec.Lines, &rec.IndexedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) ListModules(ctx context.Context) ([]*ModuleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, path, hash, lines, indexed_at FROM modules ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	var recs []*ModuleRecord
	for rows.Next() {
		var rec ModuleRecord
		if err := rows.Scan(&rec.Name, &rec.Path, &rec.Hash, &rec.Lines, &rec.IndexedAt); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) DeleteByPath(ctx context.Context, path string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM modules WHERE path = ?", path)
	return err
}
