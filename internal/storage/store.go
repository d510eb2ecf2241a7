package storage

import (
	"context"
	"time"
)

// ModuleRecord is the persisted index entry for one project module.
type ModuleRecord struct {
	Name      string // dotted import name
	Path      string // root-relative file path
	Hash      string // content hash at index time
	Lines     int
	IndexedAt time.Time
}

// Store persists the module index between runs.
type Store interface {
	// SaveModule upserts a single record.
	SaveModule(ctx context.Context, rec *ModuleRecord) error

	// SaveModules upserts many records in one transaction.
	SaveModules(ctx context.Context, recs []*ModuleRecord) error

	// GetModule retrieves a record by its dotted name.
	GetModule(ctx context.Context, name string) (*ModuleRecord, error)

	// ListModules returns every record, ordered by name.
	ListModules(ctx context.Context) ([]*ModuleRecord, error)

	// DeleteByPath removes the records indexed from a file path.
	DeleteByPath(ctx context.Context, path string) error

	Close() error
}
