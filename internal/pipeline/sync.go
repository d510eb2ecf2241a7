// Package pipeline keeps the module index in step with the project tree:
// full crawls, git-driven incremental updates and loading a previously
// indexed project back into memory.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"pyscope/internal/crawler"
	"pyscope/internal/git"
	"pyscope/internal/registry"
	"pyscope/internal/storage"
)

type Sync struct {
	Root     string
	Crawler  *crawler.Crawler
	Store    storage.Store
	Registry *registry.Registry
}

type Result struct {
	Indexed int
	Skipped int
	Removed int
}

func NewSync(root string, c *crawler.Crawler, store storage.Store, reg *registry.Registry) *Sync {
	return &Sync{Root: root, Crawler: c, Store: store, Registry: reg}
}

// Full crawls the whole project, parses every module into the registry and
// records the batch in one transaction.
func (s *Sync) Full(ctx context.Context) (*Result, error) {
	res := &Result{}
	var recs []*storage.ModuleRecord

	err := s.Crawler.ScanProject(s.Root, func(f *crawler.File) error {
		rec, ok := s.register(f)
		if !ok {
			res.Skipped++
			return nil
		}
		recs = append(recs, rec)
		res.Indexed++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("project scan failed: %w", err)
	}

	if err := s.Store.SaveModules(ctx, recs); err != nil {
		return nil, fmt.Errorf("failed to save module index: %w", err)
	}
	return res, nil
}

// Incremental applies the git diff against baseRef: deleted files drop out of
// the index, changed files are re-parsed and re-recorded.
func (s *Sync) Incremental(ctx context.Context, baseRef string) (*Result, error) {
	changes, err := git.GetChangedFiles(baseRef)
	if err != nil {
		return nil, fmt.Errorf("failed to get git changes: %w", err)
	}

	res := &Result{}
	for _, change := range git.ChangedPythonFiles(changes) {
		full := filepath.Join(s.Root, change.Path)
		source, err := os.ReadFile(full)
		if os.IsNotExist(err) {
			if err := s.Store.DeleteByPath(ctx, change.Path); err != nil {
				return nil, err
			}
			s.Registry.Remove(crawler.ModuleName(change.Path))
			res.Removed++
			continue
		}
		if err != nil {
			slog.Warn("failed to read changed file", "path", change.Path, "err", err)
			res.Skipped++
			continue
		}

		rec, ok := s.register(&crawler.File{Path: change.Path, Module: crawler.ModuleName(change.Path), Source: source})
		if !ok {
			res.Skipped++
			continue
		}
		if err := s.Store.SaveModule(ctx, rec); err != nil {
			return nil, err
		}
		res.Indexed++
	}
	return res, nil
}

// Load re-parses the previously indexed modules into the registry, for query
// commands that run against an existing index.
func (s *Sync) Load(ctx context.Context) (*Result, error) {
	recs, err := s.Store.ListModules(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, rec := range recs {
		source, err := os.ReadFile(filepath.Join(s.Root, rec.Path))
		if err != nil {
			slog.Warn("indexed file is gone", "module", rec.Name, "path", rec.Path)
			res.Skipped++
			continue
		}
		if _, err := s.Registry.AddSource(rec.Name, rec.Path, source); err != nil {
			slog.Warn("indexed file no longer parses", "module", rec.Name, "err", err)
			res.Skipped++
			continue
		}
		res.Indexed++
	}
	return res, nil
}

func (s *Sync) register(f *crawler.File) (*storage.ModuleRecord, bool) {
	if f.Module == "" {
		return nil, false
	}
	if _, err := s.Registry.AddSource(f.Module, f.Path, f.Source); err != nil {
		slog.Warn("failed to parse module", "module", f.Module, "err", err)
		return nil, false
	}
	return &storage.ModuleRecord{
		Name:      f.Module,
		Path:      f.Path,
		Hash:      contentHash(f.Source),
		Lines:     countLines(f.Source),
		IndexedAt: time.Now(),
	}, true
}

func contentHash(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

func countLines(source []byte) int {
	n := 1
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	return n
}
