package crawler

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// File is one Python source found under the project root.
type File struct {
	Path   string // path relative to the scanned root
	Module string // dotted import name derived from the path
	Source []byte
}

// Crawler scans a directory tree for Python sources.
type Crawler struct {
	ignored []string
}

// New creates a crawler; extra names are skipped in addition to the usual
// tool and environment directories.
func New(extra ...string) *Crawler {
	ignored := []string{".git", "__pycache__", "venv", ".venv", "node_modules", ".tox"}
	return &Crawler{ignored: append(ignored, extra...)}
}

// ScanProject walks root and streams every .py file to the callback,
// preventing large memory buildup. A callback error aborts the walk.
func (c *Crawler) ScanProject(root string, onFile func(*File) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		source, err := os.ReadFile(path)
		if err != nil {
			// Unreadable files do not fail the whole scan.
			return nil
		}

		return onFile(&File{
			Path:   rel,
			Module: ModuleName(rel),
			Source: source,
		})
	})
}

// ModuleName derives the dotted import name from a root-relative path:
// a/b/c.py becomes a.b.c and a package's __init__.py names the package.
func ModuleName(rel string) string {
	name := strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	name = strings.ReplaceAll(name, "/", ".")
	name = strings.TrimSuffix(name, ".__init__")
	if name == "__init__" {
		return ""
	}
	return name
}
