// Package adapter contains the infrastructure adapters unitcov relies on:
// filesystem access, the external test runner, Python parsing and report storage.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"

	m "unitcov.dev/pkg/unitcov/internal/model"
)

// projectMarkers are the files whose presence marks a Python project root.
var projectMarkers = []string{"pyproject.toml", "setup.cfg", "setup.py"}

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning user projects. It hides direct `os` access so the
// workflow logic can be tested without touching the disk.
type SourceFSAdapter interface {
	// Walk lazily yields every file under root/dir whose name ends with ext,
	// in lexical order. Yielded paths are slash-separated and relative to root.
	Walk(ctx context.Context, root, dir m.Path, ext string) iter.Seq2[m.SourceUnit, error]

	// ReadFile loads root/path from disk.
	ReadFile(ctx context.Context, root, path m.Path) ([]byte, error)

	// FileExists reports whether root/path exists and is a regular file.
	FileExists(ctx context.Context, root, path m.Path) (bool, error)

	// Remove deletes a file. A missing file is not an error.
	Remove(ctx context.Context, path m.Path) error

	// FindProjectRoot walks up from startPath until it finds a project marker.
	FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error)

	// JoinPath joins path elements into a single OS path.
	JoinPath(ctx context.Context, elem ...string) m.Path
}

// LocalSourceFSAdapter is the os-backed SourceFSAdapter.
type LocalSourceFSAdapter struct{}

// NewLocalSourceFSAdapter constructs a LocalSourceFSAdapter instance ready to
// be wired into the workflow.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{}
}

// Walk implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root, dir m.Path, ext string) iter.Seq2[m.SourceUnit, error] {
	return func(yield func(m.SourceUnit, error) bool) {
		rootStr := string(root)
		start := filepath.Join(rootStr, filepath.FromSlash(string(dir)))

		err := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			rel, err := filepath.Rel(rootStr, path)
			if err != nil {
				return err
			}

			unit := m.SourceUnit{Path: m.Path(filepath.ToSlash(rel)), Size: info.Size()}
			if !yield(unit, nil) {
				return filepath.SkipAll
			}

			return nil
		})
		if err != nil {
			yield(m.SourceUnit{}, fmt.Errorf("walk %s: %w", start, err))
		}
	}
}

// ReadFile implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) ReadFile(ctx context.Context, root, path m.Path) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G304 - path is a project file discovered by Walk
	return os.ReadFile(filepath.Join(string(root), filepath.FromSlash(string(path))))
}

// FileExists implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) FileExists(ctx context.Context, root, path m.Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(string(root), filepath.FromSlash(string(path))))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return info.Mode().IsRegular(), nil
}

// Remove implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) Remove(_ context.Context, path m.Path) error {
	err := os.Remove(string(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// FindProjectRoot implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) FindProjectRoot(ctx context.Context, startPath m.Path) (m.Path, error) {
	dir, err := filepath.Abs(string(startPath))
	if err != nil {
		return "", err
	}

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return m.Path(dir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project marker (%s) found in any parent directory of %s",
				strings.Join(projectMarkers, ", "), startPath)
		}

		dir = parent
	}
}

// JoinPath implements SourceFSAdapter.
func (a *LocalSourceFSAdapter) JoinPath(_ context.Context, elem ...string) m.Path {
	return m.Path(filepath.Join(elem...))
}
