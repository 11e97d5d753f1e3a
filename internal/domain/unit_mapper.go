package domain

import (
	"context"
	"fmt"
	"path"
	"strings"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// TestFilePrefix is prepended to a source file name to name its test module.
const TestFilePrefix = "test_"

// DefaultTestsDir is the root of the test tree mirroring the source tree.
const DefaultTestsDir = "test"

// artifactPrefix names per-unit coverage data files.
const artifactPrefix = ".coverage-"

// UnitMapper derives everything a coverage check needs to know about a source
// unit: its test module, runner target, data artifact and whether it needs a
// check at all.
type UnitMapper interface {
	// TestUnitFor returns the test module expected to exercise unit.
	TestUnitFor(unit m.SourceUnit) m.Path
	// CoverageTarget returns the dotted module name passed to the runner.
	CoverageTarget(unit m.SourceUnit) string
	// ArtifactFor returns the coverage data file of unit, unique per unit.
	ArtifactFor(ctx context.Context, unit m.SourceUnit) m.Path
	// IsEmptyMarker reports a zero-byte package initializer.
	IsEmptyMarker(unit m.SourceUnit) bool
	// IsTrivialInitializer reports a package initializer holding only imports
	// and plain assignments. Other files are never trivial.
	IsTrivialInitializer(ctx context.Context, unit m.SourceUnit) (bool, error)
}

type unitMapper struct {
	fsAdapter adapter.SourceFSAdapter
	pyAdapter adapter.PythonFileAdapter
	root      m.Path
	testsDir  m.Path
}

// NewUnitMapper constructs a UnitMapper for the project at root whose tests
// live under testsDir (relative to root).
func NewUnitMapper(fsAdapter adapter.SourceFSAdapter, pyAdapter adapter.PythonFileAdapter, root, testsDir m.Path) UnitMapper {
	if testsDir == "" {
		testsDir = DefaultTestsDir
	}

	return &unitMapper{
		fsAdapter: fsAdapter,
		pyAdapter: pyAdapter,
		root:      root,
		testsDir:  testsDir,
	}
}

func (um *unitMapper) TestUnitFor(unit m.SourceUnit) m.Path {
	if unit.IsInitializer() {
		pkgDir := unit.Path.Dir()
		return m.Path(path.Join(string(um.testsDir), path.Dir(string(pkgDir)), TestFilePrefix+pkgDir.Base()+m.SourceExt))
	}

	return m.Path(path.Join(string(um.testsDir), string(unit.Path.Dir()), TestFilePrefix+unit.Path.Base()))
}

func (um *unitMapper) CoverageTarget(unit m.SourceUnit) string {
	return strings.ReplaceAll(strings.TrimSuffix(string(unit.Path), m.SourceExt), "/", ".")
}

func (um *unitMapper) ArtifactFor(ctx context.Context, unit m.SourceUnit) m.Path {
	name := artifactPrefix + strings.ReplaceAll(string(unit.Path), "/", "-")
	return um.fsAdapter.JoinPath(ctx, string(um.root), name)
}

func (um *unitMapper) IsEmptyMarker(unit m.SourceUnit) bool {
	return unit.IsInitializer() && unit.Size == 0
}

func (um *unitMapper) IsTrivialInitializer(ctx context.Context, unit m.SourceUnit) (bool, error) {
	if !unit.IsInitializer() {
		return false, nil
	}

	src, err := um.fsAdapter.ReadFile(ctx, um.root, unit.Path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", unit.Path, err)
	}

	statements, err := um.pyAdapter.TopLevelStatements(ctx, string(unit.Path), src)
	if err != nil {
		return false, err
	}

	for _, stmt := range statements {
		if stmt.Kind != adapter.StatementImport && stmt.Kind != adapter.StatementAssign {
			return false, nil
		}
	}

	return true, nil
}
