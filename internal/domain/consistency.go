package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"unitcov.dev/pkg/unitcov/internal/adapter"
	m "unitcov.dev/pkg/unitcov/internal/model"
)

// DefaultMatchTestExcludes are test-tree paths that never map to a source file.
var DefaultMatchTestExcludes = []string{"/conftest.py", "/data/"}

// ConsistencyChecker pairs source files with test files by name.
type ConsistencyChecker interface {
	Check(ctx context.Context, args MatchArgs) (m.ConsistencyReport, error)
}

type consistencyChecker struct {
	adapter.SourceFSAdapter
}

// NewConsistencyChecker constructs a ConsistencyChecker.
func NewConsistencyChecker(fsAdapter adapter.SourceFSAdapter) ConsistencyChecker {
	return &consistencyChecker{SourceFSAdapter: fsAdapter}
}

// Check reports source files without a test file and test files without a
// source file. Package initializers are ignored on both sides. Exclusions are
// substrings of the slash-separated path.
func (cc *consistencyChecker) Check(ctx context.Context, args MatchArgs) (m.ConsistencyReport, error) {
	var report m.ConsistencyReport

	testsDir := args.TestsDir
	if testsDir == "" {
		testsDir = DefaultTestsDir
	}

	mapper := NewUnitMapper(cc.SourceFSAdapter, nil, args.Root, testsDir)

	srcExcludes := normalizeExcludes(args.ExcludeSources)
	testExcludes := normalizeExcludes(args.ExcludeTests)

	for _, pkgDir := range args.Packages {
		for unit, err := range cc.Walk(ctx, args.Root, pkgDir, m.SourceExt) {
			if err != nil {
				return report, err
			}

			if unit.IsInitializer() || excludedBySubstring(unit.Path, srcExcludes) {
				continue
			}

			testPath := mapper.TestUnitFor(unit)

			exists, err := cc.FileExists(ctx, args.Root, testPath)
			if err != nil {
				return report, fmt.Errorf("stat %s: %w", testPath, err)
			}

			if !exists {
				report.MissingTests = append(report.MissingTests, m.FilePair{File: unit.Path, Expected: testPath})
			}
		}

		testRoot := m.Path(path.Join(string(testsDir), string(pkgDir)))

		for unit, err := range cc.Walk(ctx, args.Root, testRoot, m.SourceExt) {
			if errors.Is(err, fs.ErrNotExist) {
				// A package without any tests only has missing tests.
				break
			}

			if err != nil {
				return report, err
			}

			if unit.IsInitializer() || excludedBySubstring(unit.Path, testExcludes) {
				continue
			}

			srcPath := sourceForTest(unit.Path, testsDir)

			exists, err := cc.FileExists(ctx, args.Root, srcPath)
			if err != nil {
				return report, fmt.Errorf("stat %s: %w", srcPath, err)
			}

			if !exists {
				report.UnknownTests = append(report.UnknownTests, m.FilePair{File: unit.Path, Expected: srcPath})
			}
		}
	}

	sortPairs(report.MissingTests)
	sortPairs(report.UnknownTests)

	return report, nil
}

func sourceForTest(testPath, testsDir m.Path) m.Path {
	dir := strings.TrimPrefix(string(testPath.Dir()), string(testsDir)+"/")
	name := strings.TrimPrefix(testPath.Base(), TestFilePrefix)

	return m.Path(path.Join(dir, name))
}

func normalizeExcludes(excludes []string) []string {
	normalized := make([]string, 0, len(excludes))

	for _, exclude := range excludes {
		if strings.TrimSpace(exclude) == "" {
			continue
		}

		normalized = append(normalized, path.Clean(exclude))
	}

	return normalized
}

func excludedBySubstring(p m.Path, excludes []string) bool {
	for _, exclude := range excludes {
		if strings.Contains(string(p), exclude) {
			return true
		}
	}

	return false
}

func sortPairs(pairs []m.FilePair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].File < pairs[j].File
	})
}
