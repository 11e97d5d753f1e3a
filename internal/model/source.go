// Package model defines the data structures for per-unit coverage checks.
package model

import "path"

// Path represents a slash-separated file system path relative to the project root.
type Path string

// Base returns the last element of the path.
func (p Path) Base() string {
	return path.Base(string(p))
}

// Dir returns all but the last element of the path.
func (p Path) Dir() Path {
	return Path(path.Dir(string(p)))
}

// InitializerName is the basename of a Python package initializer.
const InitializerName = "__init__.py"

// SourceExt is the extension of Python source units.
const SourceExt = ".py"

// SourceUnit identifies one Python module by its path relative to the project root.
type SourceUnit struct {
	Path Path
	Size int64
}

// IsInitializer reports whether the unit is a package initializer.
func (u SourceUnit) IsInitializer() bool {
	return u.Path.Base() == InitializerName
}

// Expectation is the outcome a source unit is expected to have.
type Expectation int

const (
	// ExpectCovered means the unit must reach the coverage threshold.
	ExpectCovered Expectation = iota
	// ExpectExcluded means the unit is on the exclusion list and must still fall short.
	ExpectExcluded
)

func (e Expectation) String() string {
	if e == ExpectExcluded {
		return "excluded"
	}

	return "covered"
}

// Task is a classified unit handed to the scheduler.
type Task struct {
	Unit        SourceUnit
	Expectation Expectation
}

// UnitPlan describes what a check would do for one unit without running it.
type UnitPlan struct {
	Unit        SourceUnit
	Test        Path
	Expectation Expectation
	Empty       bool
}
