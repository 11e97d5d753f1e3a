package adapter

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// StatementKind classifies a top-level Python statement.
type StatementKind string

const (
	// StatementImport covers `import x`, `from x import y` and `from __future__ import y`.
	StatementImport StatementKind = "import"
	// StatementAssign covers plain, unannotated assignments such as `a = b` or `a = b = c`.
	StatementAssign StatementKind = "assign"
	// StatementOther is any other statement (definitions, expressions, control flow...).
	StatementOther StatementKind = "other"
)

// Statement is one top-level statement of a module.
type Statement struct {
	Kind StatementKind
	Node string // tree-sitter node type, e.g. "function_definition"
	Line int
}

// SyntaxError reports a Python module that failed to parse.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: invalid syntax", e.Path, e.Line, e.Column)
}

// PythonFileAdapter parses Python modules so the domain can reason about
// their top-level structure without depending on a parser library.
type PythonFileAdapter interface {
	// TopLevelStatements parses src and returns its module-level statements in
	// source order. Comments are not statements. A module that does not parse
	// yields a *SyntaxError.
	TopLevelStatements(ctx context.Context, filename string, src []byte) ([]Statement, error)
}

// LocalPythonFileAdapter is a PythonFileAdapter backed by tree-sitter.
type LocalPythonFileAdapter struct{}

// NewLocalPythonFileAdapter constructs a LocalPythonFileAdapter.
func NewLocalPythonFileAdapter() *LocalPythonFileAdapter {
	return &LocalPythonFileAdapter{}
}

// TopLevelStatements implements PythonFileAdapter.
func (a *LocalPythonFileAdapter) TopLevelStatements(ctx context.Context, filename string, src []byte) ([]Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Parsers are not safe for concurrent use; checks run in parallel.
	parser := sitter.NewParser()
	defer parser.Close()

	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	defer tree.Close()

	// The grammar still accepts Python 2 print and exec statements. They
	// classify as StatementOther, so such an initializer is checked rather
	// than reported as a syntax error.
	root := tree.RootNode()
	if root.HasError() {
		line, column := firstErrorPosition(root)
		return nil, &SyntaxError{Path: filename, Line: line, Column: column}
	}

	count := int(root.NamedChildCount())
	statements := make([]Statement, 0, count)

	for i := 0; i < count; i++ {
		child := root.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}

		statements = append(statements, Statement{
			Kind: classifyStatement(child),
			Node: child.Type(),
			Line: int(child.StartPoint().Row) + 1,
		})
	}

	return statements, nil
}

func classifyStatement(node *sitter.Node) StatementKind {
	switch node.Type() {
	case "import_statement", "import_from_statement", "future_import_statement":
		return StatementImport
	case "expression_statement":
		if isPlainAssignment(node) {
			return StatementAssign
		}
	}

	return StatementOther
}

// isPlainAssignment matches an expression statement holding a single
// assignment without a type annotation. Augmented assignments have their own
// node type and never match.
func isPlainAssignment(stmt *sitter.Node) bool {
	if stmt.NamedChildCount() != 1 {
		return false
	}

	assignment := stmt.NamedChild(0)
	if assignment.Type() != "assignment" {
		return false
	}

	if assignment.ChildByFieldName("type") != nil {
		return false
	}

	return assignment.ChildByFieldName("right") != nil
}

func firstErrorPosition(node *sitter.Node) (int, int) {
	if node.Type() == "ERROR" || node.IsMissing() {
		point := node.StartPoint()
		return int(point.Row) + 1, int(point.Column) + 1
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsMissing() || child.Type() == "ERROR" {
			return firstErrorPosition(child)
		}
	}

	point := node.StartPoint()

	return int(point.Row) + 1, int(point.Column) + 1
}
