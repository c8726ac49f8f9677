package codemetrics

import (
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/bkyoung/review-gateway/internal/domain"
)

const longFunctionStatements = 50

// analyzeGo parses a Go source file and runs the AST-backed checks. The
// returned complexity is the average number of decision points per
// function declaration.
func analyzeGo(filename string, content []byte) ([]domain.FileIssue, float64, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, content, parser.ParseComments)
	if err != nil {
		return nil, 0, err
	}

	var issues []domain.FileIssue
	decisions, functions := 0, 0

	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.CaseClause, *ast.CommClause:
			decisions++
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				decisions++
			}
		case *ast.CallExpr:
			if ident, ok := node.Fun.(*ast.Ident); ok && ident.Name == "panic" {
				issues = append(issues, domain.FileIssue{
					Rule:       "avoid-panic",
					Category:   domain.CategoryStyle,
					Severity:   domain.RuleWarning,
					Message:    "Avoid panic; return an error instead.",
					Line:       fset.Position(node.Pos()).Line,
					Confidence: 0.7,
				})
			}
		case *ast.FuncDecl:
			functions++
			issues = append(issues, checkFunction(fset, node)...)
		}
		return true
	})

	for _, imp := range file.Imports {
		if imp.Name != nil && imp.Name.Name == "_" {
			issues = append(issues, domain.FileIssue{
				Rule:       "blank-import",
				Category:   domain.CategoryStyle,
				Severity:   domain.RuleInfo,
				Message:    "Blank import; confirm the side effect is wanted.",
				Line:       fset.Position(imp.Pos()).Line,
				Confidence: 0.6,
			})
		}
	}

	if functions == 0 {
		functions = 1
	}
	return issues, float64(decisions) / float64(functions), nil
}

func checkFunction(fset *token.FileSet, fn *ast.FuncDecl) []domain.FileIssue {
	var issues []domain.FileIssue
	line := fset.Position(fn.Pos()).Line

	if fn.Name.IsExported() && (fn.Doc == nil || len(fn.Doc.List) == 0) {
		issues = append(issues, domain.FileIssue{
			Rule:       "missing-doc",
			Category:   domain.CategoryStyle,
			Severity:   domain.RuleInfo,
			Message:    "Exported function " + fn.Name.Name + " has no doc comment.",
			Line:       line,
			Confidence: 0.9,
		})
	}

	if fn.Body != nil {
		statements := 0
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if _, ok := n.(ast.Stmt); ok && n != fn.Body {
				statements++
			}
			return true
		})
		if statements > longFunctionStatements {
			issues = append(issues, domain.FileIssue{
				Rule:       "long-function",
				Category:   domain.CategoryComplexity,
				Severity:   domain.RuleWarning,
				Message:    "Function " + fn.Name.Name + " is very long; consider splitting it.",
				Line:       line,
				Confidence: 0.85,
			})
		}
	}

	if hasNamedResults(fn) && fn.Body != nil {
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			if ret, ok := n.(*ast.ReturnStmt); ok && len(ret.Results) == 0 {
				issues = append(issues, domain.FileIssue{
					Rule:       "naked-return",
					Category:   domain.CategoryStyle,
					Severity:   domain.RuleInfo,
					Message:    "Naked return in " + fn.Name.Name + " hurts readability.",
					Line:       fset.Position(ret.Pos()).Line,
					Confidence: 0.8,
				})
			}
			return true
		})
	}

	return issues
}

func hasNamedResults(fn *ast.FuncDecl) bool {
	if fn.Type.Results == nil {
		return false
	}
	for _, field := range fn.Type.Results.List {
		if len(field.Names) > 0 {
			return true
		}
	}
	return false
}

// syntaxIssue wraps a parse failure as a finding instead of failing the
// file; unparseable code is itself review feedback.
func syntaxIssue(err error) domain.FileIssue {
	return domain.FileIssue{
		Rule:       "go-syntax",
		Category:   domain.CategorySyntax,
		Severity:   domain.RuleError,
		Message:    "File does not parse: " + err.Error(),
		Line:       1,
		Confidence: 1.0,
	}
}
