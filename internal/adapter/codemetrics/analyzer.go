package codemetrics

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
)

const maxLineLength = 120

// Analyzer is a static heuristics analyzer. It never executes the code
// under review; everything is derived from the text, plus the Go AST for
// Go sources.
type Analyzer struct {
	todoPattern       *regexp.Regexp
	trailingWS        *regexp.Regexp
	credentialPattern *regexp.Regexp
	awsKeyPattern     *regexp.Regexp
	privateKeyMarker  string
	sqlConcatPattern  *regexp.Regexp
	queryPattern      *regexp.Regexp
	loopPattern       *regexp.Regexp
	concatInLoop      *regexp.Regexp
	decisionPattern   *regexp.Regexp
}

// New builds an Analyzer with its rule patterns compiled once.
func New() *Analyzer {
	return &Analyzer{
		todoPattern:       regexp.MustCompile(`(?i)\b(TODO|FIXME|XXX|HACK)\b:?`),
		trailingWS:        regexp.MustCompile(`[ \t]+$`),
		credentialPattern: regexp.MustCompile(`(?i)(password|passwd|secret|api[_-]?key|access[_-]?token)\s*[:=]\s*["'][^"']{6,}["']`),
		awsKeyPattern:     regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
		privateKeyMarker:  "-----BEGIN",
		sqlConcatPattern:  regexp.MustCompile(`(?i)["'](SELECT |INSERT INTO |UPDATE |DELETE FROM )[^"']*["']\s*(\+|%)`),
		queryPattern:      regexp.MustCompile(`(?i)(\.Query\(|\.QueryRow\(|\.Exec\(|\.Find\(|\.fetch\(|execute\()`),
		loopPattern:       regexp.MustCompile(`^\s*(for\b|while\b|foreach\b)|\.forEach\(`),
		concatInLoop:      regexp.MustCompile(`\+=\s*["']`),
		decisionPattern:   regexp.MustCompile(`\b(if|for|while|case|catch|elif|when|switch)\b|&&|\|\|`),
	}
}

// AnalyzeFile runs every applicable check over one file and reports raw
// issues plus a complexity estimate. Go sources additionally go through
// an AST pass; files in other languages rely on the generic line checks.
func (a *Analyzer) AnalyzeFile(ctx context.Context, filename, language string, content []byte) (analysis.Report, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Report{}, err
	}

	text := string(content)
	lines := strings.Split(text, "\n")

	issues := a.lineChecks(language, lines)
	issues = append(issues, a.securityChecks(lines)...)
	issues = append(issues, a.performanceChecks(lines)...)

	var complexity float64
	if language == "Go" {
		goIssues, goComplexity, err := analyzeGo(filename, content)
		if err != nil {
			issues = append(issues, syntaxIssue(err))
			complexity = a.genericComplexity(language, lines)
		} else {
			issues = append(issues, goIssues...)
			complexity = goComplexity
		}
	} else {
		complexity = a.genericComplexity(language, lines)
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Line < issues[j].Line })
	return analysis.Report{Complexity: complexity, Issues: issues}, nil
}

// lineChecks covers the style rules every language shares.
func (a *Analyzer) lineChecks(language string, lines []string) []domain.FileIssue {
	var issues []domain.FileIssue
	debugPattern := debugPrintPattern(language)

	for i, line := range lines {
		lineNo := i + 1
		if len(line) > maxLineLength {
			issues = append(issues, domain.FileIssue{
				Rule:       "long-line",
				Category:   domain.CategoryStyle,
				Severity:   domain.RuleInfo,
				Message:    "Line exceeds 120 characters; consider wrapping.",
				Line:       lineNo,
				Confidence: 0.9,
			})
		}
		if a.trailingWS.MatchString(line) {
			issues = append(issues, domain.FileIssue{
				Rule:        "trailing-whitespace",
				Category:    domain.CategoryStyle,
				Severity:    domain.RuleInfo,
				Message:     "Trailing whitespace.",
				Line:        lineNo,
				Confidence:  0.99,
				AutoFixable: true,
			})
		}
		if a.todoPattern.MatchString(line) {
			issues = append(issues, domain.FileIssue{
				Rule:       "todo-marker",
				Category:   domain.CategoryStyle,
				Severity:   domain.RuleInfo,
				Message:    "Unresolved TODO/FIXME marker.",
				Line:       lineNo,
				Confidence: 0.8,
			})
		}
		if debugPattern != nil && debugPattern.MatchString(line) {
			issues = append(issues, domain.FileIssue{
				Rule:        "debug-print",
				Category:    domain.CategoryStyle,
				Severity:    domain.RuleWarning,
				Message:     "Debug print statement left in the change.",
				Line:        lineNo,
				Confidence:  0.85,
				AutoFixable: true,
			})
		}
		if nestingDepth(line) >= 5 {
			issues = append(issues, domain.FileIssue{
				Rule:       "deep-nesting",
				Category:   domain.CategoryComplexity,
				Severity:   domain.RuleWarning,
				Message:    "Deep nesting; consider extracting a helper.",
				Line:       lineNo,
				Confidence: 0.6,
			})
		}
	}
	return issues
}

func (a *Analyzer) securityChecks(lines []string) []domain.FileIssue {
	var issues []domain.FileIssue
	for i, line := range lines {
		lineNo := i + 1
		switch {
		case a.credentialPattern.MatchString(line):
			issues = append(issues, domain.FileIssue{
				Rule:       "hardcoded-credential",
				Category:   domain.CategorySecurity,
				Severity:   domain.RuleError,
				Message:    "Possible hardcoded credential; move it to configuration.",
				Line:       lineNo,
				Confidence: 0.75,
			})
		case a.awsKeyPattern.MatchString(line):
			issues = append(issues, domain.FileIssue{
				Rule:       "aws-access-key",
				Category:   domain.CategorySecurity,
				Severity:   domain.RuleError,
				Message:    "AWS access key ID committed to source.",
				Line:       lineNo,
				Confidence: 0.95,
			})
		case strings.Contains(line, a.privateKeyMarker) && strings.Contains(line, "PRIVATE KEY"):
			issues = append(issues, domain.FileIssue{
				Rule:       "private-key-material",
				Category:   domain.CategorySecurity,
				Severity:   domain.RuleError,
				Message:    "Private key material committed to source.",
				Line:       lineNo,
				Confidence: 0.95,
			})
		case a.sqlConcatPattern.MatchString(line):
			issues = append(issues, domain.FileIssue{
				Rule:       "sql-string-concat",
				Category:   domain.CategorySecurity,
				Severity:   domain.RuleError,
				Message:    "SQL assembled by string concatenation; use parameterized queries.",
				Line:       lineNo,
				Confidence: 0.6,
			})
		}
	}
	return issues
}

// performanceChecks flags query calls and string building inside loops.
// Loop extent is tracked by raw indentation width, which holds up across
// both braced and indentation-scoped languages.
func (a *Analyzer) performanceChecks(lines []string) []domain.FileIssue {
	var issues []domain.FileIssue
	type loop struct{ indent int }
	var stack []loop

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := leadingWidth(line)
		for len(stack) > 0 && indent <= stack[len(stack)-1].indent {
			stack = stack[:len(stack)-1]
		}

		if len(stack) > 0 {
			lineNo := i + 1
			if a.queryPattern.MatchString(line) {
				issues = append(issues, domain.FileIssue{
					Rule:       "query-in-loop",
					Category:   domain.CategoryPerformance,
					Severity:   domain.RuleError,
					Message:    "Query issued inside a loop; batch it or hoist it out.",
					Line:       lineNo,
					Confidence: 0.65,
				})
			}
			if a.concatInLoop.MatchString(line) {
				issues = append(issues, domain.FileIssue{
					Rule:       "string-concat-in-loop",
					Category:   domain.CategoryPerformance,
					Severity:   domain.RuleWarning,
					Message:    "String concatenation inside a loop; prefer a builder.",
					Line:       lineNo,
					Confidence: 0.5,
				})
			}
		}

		if a.loopPattern.MatchString(line) {
			stack = append(stack, loop{indent: indent})
		}
	}
	return issues
}

// genericComplexity estimates decision points per function from the
// text alone.
func (a *Analyzer) genericComplexity(language string, lines []string) float64 {
	funcPattern := functionPattern(language)
	decisions, functions := 0, 0
	for _, line := range lines {
		decisions += len(a.decisionPattern.FindAllString(line, -1))
		if funcPattern != nil && funcPattern.MatchString(line) {
			functions++
		}
	}
	if functions == 0 {
		functions = 1
	}
	return float64(decisions) / float64(functions)
}

var debugPatterns = map[string]*regexp.Regexp{
	"Go":         regexp.MustCompile(`fmt\.Print(ln|f)?\(`),
	"JavaScript": regexp.MustCompile(`console\.(log|debug)\(`),
	"TypeScript": regexp.MustCompile(`console\.(log|debug)\(`),
	"Python":     regexp.MustCompile(`^\s*print\(`),
	"Java":       regexp.MustCompile(`System\.out\.print`),
	"PHP":        regexp.MustCompile(`\b(var_dump|print_r)\(`),
	"Ruby":       regexp.MustCompile(`^\s*(puts|pp)\s`),
}

func debugPrintPattern(language string) *regexp.Regexp {
	return debugPatterns[language]
}

var functionPatterns = map[string]*regexp.Regexp{
	"Go":         regexp.MustCompile(`^func\s`),
	"JavaScript": regexp.MustCompile(`\bfunction\b|=>\s*{`),
	"TypeScript": regexp.MustCompile(`\bfunction\b|=>\s*{`),
	"Python":     regexp.MustCompile(`^\s*def\s`),
	"Ruby":       regexp.MustCompile(`^\s*def\s`),
	"Java":       regexp.MustCompile(`(public|private|protected|static).*\(.*\)\s*{`),
	"C#":         regexp.MustCompile(`(public|private|protected|static).*\(.*\)\s*{`),
	"Kotlin":     regexp.MustCompile(`\bfun\s`),
	"Swift":      regexp.MustCompile(`\bfunc\s`),
	"Rust":       regexp.MustCompile(`\bfn\s`),
}

func functionPattern(language string) *regexp.Regexp {
	return functionPatterns[language]
}

// nestingDepth counts indentation levels, one tab or four spaces each.
func nestingDepth(line string) int {
	spaces, tabs := 0, 0
	for _, r := range line {
		switch r {
		case ' ':
			spaces++
		case '\t':
			tabs++
		default:
			return tabs + spaces/4
		}
	}
	return 0
}

// leadingWidth measures raw indentation, tabs weighted as four columns.
func leadingWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
