package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
)

type stubAnalyzer struct {
	mu    sync.Mutex
	calls []string
	fn    func(filename string, content []byte) (analysis.Report, error)
}

func (s *stubAnalyzer) AnalyzeFile(ctx context.Context, filename, language string, content []byte) (analysis.Report, error) {
	s.mu.Lock()
	s.calls = append(s.calls, filename)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(filename, content)
	}
	return analysis.Report{Complexity: 1}, nil
}

type stubSummarizer struct {
	summary string
	err     error
	calls   int
}

func (s *stubSummarizer) Summarize(ctx context.Context, result domain.ReviewResult) (string, error) {
	s.calls++
	return s.summary, s.err
}

type stubRedactor struct{}

func (stubRedactor) RedactBytes(content []byte) []byte {
	return []byte(strings.ReplaceAll(string(content), "hunter2", "<gone>"))
}

func staticLoader(content string) analysis.ContentLoader {
	return func(ctx context.Context, path string) ([]byte, error) {
		return []byte(content), nil
	}
}

func modified(names ...string) []domain.ChangedFile {
	files := make([]domain.ChangedFile, 0, len(names))
	for _, name := range names {
		files = append(files, domain.ChangedFile{Filename: name, Status: domain.FileStatusModified})
	}
	return files
}

func TestPullRequestIDFormat(t *testing.T) {
	req := analysis.Request{Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 7}
	if got := req.PullRequestID(); got != "github:acme/widgets#7" {
		t.Fatalf("unexpected pull request id: %s", got)
	}
}

func TestNewEngineRequiresAnalyzer(t *testing.T) {
	if _, err := analysis.NewEngine(analysis.Config{}); err == nil {
		t.Fatal("expected an error for a missing analyzer")
	}
}

func TestNewEngineRejectsUnknownMode(t *testing.T) {
	_, err := analysis.NewEngine(analysis.Config{Analyzer: &stubAnalyzer{}, Mode: "turbo"})
	if err == nil || !strings.Contains(err.Error(), "unknown mode") {
		t.Fatalf("expected an unknown mode error, got %v", err)
	}
}

func TestAnalyzeRequiresLoader(t *testing.T) {
	engine, err := analysis.NewEngine(analysis.Config{Analyzer: &stubAnalyzer{}})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}
	_, err = engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 1,
		Files: modified("main.go"),
	})
	if err == nil {
		t.Fatal("expected an error for a missing content loader")
	}
}

func TestFailingFileIsIsolated(t *testing.T) {
	for _, mode := range []analysis.Mode{analysis.ModeParallel, analysis.ModeSequential} {
		t.Run(string(mode), func(t *testing.T) {
			analyzer := &stubAnalyzer{fn: func(filename string, content []byte) (analysis.Report, error) {
				if filename == "b.go" {
					return analysis.Report{}, errors.New("tool crashed")
				}
				return analysis.Report{Complexity: 1}, nil
			}}
			engine, err := analysis.NewEngine(analysis.Config{Analyzer: analyzer, Mode: mode})
			if err != nil {
				t.Fatalf("building engine: %v", err)
			}

			result, err := engine.Analyze(context.Background(), analysis.Request{
				Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 1,
				Files: modified("d.go", "b.go", "a.go", "c.go"),
				Load:  staticLoader("package x"),
			})
			if err != nil {
				t.Fatalf("analyze: %v", err)
			}

			if len(result.Files) != 3 {
				t.Fatalf("expected 3 surviving files, got %d", len(result.Files))
			}
			for i, want := range []string{"a.go", "c.go", "d.go"} {
				if result.Files[i].Filename != want {
					t.Fatalf("files not sorted: position %d is %s, want %s", i, result.Files[i].Filename, want)
				}
			}
			if result.Metrics.FilesAttempted != 4 || result.Metrics.FilesSucceeded != 3 {
				t.Fatalf("unexpected attempt accounting: attempted=%d succeeded=%d",
					result.Metrics.FilesAttempted, result.Metrics.FilesSucceeded)
			}
			if len(result.Metrics.FileErrors) != 1 || result.Metrics.FileErrors[0].Filename != "b.go" {
				t.Fatalf("unexpected file errors: %+v", result.Metrics.FileErrors)
			}
			if !strings.Contains(result.Metrics.FileErrors[0].Message, "tool crashed") {
				t.Fatalf("file error lost its cause: %s", result.Metrics.FileErrors[0].Message)
			}
		})
	}
}

func TestSkipsRemovedAndNonAnalyzableFiles(t *testing.T) {
	analyzer := &stubAnalyzer{}
	engine, err := analysis.NewEngine(analysis.Config{Analyzer: analyzer, Mode: analysis.ModeSequential})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	files := []domain.ChangedFile{
		{Filename: "gone.go", Status: domain.FileStatusRemoved},
		{Filename: "vendor/lib/dep.go", Status: domain.FileStatusModified},
		{Filename: "assets/logo.png", Status: domain.FileStatusAdded},
		{Filename: "package-lock.json", Status: domain.FileStatusModified},
		{Filename: "main.go", Status: domain.FileStatusModified},
	}
	result, err := engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformGitLab, Owner: "acme", Repo: "widgets", Number: 2,
		Files: files,
		Load:  staticLoader("package main"),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if len(analyzer.calls) != 1 || analyzer.calls[0] != "main.go" {
		t.Fatalf("expected only main.go to be analyzed, got %v", analyzer.calls)
	}
	if result.Metrics.FilesAttempted != 1 {
		t.Fatalf("skipped files must not count as attempts, got %d", result.Metrics.FilesAttempted)
	}
}

func TestRedactorRunsBeforeAnalyzer(t *testing.T) {
	var seen string
	analyzer := &stubAnalyzer{fn: func(filename string, content []byte) (analysis.Report, error) {
		seen = string(content)
		return analysis.Report{}, nil
	}}
	engine, err := analysis.NewEngine(analysis.Config{Analyzer: analyzer, Redactor: stubRedactor{}, Mode: analysis.ModeSequential})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	_, err = engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 3,
		Files: modified("config.go"),
		Load:  staticLoader(`password := "hunter2"`),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if strings.Contains(seen, "hunter2") {
		t.Fatalf("analyzer saw unredacted content: %s", seen)
	}
	if !strings.Contains(seen, "<gone>") {
		t.Fatalf("redactor output missing placeholder: %s", seen)
	}
}

func TestSummarizerUpgradesTemplateSummary(t *testing.T) {
	engine, err := analysis.NewEngine(analysis.Config{
		Analyzer:   &stubAnalyzer{},
		Summarizer: &stubSummarizer{summary: "Solid change, minor style nits."},
	})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	result, err := engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 4,
		Files: modified("main.go"),
		Load:  staticLoader("package main"),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.Overall.Summary != "Solid change, minor style nits." {
		t.Fatalf("summarizer output not applied: %s", result.Overall.Summary)
	}
}

func TestSummarizerFailureKeepsTemplate(t *testing.T) {
	engine, err := analysis.NewEngine(analysis.Config{
		Analyzer:   &stubAnalyzer{},
		Summarizer: &stubSummarizer{err: errors.New("model unavailable")},
	})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	result, err := engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 5,
		Files: modified("main.go"),
		Load:  staticLoader("package main"),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.HasPrefix(result.Overall.Summary, "Reviewed 1 of 1 changed files") {
		t.Fatalf("expected the template summary to survive, got: %s", result.Overall.Summary)
	}
}

func TestNoSummarizerProducesTemplate(t *testing.T) {
	engine, err := analysis.NewEngine(analysis.Config{Analyzer: &stubAnalyzer{}})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	result, err := engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformBitbucket, Owner: "acme", Repo: "widgets", Number: 6,
		Files: modified("a.go", "b.go"),
		Load:  staticLoader("package x"),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.HasPrefix(result.Overall.Summary, "Reviewed 2 of 2 changed files") {
		t.Fatalf("unexpected summary: %s", result.Overall.Summary)
	}
	if result.Metrics.AnalysisDuration <= 0 {
		t.Fatal("analysis duration was not recorded")
	}
}

func TestParallelBoundsConcurrency(t *testing.T) {
	var active, peak int32
	analyzer := &stubAnalyzer{fn: func(filename string, content []byte) (analysis.Report, error) {
		current := atomic.AddInt32(&active, 1)
		for {
			observed := atomic.LoadInt32(&peak)
			if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return analysis.Report{}, nil
	}}

	engine, err := analysis.NewEngine(analysis.Config{Analyzer: analyzer, Mode: analysis.ModeParallel, MaxConcurrent: 2})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	var names []string
	for i := 0; i < 10; i++ {
		names = append(names, fmt.Sprintf("file%02d.go", i))
	}
	result, err := engine.Analyze(context.Background(), analysis.Request{
		Platform: domain.PlatformAzureDevOps, Owner: "acme", Repo: "widgets", Number: 7,
		Files: modified(names...),
		Load:  staticLoader("package x"),
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("concurrency exceeded the configured bound: peak %d", got)
	}
	if len(result.Files) != 10 {
		t.Fatalf("expected all files analyzed, got %d", len(result.Files))
	}
}

func TestCanceledContextAbortsAnalysis(t *testing.T) {
	for _, mode := range []analysis.Mode{analysis.ModeParallel, analysis.ModeSequential} {
		t.Run(string(mode), func(t *testing.T) {
			engine, err := analysis.NewEngine(analysis.Config{Analyzer: &stubAnalyzer{}, Mode: mode})
			if err != nil {
				t.Fatalf("building engine: %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err = engine.Analyze(ctx, analysis.Request{
				Platform: domain.PlatformGitHub, Owner: "acme", Repo: "widgets", Number: 8,
				Files: modified("main.go"),
				Load:  staticLoader("package main"),
			})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("expected context.Canceled, got %v", err)
			}
		})
	}
}
