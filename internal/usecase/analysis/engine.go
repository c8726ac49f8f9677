package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/pkg/log"
)

// Mode selects how per-file analyses are scheduled.
type Mode string

const (
	// ModeParallel analyzes files on a bounded worker pool.
	ModeParallel Mode = "parallel"
	// ModeSequential analyzes files one at a time, in changeset order.
	ModeSequential Mode = "sequential"
)

const defaultMaxConcurrent = 4

// Config assembles an Engine.
type Config struct {
	Analyzer      MetricsAnalyzer
	Summarizer    Summarizer // optional; template summaries without it
	Redactor      Redactor   // optional
	Logger        log.Logger
	Mode          Mode
	MaxConcurrent int
}

// Engine turns a changeset into a ReviewResult. A failing file never
// aborts the batch; its error lands in the result's metrics instead.
type Engine struct {
	analyzer      MetricsAnalyzer
	summarizer    Summarizer
	redactor      Redactor
	logger        log.Logger
	mode          Mode
	maxConcurrent int
}

// NewEngine validates the configuration and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analysis: metrics analyzer is required")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeParallel
	}
	if mode != ModeParallel && mode != ModeSequential {
		return nil, fmt.Errorf("analysis: unknown mode %q", mode)
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Engine{
		analyzer:      cfg.Analyzer,
		summarizer:    cfg.Summarizer,
		redactor:      cfg.Redactor,
		logger:        logger,
		mode:          mode,
		maxConcurrent: maxConcurrent,
	}, nil
}

// Request carries one review's inputs.
type Request struct {
	Platform domain.Platform
	Owner    string
	Repo     string
	Number   int
	Files    []domain.ChangedFile
	Load     ContentLoader
}

// PullRequestID renders the canonical identity the result is keyed on.
func (r Request) PullRequestID() string {
	return fmt.Sprintf("%s:%s/%s#%d", r.Platform, r.Owner, r.Repo, r.Number)
}

// Analyze runs the per-file pipeline over the changeset and aggregates
// the outcome. Removed files and non-analyzable paths are skipped before
// counting attempts.
func (e *Engine) Analyze(ctx context.Context, req Request) (domain.ReviewResult, error) {
	if req.Load == nil {
		return domain.ReviewResult{}, fmt.Errorf("analysis: content loader is required")
	}
	start := time.Now()

	var candidates []domain.ChangedFile
	for _, file := range req.Files {
		if file.Status == domain.FileStatusRemoved || !Analyzable(file.Filename) {
			continue
		}
		candidates = append(candidates, file)
	}

	var (
		mu       sync.Mutex
		files    []domain.FileAnalysis
		fileErrs []domain.FileError
	)
	recordErr := func(filename string, err error) {
		mu.Lock()
		fileErrs = append(fileErrs, domain.FileError{Filename: filename, Message: err.Error()})
		mu.Unlock()
		e.logger.Warnf(ctx, "analysis of %s failed: %v", filename, err)
	}

	if e.mode == ModeSequential {
		for _, file := range candidates {
			if err := ctx.Err(); err != nil {
				return domain.ReviewResult{}, fmt.Errorf("analysis: %w", err)
			}
			fa, err := e.analyzeFile(ctx, req, file)
			if err != nil {
				recordErr(file.Filename, err)
				continue
			}
			files = append(files, fa)
		}
	} else {
		sem := make(chan struct{}, e.maxConcurrent)
		var wg sync.WaitGroup
		for _, file := range candidates {
			if ctx.Err() != nil {
				break
			}
			wg.Add(1)
			go func(file domain.ChangedFile) {
				defer wg.Done()
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					recordErr(file.Filename, ctx.Err())
					return
				}
				fa, err := e.analyzeFile(ctx, req, file)
				if err != nil {
					recordErr(file.Filename, err)
					return
				}
				mu.Lock()
				files = append(files, fa)
				mu.Unlock()
			}(file)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return domain.ReviewResult{}, fmt.Errorf("analysis: %w", err)
		}
	}

	// Parallel completion order is nondeterministic; the result is not.
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })
	sort.Slice(fileErrs, func(i, j int) bool { return fileErrs[i].Filename < fileErrs[j].Filename })

	result := aggregate(req.PullRequestID(), files, fileErrs, len(candidates), TestCoverage(req.Files))
	result.Metrics.AnalysisDuration = time.Since(start)
	e.applySummary(ctx, &result)
	return result, nil
}

func (e *Engine) analyzeFile(ctx context.Context, req Request, file domain.ChangedFile) (domain.FileAnalysis, error) {
	content, err := req.Load(ctx, file.Filename)
	if err != nil {
		return domain.FileAnalysis{}, fmt.Errorf("loading content: %w", err)
	}
	if e.redactor != nil {
		content = e.redactor.RedactBytes(content)
	}

	language := DetectLanguage(file.Filename)
	report, err := e.analyzer.AnalyzeFile(ctx, file.Filename, language, content)
	if err != nil {
		return domain.FileAnalysis{}, fmt.Errorf("analyzing: %w", err)
	}
	return scoreFile(file.Filename, language, report), nil
}

// applySummary sets the deterministic template summary and upgrades it
// through the summarizer when one is configured.
func (e *Engine) applySummary(ctx context.Context, result *domain.ReviewResult) {
	result.Overall.Summary = templateSummary(*result)
	if e.summarizer == nil {
		return
	}
	summary, err := e.summarizer.Summarize(ctx, *result)
	if err != nil {
		e.logger.Warnf(ctx, "summarizer failed, keeping template summary: %v", err)
		return
	}
	if summary != "" {
		result.Overall.Summary = summary
	}
}
