package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/seo-insight/backend/extractor"
	"github.com/seo-insight/backend/stats"
	"github.com/seo-insight/backend/urlguard"
)

// ErrAnalysisFailed wraps any internal failure that is neither a URL
// validation nor a fetch problem.
var ErrAnalysisFailed = errors.New("analysis failed")

// Fetcher retrieves the live HTML of a validated URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor builds a page snapshot from raw HTML. Isolated behind an
// interface so the selector-based implementation can be swapped without
// touching the check engine.
type Extractor interface {
	Extract(rawHTML, baseURL string) *extractor.PageSnapshot
}

// Service runs the full analysis pipeline: guard, fetch, extract, check,
// score. One invocation produces one immutable Result.
type Service struct {
	guard     *urlguard.Guard
	fetcher   Fetcher
	extractor Extractor
	engine    *Engine
	storage   *stats.Storage
}

// NewService wires the pipeline. storage may be nil to disable usage
// counters.
func NewService(guard *urlguard.Guard, fetcher Fetcher, ex Extractor, engine *Engine, storage *stats.Storage) *Service {
	return &Service{
		guard:     guard,
		fetcher:   fetcher,
		extractor: ex,
		engine:    engine,
		storage:   storage,
	}
}

// Analyze validates and fetches the requested URL, evaluates the check
// catalogue against it, and returns the scored result. Validation failures
// surface as urlguard.ErrInvalidURL before any network access; exhausted
// fetches surface as fetcher.ErrFetchFailed with no partial result.
func (s *Service) Analyze(ctx context.Context, req Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrAnalysisFailed, r)
		}
		if s.storage != nil {
			s.storage.RecordAnalysis(err != nil)
		}
	}()

	if req.Keyphrase == "" {
		return nil, fmt.Errorf("%w: keyphrase is required", ErrAnalysisFailed)
	}

	normalized, err := s.guard.Validate(req.URL)
	if err != nil {
		return nil, err
	}

	html, err := s.fetcher.Fetch(ctx, normalized)
	if err != nil {
		return nil, err
	}

	snap := s.extractor.Extract(html, normalized)
	checks := s.engine.Evaluate(ctx, snap, req.Keyphrase, req.IsHomePage, req.PageData)

	passed := 0
	for _, check := range checks {
		if check.Passed {
			passed++
		}
	}

	return &Result{
		Checks:       checks,
		PassedChecks: passed,
		FailedChecks: len(checks) - passed,
		URL:          normalized,
		Score:        Score(checks),
		Timestamp:    time.Now().UTC(),
		APIDataUsed:  req.PageData != nil,
	}, nil
}
