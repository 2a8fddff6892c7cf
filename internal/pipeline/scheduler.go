package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/valpere/storitran/internal/diag"
	"github.com/valpere/storitran/internal/docengine"
)

// DefaultConcurrency bounds the number of pages processed at once.
const DefaultConcurrency = 4

// SchedulerConfig configures a document run.
type SchedulerConfig struct {
	// Concurrency is the maximum number of pages in flight; zero or negative
	// means DefaultConcurrency.
	Concurrency int
	Sink        *diag.Sink
}

// PageOutcome is the result of one page's pipeline invocation.
type PageOutcome struct {
	PageNumber int
	Attempts   int
	Duration   time.Duration
	Err        error
}

// RunSummary describes a whole document run.
type RunSummary struct {
	PagesTotal int
	Succeeded  int
	Failed     int
	Saved      bool
	Duration   time.Duration
	// Outcomes is ordered by page number and has one entry per page.
	Outcomes []PageOutcome
}

// PartialError reports a saved run in which some pages failed.
type PartialError struct {
	Failed []PageOutcome
}

func (e *PartialError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, o := range e.Failed {
		parts[i] = fmt.Sprintf("page %d: %v", o.PageNumber, o.Err)
	}
	return fmt.Sprintf("%d page(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Scheduler fans a document's pages out over a shared pipeline.
type Scheduler struct {
	pipeline *Pipeline
	config   SchedulerConfig
}

func NewScheduler(p *Pipeline, config SchedulerConfig) *Scheduler {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	return &Scheduler{pipeline: p, config: config}
}

// Process runs the pipeline once per page with bounded concurrency, waits for
// every page to finish, then saves the document exactly once. The run is
// best effort: per-page failures do not stop other pages, and the document is
// saved as long as at least one page succeeded. The returned error is nil on
// full success, a *PartialError when the document was saved with failed
// pages, and a plain error when nothing could be saved.
func (s *Scheduler) Process(ctx context.Context, doc docengine.Document, outputPath string) (*RunSummary, error) {
	start := time.Now()
	pages := doc.Pages()

	summary := &RunSummary{PagesTotal: len(pages)}
	if len(pages) == 0 {
		return summary, fmt.Errorf("document has no pages")
	}

	outcomes := make(chan PageOutcome, len(pages))
	sem := make(chan struct{}, s.config.Concurrency)

	var wg sync.WaitGroup
	for _, page := range pages {
		wg.Add(1)
		go func(page docengine.Page) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			report, err := s.pipeline.Run(ctx, page)
			outcomes <- PageOutcome{
				PageNumber: page.Number(),
				Attempts:   report.Attempts,
				Duration:   report.Duration,
				Err:        err,
			}
		}(page)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	for outcome := range outcomes {
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	sort.Slice(summary.Outcomes, func(i, j int) bool {
		return summary.Outcomes[i].PageNumber < summary.Outcomes[j].PageNumber
	})
	summary.Duration = time.Since(start)

	if summary.Succeeded == 0 {
		return summary, fmt.Errorf("all %d pages failed: %w", summary.PagesTotal, firstError(summary.Outcomes))
	}

	if err := doc.Save(outputPath); err != nil {
		return summary, fmt.Errorf("failed to save document: %w", err)
	}
	summary.Saved = true
	s.logSummary(summary)

	if summary.Failed > 0 {
		return summary, &PartialError{Failed: failedOutcomes(summary.Outcomes)}
	}
	return summary, nil
}

func (s *Scheduler) logSummary(summary *RunSummary) {
	if s.config.Sink == nil {
		return
	}
	s.config.Sink.Add("run", "%d/%d pages translated in %s",
		summary.Succeeded, summary.PagesTotal, summary.Duration.Round(time.Millisecond))
	for _, o := range summary.Outcomes {
		if o.Err != nil {
			s.config.Sink.Add("run", "page %d failed: %v", o.PageNumber, o.Err)
		}
	}
	s.config.Sink.Flush("run")
}

func firstError(outcomes []PageOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

func failedOutcomes(outcomes []PageOutcome) []PageOutcome {
	var failed []PageOutcome
	for _, o := range outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}
