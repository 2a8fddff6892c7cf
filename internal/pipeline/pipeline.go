// Package pipeline runs the per-page translation sequence and schedules it
// across the pages of a document.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/valpere/storitran/internal/aligner"
	"github.com/valpere/storitran/internal/detector"
	"github.com/valpere/storitran/internal/diag"
	"github.com/valpere/storitran/internal/docengine"
	"github.com/valpere/storitran/internal/normalize"
	"github.com/valpere/storitran/internal/reintegrate"
	"github.com/valpere/storitran/internal/translator"
)

// Config wires the stages of a page pipeline together.
type Config struct {
	Service    translator.PageService
	ServiceCfg translator.ServiceConfig
	Aligner    *aligner.Client
	SourceLang string
	TargetLang string
	// Detector, when set, checks the translated page text against the target
	// language and logs a warning on mismatch. Never fails the page.
	Detector *detector.Detector
	Sink     *diag.Sink
}

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    string        `json:"stage"`
	Duration time.Duration `json:"duration"`
}

// PageReport summarizes one successfully processed page.
type PageReport struct {
	PageNumber int           `json:"page_number"`
	Fragments  int           `json:"fragments"`
	Attempts   int           `json:"attempts"`
	Timings    []StageTiming `json:"timings"`
	Duration   time.Duration `json:"duration"`
}

// Pipeline processes single pages. One Pipeline is shared by all page
// workers of a run; Run holds no state between calls.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes the stage sequence for one page: extract full text, extract
// and normalize fragments, group paragraphs, translate the whole page, align
// fragments, reintegrate. Any stage failure aborts the page; only the
// alignment stage retries internally. On success the page's fragments hold
// translated text and the report carries per-stage timings.
func (p *Pipeline) Run(ctx context.Context, page docengine.Page) (*PageReport, error) {
	report := &PageReport{PageNumber: page.Number()}
	start := time.Now()
	defer func() { report.Duration = time.Since(start) }()

	group := fmt.Sprintf("page_%d", page.Number())
	defer p.flushDiag(group)

	fullText, err := timed(report, "extract_text", func() (string, error) {
		text, err := page.FullText()
		if err != nil {
			return "", err
		}
		return normalize.Normalize(text), nil
	})
	if err != nil {
		return report, fmt.Errorf("page %d: text extraction failed: %w", page.Number(), err)
	}

	fragments, err := timed(report, "extract_fragments", func() ([]*docengine.Fragment, error) {
		frags, err := page.Fragments()
		if err != nil {
			return nil, err
		}
		// Normalization happens in place so the fragment texts the aligner
		// sees are the exact texts reintegration will compare against.
		// Fragments that normalize to "" are kept to preserve positions.
		for _, f := range frags {
			f.Text = normalize.Normalize(f.Text)
		}
		return frags, nil
	})
	if err != nil {
		return report, fmt.Errorf("page %d: fragment extraction failed: %w", page.Number(), err)
	}
	report.Fragments = len(fragments)
	p.addDiag(group, "extracted %d fragments", len(fragments))

	paragraphs, err := timed(report, "group_paragraphs", page.Paragraphs)
	if err != nil {
		return report, fmt.Errorf("page %d: paragraph grouping failed: %w", page.Number(), err)
	}
	p.addDiag(group, "grouped %d paragraphs", len(paragraphs))

	translated, err := timed(report, "translate_page", func() (string, error) {
		result, err := p.cfg.Service.TranslatePage(ctx, p.cfg.ServiceCfg, translator.PageRequest{
			PageNumber: page.Number(),
			Text:       fullText,
			SourceLang: p.cfg.SourceLang,
			TargetLang: p.cfg.TargetLang,
		})
		if err != nil {
			return "", err
		}
		return result.TranslatedText, nil
	})
	if err != nil {
		return report, fmt.Errorf("page %d: page translation failed: %w", page.Number(), err)
	}
	p.checkLanguage(group, translated)

	resp, attempts, err := timedAttempts(report, "align_fragments", func() (*aligner.PageResponse, int, error) {
		texts := make([]string, len(fragments))
		for i, f := range fragments {
			texts[i] = f.Text
		}
		req := aligner.BuildRequest(page.Number(), fullText, translated, texts)
		return p.cfg.Aligner.Align(ctx, req)
	})
	report.Attempts = attempts
	if err != nil {
		return report, fmt.Errorf("page %d: alignment failed: %w", page.Number(), err)
	}

	_, err = timed(report, "reintegrate", func() (struct{}, error) {
		return struct{}{}, reintegrate.Reintegrate(fragments, resp.TextFragments)
	})
	if err != nil {
		return report, fmt.Errorf("page %d: reintegration failed: %w", page.Number(), err)
	}

	p.addDiag(group, "page done in %s after %d alignment attempt(s)", report.Duration.Round(time.Millisecond), attempts)
	return report, nil
}

// checkLanguage warns when the translated text does not detect as the target
// language. Detection on short or mixed pages is unreliable, so this is
// advisory only.
func (p *Pipeline) checkLanguage(group, translated string) {
	if p.cfg.Detector == nil || p.cfg.TargetLang == "" {
		return
	}
	code, ok := p.cfg.Detector.DetectCode(translated)
	if ok && code != p.cfg.TargetLang {
		p.addDiag(group, "warning: translated text detected as %q, expected %q", code, p.cfg.TargetLang)
	}
}

func timed[T any](report *PageReport, stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	report.Timings = append(report.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
	return v, err
}

func timedAttempts[T any](report *PageReport, stage string, fn func() (T, int, error)) (T, int, error) {
	start := time.Now()
	v, n, err := fn()
	report.Timings = append(report.Timings, StageTiming{Stage: stage, Duration: time.Since(start)})
	return v, n, err
}

func (p *Pipeline) addDiag(group, format string, args ...any) {
	if p.cfg.Sink != nil {
		p.cfg.Sink.Add(group, format, args...)
	}
}

func (p *Pipeline) flushDiag(group string) {
	if p.cfg.Sink != nil {
		p.cfg.Sink.Flush(group)
	}
}
