// Package docengine adapts the external layout-extraction engine's view of a
// paginated document. The translation pipeline consumes documents only through
// the Document and Page interfaces; the concrete implementation here reads and
// writes the engine's JSON layout dump.
package docengine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Fragment is a positioned run of text within a page, the smallest unit the
// pipeline reintegrates. Position within the page is its index in the page's
// fragment list. Reintegration replaces Text only; layout attributes are
// never touched.
type Fragment struct {
	Text string  `json:"text"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	W    float64 `json:"w,omitempty"`
	Font string  `json:"font,omitempty"`
	Size float64 `json:"size,omitempty"`
}

// Page is one page of a document, identified by its 1-based number.
type Page interface {
	Number() int
	// FullText returns the page's whole extracted text.
	FullText() (string, error)
	// Fragments returns the page's ordered fragment objects. Callers receive
	// the engine-owned originals; mutating their Text mutates the document.
	Fragments() ([]*Fragment, error)
	// Paragraphs returns the page's paragraph groupings.
	Paragraphs() ([]string, error)
}

// Document is a paginated document open for translation. It is owned
// exclusively by one pipeline run and saved exactly once at the end.
type Document interface {
	// Pages returns all pages ordered by page number, 1..N.
	Pages() []Page
	Save(path string) error
}

// layoutFile is the on-disk shape of an engine layout dump.
type layoutFile struct {
	Source string        `json:"source,omitempty"`
	Pages  []*layoutPage `json:"pages"`
}

type layoutPage struct {
	Num   int         `json:"number"`
	Text  string      `json:"full_text"`
	Frags []*Fragment `json:"fragments"`
	Paras []string    `json:"paragraphs,omitempty"`
}

// LayoutDocument is a Document backed by a JSON layout dump.
type LayoutDocument struct {
	file layoutFile
}

// Open reads a layout dump from path.
func Open(path string) (*LayoutDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	var doc LayoutDocument
	if err := json.Unmarshal(data, &doc.file); err != nil {
		return nil, fmt.Errorf("failed to parse layout file: %w", err)
	}
	if len(doc.file.Pages) == 0 {
		return nil, fmt.Errorf("layout file %s contains no pages", path)
	}
	for i, p := range doc.file.Pages {
		if p.Num != i+1 {
			return nil, fmt.Errorf("page %d has number %d, expected contiguous 1-based numbering", i+1, p.Num)
		}
	}
	return &doc, nil
}

// Pages implements Document.
func (d *LayoutDocument) Pages() []Page {
	pages := make([]Page, len(d.file.Pages))
	for i, p := range d.file.Pages {
		pages[i] = p
	}
	return pages
}

// Save writes the document, including any mutated fragment texts, to path.
func (d *LayoutDocument) Save(path string) error {
	data, err := json.MarshalIndent(&d.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout file: %w", err)
	}
	return nil
}

// PageCount returns the number of pages.
func (d *LayoutDocument) PageCount() int {
	return len(d.file.Pages)
}

func (p *layoutPage) Number() int { return p.Num }

func (p *layoutPage) FullText() (string, error) {
	if p.Text == "" && len(p.Frags) > 0 {
		// Older dumps omit full_text; rebuild it from the fragments.
		parts := make([]string, 0, len(p.Frags))
		for _, f := range p.Frags {
			if f.Text != "" {
				parts = append(parts, f.Text)
			}
		}
		return strings.Join(parts, " "), nil
	}
	return p.Text, nil
}

func (p *layoutPage) Fragments() ([]*Fragment, error) {
	if p.Frags == nil {
		return nil, fmt.Errorf("page %d has no fragment list", p.Num)
	}
	return p.Frags, nil
}

func (p *layoutPage) Paragraphs() ([]string, error) {
	return p.Paras, nil
}
