package docengine

import (
	"fmt"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// yTolerance is the vertical distance (in PDF points) within which two text
// runs are considered to sit on the same line.
const yTolerance = 2.0

// paragraphGap is the vertical gap above which consecutive lines start a new
// paragraph grouping.
const paragraphGap = 18.0

// ImportPDF converts a PDF into a LayoutDocument: one fragment per text line,
// paragraphs grouped by vertical gaps. It is a convenience for running the
// pipeline directly on a PDF when no engine layout dump is available.
func ImportPDF(path string) (*LayoutDocument, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	doc := &LayoutDocument{file: layoutFile{Source: path}}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		lp := &layoutPage{Num: i}
		if !page.V.IsNull() {
			lines := clusterLines(page.Content().Text)
			for _, ln := range lines {
				lp.Frags = append(lp.Frags, ln.fragment())
			}
			lp.Text = joinLineTexts(lines, " ")
			lp.Paras = groupParagraphs(lines)
		}
		doc.file.Pages = append(doc.file.Pages, lp)
	}

	if len(doc.file.Pages) == 0 {
		return nil, fmt.Errorf("pdf %s contains no pages", path)
	}
	return doc, nil
}

// line is an intermediate cluster of pdf text runs sharing a baseline.
type line struct {
	text string
	x, y float64
	w    float64
	font string
	size float64
}

func (l line) fragment() *Fragment {
	return &Fragment{Text: l.text, X: l.x, Y: l.y, W: l.w, Font: l.font, Size: l.size}
}

// clusterLines groups raw text runs into lines. ledongthuc/pdf reports runs
// in content-stream order, often per glyph, so runs are first sorted by
// position and then merged while the baseline stays within yTolerance.
func clusterLines(texts []pdflib.Text) []line {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdflib.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		// PDF Y grows upward; read top-to-bottom, then left-to-right.
		if diff := sorted[i].Y - sorted[j].Y; diff > yTolerance || diff < -yTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var lines []line
	var cur line
	var sb strings.Builder
	flush := func() {
		if sb.Len() == 0 {
			return
		}
		cur.text = sb.String()
		lines = append(lines, cur)
		sb.Reset()
	}

	for _, t := range sorted {
		if sb.Len() > 0 {
			diff := cur.y - t.Y
			if diff > yTolerance || diff < -yTolerance {
				flush()
			}
		}
		if sb.Len() == 0 {
			cur = line{x: t.X, y: t.Y, font: t.Font, size: t.FontSize}
		}
		sb.WriteString(t.S)
		cur.w = t.X + t.W - cur.x
	}
	flush()
	return lines
}

func joinLineTexts(lines []line, sep string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if s := strings.TrimSpace(l.text); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

// groupParagraphs joins consecutive lines into paragraph strings, starting a
// new paragraph whenever the vertical gap between lines exceeds paragraphGap.
func groupParagraphs(lines []line) []string {
	var paras []string
	var buf []string
	prevY := 0.0
	for i, l := range lines {
		if i > 0 && prevY-l.y > paragraphGap && len(buf) > 0 {
			paras = append(paras, strings.Join(buf, " "))
			buf = buf[:0]
		}
		if s := strings.TrimSpace(l.text); s != "" {
			buf = append(buf, s)
		}
		prevY = l.y
	}
	if len(buf) > 0 {
		paras = append(paras, strings.Join(buf, " "))
	}
	return paras
}
