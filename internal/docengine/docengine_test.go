package docengine

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleLayout = `{
  "source": "sample.pdf",
  "pages": [
    {
      "number": 1,
      "full_text": "Hello world. Second line.",
      "fragments": [
        {"text": "Hello world.", "x": 72, "y": 700, "font": "Times", "size": 11},
        {"text": "Second line.", "x": 72, "y": 686, "font": "Times", "size": 11}
      ],
      "paragraphs": ["Hello world. Second line."]
    },
    {
      "number": 2,
      "full_text": "Page two.",
      "fragments": [
        {"text": "Page two.", "x": 72, "y": 700}
      ]
    }
  ]
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := os.WriteFile(path, []byte(sampleLayout), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen(t *testing.T) {
	doc, err := Open(writeSample(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pages := doc.Pages()
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if pages[0].Number() != 1 || pages[1].Number() != 2 {
		t.Errorf("unexpected page numbering: %d, %d", pages[0].Number(), pages[1].Number())
	}

	text, err := pages[0].FullText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello world. Second line." {
		t.Errorf("unexpected full text: %q", text)
	}

	frags, err := pages[0].Fragments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Text != "Hello world." || frags[1].Text != "Second line." {
		t.Error("fragment order not preserved")
	}
}

func TestOpen_BadNumbering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	content := `{"pages": [{"number": 2, "full_text": "x", "fragments": []}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for non-contiguous page numbering")
	}
}

func TestOpen_NoPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := os.WriteFile(path, []byte(`{"pages": []}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestSave_PersistsMutatedFragments(t *testing.T) {
	doc, err := Open(writeSample(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	frags, _ := doc.Pages()[0].Fragments()
	frags[0].Text = "Привіт, світе."

	out := filepath.Join(t.TempDir(), "out", "translated.json")
	if err := doc.Save(out); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	reopened, err := Open(out)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	refrags, _ := reopened.Pages()[0].Fragments()
	if refrags[0].Text != "Привіт, світе." {
		t.Errorf("mutated fragment not persisted: %q", refrags[0].Text)
	}
	if refrags[1].Text != "Second line." {
		t.Errorf("untouched fragment changed: %q", refrags[1].Text)
	}
	if refrags[0].X != 72 || refrags[0].Font != "Times" {
		t.Error("layout attributes not preserved through save")
	}
}

func TestFullText_RebuiltFromFragments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	content := `{"pages": [{"number": 1, "fragments": [{"text": "a"}, {"text": ""}, {"text": "b"}]}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := doc.Pages()[0].FullText()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "a b" {
		t.Errorf("expected rebuilt full text %q, got %q", "a b", text)
	}
}
