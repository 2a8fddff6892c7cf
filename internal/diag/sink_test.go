package diag

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSink_GroupedBoxOutput(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(Options{Console: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Add("page_1", "stage extract took %dms", 12)
	s.Add("page_1", "stage translate took %dms", 340)

	if buf.Len() != 0 {
		t.Error("nothing should be written before Flush")
	}

	s.Flush("page_1")
	out := buf.String()
	if !strings.Contains(out, "page_1") {
		t.Error("group label missing from output")
	}
	if !strings.Contains(out, "stage extract took 12ms") {
		t.Error("first message missing from box")
	}
	if !strings.Contains(out, "╔") || !strings.Contains(out, "╚") {
		t.Error("box borders missing")
	}

	// Group is discarded after flush.
	buf.Reset()
	s.Flush("page_1")
	if buf.Len() != 0 {
		t.Error("flushing a flushed group must be a no-op")
	}
}

func TestSink_LongLinesWrapped(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(Options{Console: &buf, BoxWidth: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Add("g", "%s", strings.Repeat("x", 200))
	s.Flush("g")

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "x") && len([]rune(line)) > 70 {
			t.Errorf("line not wrapped to box width: %d runes", len([]rune(line)))
		}
	}
}

func TestSink_LogFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{LogDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Add("run", "page 3 succeeded")
	s.Flush("run")
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one log file, got %d (err %v)", len(entries), err)
	}
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "page 3 succeeded") {
		t.Error("message missing from log file")
	}
	if strings.Contains(content, "\033[") {
		t.Error("log file must not contain ANSI codes")
	}
}

func TestSink_WriteArtifact(t *testing.T) {
	dir := t.TempDir()
	s, err := New(Options{ArtifactDir: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := []byte(`{"page_number": 4}`)
	if err := s.WriteArtifact("page_data_json_4_data.json", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "page_data_json_4_data.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != string(payload) {
		t.Error("artifact payload mismatch")
	}
}

func TestSink_WriteArtifact_Disabled(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.WriteArtifact("x.json", []byte("{}")); err != nil {
		t.Errorf("disabled artifact dir must be a silent no-op, got %v", err)
	}
}

func TestSink_CloseFlushesRemainingGroups(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(Options{Console: &buf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Add("leftover", "still here")
	if err := s.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !strings.Contains(buf.String(), "still here") {
		t.Error("Close must flush remaining groups")
	}
}
