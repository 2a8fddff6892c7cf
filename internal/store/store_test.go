package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, "in.json", "out.json", "en", "uk", "google", 3)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run ID")
	}

	if err := s.SavePageResult(ctx, id, 1, "succeeded", 1, 1200*time.Millisecond, ""); err != nil {
		t.Errorf("SavePageResult failed: %v", err)
	}
	if err := s.SavePageResult(ctx, id, 2, "failed", 3, 4*time.Second, "alignment retries exhausted"); err != nil {
		t.Errorf("SavePageResult failed: %v", err)
	}
	if err := s.SavePageResult(ctx, id, 3, "succeeded", 2, 2*time.Second, ""); err != nil {
		t.Errorf("SavePageResult failed: %v", err)
	}

	if err := s.FinishRun(ctx, id, "partial", 2, 1); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Status != "partial" || run.PagesSucceeded != 2 || run.PagesFailed != 1 {
		t.Errorf("unexpected run record: %+v", run)
	}

	pages, err := s.ListPageResults(ctx, id)
	if err != nil {
		t.Fatalf("ListPageResults failed: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("expected 3 page results, got %d", len(pages))
	}
	if pages[0].PageNumber != 1 || pages[2].PageNumber != 3 {
		t.Error("page results must be ordered by page number")
	}
	if pages[1].Status != "failed" || pages[1].Error == "" {
		t.Errorf("failed page must carry its error: %+v", pages[1])
	}
	if pages[0].DurationMs != 1200 {
		t.Errorf("expected 1200ms, got %d", pages[0].DurationMs)
	}
}

func TestStore_SavePageResult_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, "in.json", "out.json", "en", "uk", "ollama", 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.SavePageResult(ctx, id, 1, "failed", 1, time.Second, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := s.SavePageResult(ctx, id, 1, "succeeded", 2, 2*time.Second, ""); err != nil {
		t.Fatal(err)
	}

	pages, err := s.ListPageResults(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Status != "succeeded" {
		t.Errorf("re-saving a page must replace the row: %+v", pages)
	}
}

func TestStore_ListRuns_Empty(t *testing.T) {
	s := newTestStore(t)

	runs, err := s.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}
