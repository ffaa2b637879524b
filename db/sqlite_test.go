package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTrainingRunRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "data", "runs.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, model := range []string{"random_forest", "knn"} {
		run := &TrainingRun{
			SessionID:    "default",
			ModelType:    model,
			TargetColumn: "species",
			Rows:         100,
			Features:     3,
			TestSize:     0.2,
			Accuracy:     0.9,
			Duration:     1500 * time.Millisecond,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveTrainingRun(ctx, run); err != nil {
			t.Fatalf("save: %v", err)
		}
		if run.ID == "" {
			t.Fatalf("expected id to be assigned")
		}
	}

	runs, err := store.ListTrainingRuns(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ModelType != "knn" {
		t.Fatalf("expected newest first, got %s", runs[0].ModelType)
	}
	if runs[1].Duration != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %v", runs[1].Duration)
	}

	limited, err := store.ListTrainingRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected 1 run, got %d (%v)", len(limited), err)
	}
}

func TestPredictionBatches(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if n, err := store.CountPredictions(ctx, "s1"); err != nil || n != 0 {
		t.Fatalf("expected 0 predictions, got %d (%v)", n, err)
	}
	for _, n := range []int{3, 4} {
		if err := store.SavePredictionBatch(ctx, "s1", "knn", n); err != nil {
			t.Fatalf("save batch: %v", err)
		}
	}
	if n, _ := store.CountPredictions(ctx, "s1"); n != 7 {
		t.Fatalf("expected 7 predictions, got %d", n)
	}
}

func TestTrainingRunJSONUsesMilliseconds(t *testing.T) {
	b, err := TrainingRun{ID: "r1", Duration: 2500 * time.Millisecond}.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"duration_ms":2500`) || !strings.Contains(string(b), `"id":"r1"`) {
		t.Fatalf("unexpected json %s", b)
	}
}
