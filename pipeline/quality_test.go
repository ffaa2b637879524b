package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"datalab/dataset"
)

func load(t *testing.T, input string) *dataset.Table {
	t.Helper()
	table, err := dataset.Load(strings.NewReader(input))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return table
}

func TestQualityRules(t *testing.T) {
	var ids strings.Builder
	ids.WriteString("id,value\n")
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&ids, "user-%d,%d\n", i, i%5)
	}
	var spiky strings.Builder
	spiky.WriteString("v\n")
	for i := 0; i < 30; i++ {
		spiky.WriteString("1\n")
	}
	spiky.WriteString("1000\n")

	tests := []struct {
		name   string
		rule   QualityRule
		input  string
		issues int
		column string
	}{
		{name: "mostly missing", rule: NewMissingValueRule(), input: "a,b\n1,\n2,\n3,x\n", issues: 1, column: "b"},
		{name: "half missing is fine", rule: NewMissingValueRule(), input: "a,b\n1,\n2,x\n", issues: 0},
		{name: "constant column", rule: NewConstantColumnRule(), input: "a,b\n1,x\n2,x\n", issues: 1, column: "b"},
		{name: "duplicate rows", rule: NewDuplicateRowRule(), input: "a,b\n1,x\n1,x\n2,y\n", issues: 1},
		{name: "no duplicates", rule: NewDuplicateRowRule(), input: "a,b\n1,x\n2,x\n", issues: 0},
		{name: "identifier column", rule: NewHighCardinalityRule(), input: ids.String(), issues: 1, column: "id"},
		{name: "outlier", rule: NewOutlierDetectionRule(), input: spiky.String(), issues: 1, column: "v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := tt.rule.Check(load(t, tt.input))
			if len(issues) != tt.issues {
				t.Fatalf("expected %d issues, got %v", tt.issues, issues)
			}
			if tt.column != "" && issues[0].Column != tt.column {
				t.Errorf("expected column %q, got %q", tt.column, issues[0].Column)
			}
			if tt.issues > 0 && issues[0].Type != tt.rule.Name() {
				t.Errorf("issue type %q does not match rule %q", issues[0].Type, tt.rule.Name())
			}
		})
	}
}

func TestQualityCheckerStats(t *testing.T) {
	checker := NewQualityChecker()
	if len(checker.rules) == 0 {
		t.Fatal("no default rules added")
	}
	issues := checker.Check(load(t, "a,b\n1,x\n1,x\n"))
	if len(issues) == 0 {
		t.Fatal("expected issues for a constant, duplicated table")
	}
	stats := checker.Stats()
	if stats["duplicate_rows"] != 1 {
		t.Errorf("expected 1 duplicate_rows issue, got %d", stats["duplicate_rows"])
	}
	if stats["constant_column"] != 2 {
		t.Errorf("expected 2 constant_column issues, got %d", stats["constant_column"])
	}
}

func TestBundleWatcherReloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "model.bundle")
	var reloads atomic.Int32
	w := NewBundleWatcher(path, func(string) error {
		reloads.Add(1)
		return nil
	}, nil)
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for reloads.Load() == 0 && time.Now().Before(deadline) {
		// keep writing until the watcher is attached and has fired
		if err := os.WriteFile(path, []byte("bundle"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if reloads.Load() == 0 {
		t.Fatal("expected at least one reload")
	}
}
