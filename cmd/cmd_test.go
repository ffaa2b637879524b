package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("size,color,label\n")
	for i := 0; i < 60; i++ {
		color := []string{"red", "green", "blue"}[i%3]
		label := "small"
		if i >= 30 {
			label = "large"
		}
		fmt.Fprintf(&b, "%d,%s,%s\n", i, color, label)
	}
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestTrainPredictDescribe(t *testing.T) {
	dir := t.TempDir()
	data := writeSample(t, dir)
	bundle := filepath.Join(dir, "models", "tree.bundle")

	out := run(t, "train", "--data", data, "--target", "label", "--model", "decision_tree",
		"--param", "max_depth=3", "--out", bundle)
	assert.Contains(t, out, "Decision Tree")
	assert.Contains(t, out, "weighted avg")
	assert.FileExists(t, bundle)

	out = run(t, "predict", "--data", data, "--model-path", bundle)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 61)
	assert.Equal(t, "size,color,label,prediction", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], ",small"), lines[1])
	assert.True(t, strings.HasSuffix(lines[60], ",large"), lines[60])

	out = run(t, "describe", "--data", data)
	assert.Contains(t, out, `"total_rows": 60`)
	assert.Contains(t, out, `"categorical"`)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	out := run(t, "--config", path, "config", "init")
	assert.Contains(t, out, "wrote")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "model_path: models/model.bundle")

	rootCmd.SetArgs([]string{"--config", path, "config", "init"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	assert.Error(t, rootCmd.Execute())
}
