package ml

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs builds two noisy clusters over four features; the label follows the cluster.
func blobs(n int) (Matrix, []string) {
	rng := rand.New(rand.NewSource(7))
	x := Matrix{Columns: []string{"a", "b", "c", "d"}}
	y := make([]string, n)
	for i := 0; i < n; i++ {
		center := 0.0
		y[i] = "no"
		if i%2 == 1 {
			center = 3
			y[i] = "yes"
		}
		row := make([]float64, 4)
		for j := range row {
			row[j] = center + rng.NormFloat64()*0.5
		}
		x.Rows = append(x.Rows, row)
	}
	return x, y
}

func trained(t *testing.T, kind Kind, params Params) *Manager {
	t.Helper()
	x, y := blobs(100)
	m := NewManager()
	_, err := m.PrepareData(x, y, 0.2)
	require.NoError(t, err)
	require.NoError(t, m.Train(kind, params))
	return m
}

func TestSplitPartitionsRows(t *testing.T) {
	x, y := blobs(100)
	split, err := NewManager().PrepareData(x, y, 0.2)
	require.NoError(t, err)

	assert.Len(t, split.TestX.Rows, 20)
	assert.Len(t, split.TrainX.Rows, 80)
	assert.Len(t, split.TestY, 20)

	seen := make(map[int]bool)
	for _, idx := range append(append([]int(nil), split.TrainIndex...), split.TestIndex...) {
		assert.False(t, seen[idx], "row %d appears twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, 100)
	for i, idx := range split.TestIndex {
		assert.Equal(t, y[idx], split.TestY[i])
	}
}

func TestSplitRoundsTestSizeUp(t *testing.T) {
	x, y := blobs(11)
	split, err := NewManager().PrepareData(x, y, 0.25)
	require.NoError(t, err)
	assert.Len(t, split.TestX.Rows, 3)
	assert.Len(t, split.TrainX.Rows, 8)
}

func TestPrepareDataRejectsBadInput(t *testing.T) {
	x, y := blobs(10)
	m := NewManager()

	for _, size := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		_, err := m.PrepareData(x, y, size)
		assert.True(t, errors.Is(err, ErrInvalidInput), "test size %v", size)
	}
	_, err := m.PrepareData(x, y[:5], 0.2)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	_, err = m.PrepareData(Matrix{}, nil, 0.2)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	one, oneY := blobs(1)
	_, err = m.PrepareData(one, oneY, 0.5)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestTrainingIsDeterministic(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(kind.Slug(), func(t *testing.T) {
			first, err := trained(t, kind, nil).Evaluate()
			require.NoError(t, err)
			second, err := trained(t, kind, nil).Evaluate()
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestEvaluateConfusionMatrix(t *testing.T) {
	for _, kind := range Kinds {
		t.Run(kind.Slug(), func(t *testing.T) {
			metrics, err := trained(t, kind, nil).Evaluate()
			require.NoError(t, err)

			assert.Equal(t, []string{"no", "yes"}, metrics.Labels)
			total, trace := 0, 0
			for i, row := range metrics.ConfusionMatrix {
				for j, v := range row {
					total += v
					if i == j {
						trace += v
					}
				}
			}
			assert.Equal(t, 20, total)
			assert.InDelta(t, float64(trace)/20, metrics.Accuracy, 1e-12)
			assert.Greater(t, metrics.Accuracy, 0.9)
			assert.Contains(t, metrics.Report, "weighted avg")
		})
	}
}

func TestFeatureImportance(t *testing.T) {
	for _, kind := range []Kind{RandomForest, DecisionTree} {
		imp, err := trained(t, kind, nil).FeatureImportance()
		require.NoError(t, err)
		require.Len(t, imp, 4)
		sum := 0.0
		for i, fi := range imp {
			sum += fi.Importance
			if i > 0 {
				assert.GreaterOrEqual(t, imp[i-1].Importance, fi.Importance)
			}
		}
		assert.InDelta(t, 1.0, sum, 1e-9, kind.String())
	}
	for _, kind := range []Kind{KNearestNeighbors, LogisticRegression} {
		imp, err := trained(t, kind, nil).FeatureImportance()
		require.NoError(t, err)
		assert.Nil(t, imp, kind.String())
	}
}

func TestManagerStateErrors(t *testing.T) {
	m := NewManager()
	assert.True(t, errors.Is(m.Train(RandomForest, nil), ErrNotPrepared))
	_, err := m.Evaluate()
	assert.True(t, errors.Is(err, ErrNotTrained))
	_, err = m.Predict(Matrix{})
	assert.True(t, errors.Is(err, ErrNotTrained))
	_, err = m.FeatureImportance()
	assert.True(t, errors.Is(err, ErrNotTrained))
	assert.True(t, errors.Is(m.Save(filepath.Join(t.TempDir(), "m.bundle")), ErrNotTrained))

	x, y := blobs(10)
	_, err = m.PrepareData(x, y, 0.2)
	require.NoError(t, err)
	assert.True(t, errors.Is(m.Train(Kind(99), nil), ErrUnknownModel))
	assert.True(t, errors.Is(m.Train(KNearestNeighbors, Params{"n_neighbors": 0.0}), ErrInvalidInput))
	assert.True(t, errors.Is(m.Train(KNearestNeighbors, Params{"weights": "cosine"}), ErrInvalidInput))
	assert.True(t, errors.Is(m.Train(KNearestNeighbors, Params{"leaf_size": 3.0}), ErrInvalidInput))
}

func TestPredictAlignsColumns(t *testing.T) {
	m := trained(t, DecisionTree, Params{"max_depth": 4.0})
	x, _ := blobs(6)

	want, err := m.Predict(x)
	require.NoError(t, err)

	shuffled := Matrix{Columns: []string{"d", "extra", "b", "a", "c"}}
	for _, row := range x.Rows {
		shuffled.Rows = append(shuffled.Rows, []float64{row[3], -1, row[1], row[0], row[2]})
	}
	got, err := m.Predict(shuffled)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = m.Predict(Matrix{Columns: []string{"a", "b"}, Rows: [][]float64{{1, 2}}})
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "model.bundle")
	x, _ := blobs(30)

	for _, kind := range Kinds {
		t.Run(kind.Slug(), func(t *testing.T) {
			m := trained(t, kind, nil)
			want, err := m.Predict(x)
			require.NoError(t, err)
			require.NoError(t, m.Save(path))

			loaded := NewManager()
			require.NoError(t, loaded.Load(path))
			got, err := loaded.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			k, ok := loaded.Kind()
			assert.True(t, ok)
			assert.Equal(t, kind, k)
			assert.Equal(t, m.Features(), loaded.Features())

			wantImp, _ := m.FeatureImportance()
			gotImp, _ := loaded.FeatureImportance()
			assert.Equal(t, wantImp, gotImp)

			_, err = loaded.Evaluate()
			assert.True(t, errors.Is(err, ErrNotPrepared))
		})
	}
}

func TestLoadCorruptBundle(t *testing.T) {
	m := NewManager()
	assert.True(t, errors.Is(m.Decode(strings.NewReader("not a bundle")), ErrCorruptArtifact))
	assert.True(t, errors.Is(m.Load(filepath.Join(t.TempDir(), "missing")), ErrCorruptArtifact))

	var buf bytes.Buffer
	require.NoError(t, trained(t, KNearestNeighbors, nil).Encode(&buf))
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()/2])
	assert.True(t, errors.Is(m.Decode(truncated), ErrCorruptArtifact))
	_, ok := m.Kind()
	assert.False(t, ok)
}
