package session

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalab/dataset"
	"datalab/ml"
)

func flowers(t *testing.T, n int) *dataset.Table {
	t.Helper()
	var b strings.Builder
	b.WriteString("petal,sepal,color,species\n")
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d.%d,%d,red,setosa\n", 1+i%3, i%10, 2+i%2)
		} else {
			fmt.Fprintf(&b, "%d.%d,%d,blue,virginica\n", 6+i%3, i%10, 5+i%2)
		}
	}
	table, err := dataset.Load(strings.NewReader(b.String()))
	require.NoError(t, err)
	return table
}

func TestTrainAndPredict(t *testing.T) {
	sess := New(DefaultID, ml.DefaultSeed)
	result, err := sess.Train(flowers(t, 40), TrainRequest{Kind: ml.DecisionTree, Target: "species", TestSize: 0.25})
	require.NoError(t, err)
	assert.Equal(t, 40, result.Rows)
	assert.Equal(t, 3, result.Features)
	assert.Len(t, result.Split.TestY, 10)
	assert.Equal(t, 1.0, result.Metrics.Accuracy)
	assert.NotEmpty(t, result.Importance)

	// the target column is ignored if present
	predictions, err := sess.Predict(flowers(t, 4))
	require.NoError(t, err)
	assert.Equal(t, []string{"setosa", "virginica", "setosa", "virginica"}, predictions)
}

func TestFailedTrainKeepsPreviousModel(t *testing.T) {
	sess := New(DefaultID, ml.DefaultSeed)
	_, err := sess.Train(flowers(t, 20), TrainRequest{Kind: ml.KNearestNeighbors, Target: "species", TestSize: 0.2})
	require.NoError(t, err)

	_, err = sess.Train(flowers(t, 20), TrainRequest{Kind: ml.KNearestNeighbors, Target: "nope", TestSize: 0.2})
	assert.True(t, errors.Is(err, dataset.ErrColumnNotFound))
	_, err = sess.Train(flowers(t, 20), TrainRequest{Kind: ml.KNearestNeighbors, Target: "species", TestSize: 0.2, Params: ml.Params{"n_neighbors": 99.0}})
	assert.True(t, errors.Is(err, ml.ErrInvalidInput))

	kind, ok := sess.Manager.Kind()
	assert.True(t, ok)
	assert.Equal(t, ml.KNearestNeighbors, kind)
	assert.Equal(t, "species", sess.TargetColumn)
}

func TestPredictBeforeTrain(t *testing.T) {
	_, err := New(DefaultID, ml.DefaultSeed).Predict(flowers(t, 2))
	assert.True(t, errors.Is(err, ml.ErrNotTrained))
}

func TestPredictUnseenCategory(t *testing.T) {
	sess := New(DefaultID, ml.DefaultSeed)
	_, err := sess.Train(flowers(t, 20), TrainRequest{Kind: ml.RandomForest, Target: "species", TestSize: 0.2, Params: ml.Params{"n_estimators": 10.0}})
	require.NoError(t, err)

	table, err := dataset.Load(strings.NewReader("petal,sepal,color\n1.0,2,green\n"))
	require.NoError(t, err)
	_, err = sess.Predict(table)
	assert.True(t, errors.Is(err, dataset.ErrUnseenCategory))

	table, err = dataset.Load(strings.NewReader("petal,color\n1.0,red\n"))
	require.NoError(t, err)
	_, err = sess.Predict(table)
	assert.True(t, errors.Is(err, dataset.ErrColumnNotFound))
}

func TestPredictNumbersSentAsText(t *testing.T) {
	var b strings.Builder
	b.WriteString("x,label\n")
	for i := 0; i < 40; i++ {
		label := "lo"
		if i >= 20 {
			label = "hi"
		}
		fmt.Fprintf(&b, "%d,%s\n", i, label)
	}
	table, err := dataset.Load(strings.NewReader(b.String()))
	require.NoError(t, err)

	sess := New(DefaultID, ml.DefaultSeed)
	_, err = sess.Train(table, TrainRequest{Kind: ml.DecisionTree, Target: "label", TestSize: 0.2})
	require.NoError(t, err)

	records, err := dataset.FromRecords([]dataset.Record{
		{Keys: []string{"x"}, Values: []any{"35"}},
		{Keys: []string{"x"}, Values: []any{"3"}},
	})
	require.NoError(t, err)
	predictions, err := sess.Predict(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "lo"}, predictions)

	_, fitted := sess.Preprocessor.Encoder("x")
	assert.False(t, fitted)

	records, err = dataset.FromRecords([]dataset.Record{{Keys: []string{"x"}, Values: []any{"many"}}})
	require.NoError(t, err)
	_, err = sess.Predict(records)
	assert.True(t, errors.Is(err, dataset.ErrNotNumeric))
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "model.bundle")
	sess := New(DefaultID, ml.DefaultSeed)
	assert.True(t, errors.Is(sess.Save(path), ml.ErrNotTrained))

	_, err := sess.Train(flowers(t, 30), TrainRequest{Kind: ml.LogisticRegression, Target: "species", TestSize: 0.2})
	require.NoError(t, err)
	require.NoError(t, sess.Save(path))
	want, err := sess.Predict(flowers(t, 6))
	require.NoError(t, err)

	restored := New("other", ml.DefaultSeed)
	require.NoError(t, restored.Load(path))
	got, err := restored.Predict(flowers(t, 6))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "species", restored.TargetColumn)

	assert.True(t, errors.Is(restored.Load(filepath.Join(t.TempDir(), "missing")), ml.ErrCorruptArtifact))
}

func TestStoreGetOrCreate(t *testing.T) {
	store, err := NewStore(2, ml.DefaultSeed, nil)
	require.NoError(t, err)

	a := store.Get("")
	assert.Equal(t, DefaultID, a.ID)
	assert.Same(t, a, store.Get(DefaultID))

	b := store.New()
	assert.NotEqual(t, DefaultID, b.ID)
	assert.Equal(t, 2, store.Len())

	store.New()
	assert.Equal(t, 2, store.Len())
	assert.NotSame(t, a, store.Get(DefaultID), "least recently used session is evicted")
}
