package ml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreWeightedAverages(t *testing.T) {
	truth := []string{"a", "a", "b"}
	pred := []string{"a", "b", "b"}

	m := Score(truth, pred)
	assert.InDelta(t, 2.0/3.0, m.Accuracy, 1e-12)
	// a: p=1 r=0.5, b: p=0.5 r=1; weights 2/3 and 1/3
	assert.InDelta(t, 2.0/3.0*1+1.0/3.0*0.5, m.Precision, 1e-12)
	assert.InDelta(t, 2.0/3.0*0.5+1.0/3.0*1, m.Recall, 1e-12)
	assert.Equal(t, [][]int{{1, 1}, {0, 1}}, m.ConfusionMatrix)
}

func TestScoreZeroDivision(t *testing.T) {
	m := Score([]string{"a", "a"}, []string{"b", "b"})
	assert.Equal(t, 0.0, m.Precision)
	assert.Equal(t, 0.0, m.Recall)
	assert.Equal(t, 0.0, m.F1)
	assert.Equal(t, []string{"a", "b"}, m.Labels)
}

func TestReportLayout(t *testing.T) {
	m := Score([]string{"a", "a", "b"}, []string{"a", "b", "b"})
	lines := strings.Split(m.Report, "\n")
	require.GreaterOrEqual(t, len(lines), 8)

	assert.Equal(t, "              precision    recall  f1-score   support", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "           a       1.00      0.50      0.67         2", lines[2])
	assert.Equal(t, "           b       0.50      1.00      0.67         1", lines[3])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "    accuracy                           0.67         3", lines[5])
	assert.Equal(t, "   macro avg       0.75      0.75      0.67         3", lines[6])
	assert.Equal(t, "weighted avg       0.83      0.67      0.67         3", lines[7])
}

func TestSortLabelsNumericAware(t *testing.T) {
	assert.Equal(t, []string{"2", "9", "10"}, SortLabels([]string{"10", "9"}, []string{"2", "9"}))
	assert.Equal(t, []string{"10", "9", "x"}, SortLabels([]string{"x", "9", "10"}))
	assert.True(t, NumericLabels([]string{"1", "0.5"}))
	assert.False(t, NumericLabels([]string{"1", "b"}))
}

func TestParseKindAndSchema(t *testing.T) {
	k, err := ParseKind("knn")
	require.NoError(t, err)
	assert.Equal(t, KNearestNeighbors, k)

	k, err = ParseKind("Random Forest")
	require.NoError(t, err)
	assert.Equal(t, RandomForest, k)

	_, err = ParseKind("svm")
	assert.ErrorIs(t, err, ErrUnknownModel)

	params, err := LogisticRegression.Resolve(Params{"C": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 2.5, params.Float("C"))
	assert.Equal(t, 100, params.Int("max_iter"))

	_, err = DecisionTree.Resolve(Params{"max_depth": 3.5})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Len(t, RandomForest.Schema(), 3)
}
