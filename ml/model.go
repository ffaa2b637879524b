package ml

import (
	"encoding/gob"
	"math"
)

// Classifier is a fitted-in-place multi-class model over dense features.
// Labels are class indices in [0, nClasses).
type Classifier interface {
	Fit(features [][]float64, labels []int, nClasses int) error
	Predict(features [][]float64) []int
}

// importanceProvider is implemented by models that expose per-feature importance.
type importanceProvider interface {
	FeatureImportances() []float64
}

func init() {
	gob.Register(&DecisionTreeClassifier{})
	gob.Register(&RandomForestClassifier{})
	gob.Register(&KNNClassifier{})
	gob.Register(&LogisticRegressionClassifier{})
}

// newClassifier builds an unfitted classifier of the given kind from resolved params.
func newClassifier(kind Kind, params Params, seed int64) (Classifier, error) {
	switch kind {
	case RandomForest:
		return NewRandomForestClassifier(
			params.Int("n_estimators"),
			params.Int("max_depth"),
			params.Int("min_samples_split"),
			seed,
		), nil
	case DecisionTree:
		tree := NewDecisionTreeClassifier(params.Int("max_depth"), params.Int("min_samples_split"), params.Int("min_samples_leaf"))
		tree.Seed = seed
		return tree, nil
	case KNearestNeighbors:
		return NewKNNClassifier(params.Int("n_neighbors"), params.Choice("weights"), params.Choice("metric")), nil
	case LogisticRegression:
		return NewLogisticRegressionClassifier(params.Float("C"), params.Int("max_iter")), nil
	default:
		return nil, ErrUnknownModel
	}
}

// kindOf reports the registry kind of a concrete classifier.
func kindOf(c Classifier) (Kind, bool) {
	switch c.(type) {
	case *RandomForestClassifier:
		return RandomForest, true
	case *DecisionTreeClassifier:
		return DecisionTree, true
	case *KNNClassifier:
		return KNearestNeighbors, true
	case *LogisticRegressionClassifier:
		return LogisticRegression, true
	default:
		return 0, false
	}
}

func validateTrainingSet(features [][]float64, labels []int, nClasses int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errEmptyTrainingSet
	}
	if len(features) != len(labels) {
		return errFeatureMismatch
	}
	width := len(features[0])
	for _, row := range features {
		if len(row) != width {
			return errFeatureMismatch
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrInvalidInput
			}
		}
	}
	for _, y := range labels {
		if y < 0 || y >= nClasses {
			return ErrInvalidInput
		}
	}
	return nil
}

// argmax returns the first index of the largest value.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
