package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogisticRegressionClassifier is a multinomial softmax model with an L2
// penalty of strength 1/C, fitted by full-batch gradient descent on
// standardized features.
type LogisticRegressionClassifier struct {
	C       float64
	MaxIter int

	NFeatures int
	NClasses  int
	Mean      []float64
	Scale     []float64
	// Weights is NFeatures x NClasses, row-major.
	Weights   []float64
	Intercept []float64
}

func NewLogisticRegressionClassifier(c float64, maxIter int) *LogisticRegressionClassifier {
	return &LogisticRegressionClassifier{C: c, MaxIter: maxIter}
}

func (m *LogisticRegressionClassifier) Fit(features [][]float64, labels []int, nClasses int) error {
	if err := validateTrainingSet(features, labels, nClasses); err != nil {
		return err
	}
	if m.C <= 0 {
		m.C = 1
	}
	if m.MaxIter <= 0 {
		m.MaxIter = 100
	}
	n := len(features)
	d := len(features[0])
	m.NFeatures = d
	m.NClasses = nClasses
	m.fitScaler(features)

	x := m.standardize(features)
	onehot := mat.NewDense(n, nClasses, nil)
	for i, y := range labels {
		onehot.Set(i, y, 1)
	}

	w := mat.NewDense(d, nClasses, nil)
	b := make([]float64, nClasses)
	penalty := 1 / (m.C * float64(n))
	lr := 1 / (0.5*float64(d+1) + penalty)

	var scores, grad, gradW mat.Dense
	for iter := 0; iter < m.MaxIter; iter++ {
		scores.Mul(x, w)
		softmaxRows(&scores, b)
		grad.Sub(&scores, onehot)

		gradW.Mul(x.T(), &grad)
		gradW.Scale(1/float64(n), &gradW)
		var reg mat.Dense
		reg.Scale(penalty, w)
		gradW.Add(&gradW, &reg)

		gradW.Scale(lr, &gradW)
		w.Sub(w, &gradW)
		for k := 0; k < nClasses; k++ {
			col := mat.Col(nil, k, &grad)
			sum := 0.0
			for _, v := range col {
				sum += v
			}
			b[k] -= lr * sum / float64(n)
		}
	}

	m.Weights = append([]float64(nil), w.RawMatrix().Data...)
	m.Intercept = b
	return nil
}

func (m *LogisticRegressionClassifier) Predict(features [][]float64) []int {
	proba := m.PredictProba(features)
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out
}

func (m *LogisticRegressionClassifier) PredictProba(features [][]float64) [][]float64 {
	if len(features) == 0 {
		return nil
	}
	x := m.standardize(features)
	w := mat.NewDense(m.NFeatures, m.NClasses, append([]float64(nil), m.Weights...))
	var scores mat.Dense
	scores.Mul(x, w)
	softmaxRows(&scores, m.Intercept)

	out := make([][]float64, len(features))
	for i := range out {
		out[i] = mat.Row(nil, i, &scores)
	}
	return out
}

func (m *LogisticRegressionClassifier) fitScaler(features [][]float64) {
	d := len(features[0])
	m.Mean = make([]float64, d)
	m.Scale = make([]float64, d)
	for j := 0; j < d; j++ {
		sum := 0.0
		for _, row := range features {
			sum += row[j]
		}
		mean := sum / float64(len(features))
		variance := 0.0
		for _, row := range features {
			diff := row[j] - mean
			variance += diff * diff
		}
		std := math.Sqrt(variance / float64(len(features)))
		if std == 0 {
			std = 1
		}
		m.Mean[j] = mean
		m.Scale[j] = std
	}
}

func (m *LogisticRegressionClassifier) standardize(features [][]float64) *mat.Dense {
	x := mat.NewDense(len(features), m.NFeatures, nil)
	for i, row := range features {
		for j := 0; j < m.NFeatures; j++ {
			x.Set(i, j, (row[j]-m.Mean[j])/m.Scale[j])
		}
	}
	return x
}

// softmaxRows adds the intercept to every row and applies a stable softmax in place.
func softmaxRows(scores *mat.Dense, intercept []float64) {
	rows, cols := scores.Dims()
	for i := 0; i < rows; i++ {
		maxScore := math.Inf(-1)
		for k := 0; k < cols; k++ {
			v := scores.At(i, k) + intercept[k]
			scores.Set(i, k, v)
			if v > maxScore {
				maxScore = v
			}
		}
		sum := 0.0
		for k := 0; k < cols; k++ {
			e := math.Exp(scores.At(i, k) - maxScore)
			scores.Set(i, k, e)
			sum += e
		}
		for k := 0; k < cols; k++ {
			scores.Set(i, k, scores.At(i, k)/sum)
		}
	}
}
