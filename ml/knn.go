package ml

import (
	"math"
	"runtime"
	"sort"
	"sync"
)

// KNNClassifier stores the training set and votes among the k nearest rows.
type KNNClassifier struct {
	K       int
	Weights string
	Metric  string

	X        [][]float64
	Y        []int
	NClasses int
}

func NewKNNClassifier(k int, weights, metric string) *KNNClassifier {
	return &KNNClassifier{K: k, Weights: weights, Metric: metric}
}

func (m *KNNClassifier) Fit(features [][]float64, labels []int, nClasses int) error {
	if err := validateTrainingSet(features, labels, nClasses); err != nil {
		return err
	}
	if m.K <= 0 {
		m.K = 5
	}
	m.X = make([][]float64, len(features))
	for i, row := range features {
		m.X[i] = append([]float64(nil), row...)
	}
	m.Y = append([]int(nil), labels...)
	m.NClasses = nClasses
	return nil
}

// Predict splits rows across GOMAXPROCS workers.
func (m *KNNClassifier) Predict(features [][]float64) []int {
	out := make([]int, len(features))
	if len(features) == 0 {
		return out
	}
	workers := runtime.GOMAXPROCS(0)
	perWorker := (len(features) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * perWorker
		end := min(start+perWorker, len(features))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				out[i] = m.predictOne(features[i])
			}
		}(start, end)
	}
	wg.Wait()
	return out
}

type neighbor struct {
	dist  float64
	label int
	index int
}

func (m *KNNClassifier) predictOne(row []float64) int {
	nbrs := make([]neighbor, len(m.X))
	for j, x := range m.X {
		nbrs[j] = neighbor{dist: m.distance(row, x), label: m.Y[j], index: j}
	}
	sort.Slice(nbrs, func(a, b int) bool {
		if nbrs[a].dist != nbrs[b].dist {
			return nbrs[a].dist < nbrs[b].dist
		}
		return nbrs[a].index < nbrs[b].index
	})
	k := min(m.K, len(nbrs))
	nbrs = nbrs[:k]

	votes := make([]float64, m.NClasses)
	if m.Weights == "distance" {
		// exact matches take all the weight when present
		exact := false
		for _, nb := range nbrs {
			if nb.dist == 0 {
				votes[nb.label]++
				exact = true
			}
		}
		if exact {
			return argmax(votes)
		}
		for _, nb := range nbrs {
			votes[nb.label] += 1 / nb.dist
		}
		return argmax(votes)
	}
	for _, nb := range nbrs {
		votes[nb.label]++
	}
	return argmax(votes)
}

func (m *KNNClassifier) distance(a, b []float64) float64 {
	switch m.Metric {
	case "manhattan":
		sum := 0.0
		for i := range a {
			sum += math.Abs(a[i] - b[i])
		}
		return sum
	default:
		// minkowski with p=2 is euclidean
		sum := 0.0
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum)
	}
}
