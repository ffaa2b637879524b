package ml

import (
	"math"
	"math/rand"
	"sync"
)

// RandomForestClassifier bags CART trees over bootstrap samples and averages
// their leaf distributions.
type RandomForestClassifier struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64

	Trees       []*DecisionTreeClassifier
	NClasses    int
	Importances []float64
}

func NewRandomForestClassifier(nEstimators, maxDepth, minSamplesSplit int, seed int64) *RandomForestClassifier {
	return &RandomForestClassifier{
		NEstimators:     nEstimators,
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		Seed:            seed,
	}
}

func (rf *RandomForestClassifier) Fit(features [][]float64, labels []int, nClasses int) error {
	if err := validateTrainingSet(features, labels, nClasses); err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		rf.NEstimators = 100
	}
	n := len(features)
	nFeatures := len(features[0])
	maxFeatures := int(math.Sqrt(float64(nFeatures)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	errs := make([]error, rf.NEstimators)
	var wg sync.WaitGroup
	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			seed := rf.Seed + int64(idx)
			rng := rand.New(rand.NewSource(seed))

			sampleX := make([][]float64, n)
			sampleY := make([]int, n)
			for j := 0; j < n; j++ {
				k := rng.Intn(n)
				sampleX[j] = features[k]
				sampleY[j] = labels[k]
			}

			tree := NewDecisionTreeClassifier(rf.MaxDepth, rf.MinSamplesSplit, 1)
			tree.MaxFeatures = maxFeatures
			tree.Seed = seed
			if err := tree.Fit(sampleX, sampleY, nClasses); err != nil {
				errs[idx] = err
				return
			}
			trees[idx] = tree
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	importances := make([]float64, nFeatures)
	for _, tree := range trees {
		for j, v := range tree.Importances {
			importances[j] += v
		}
	}
	for j := range importances {
		importances[j] /= float64(len(trees))
	}

	rf.Trees = trees
	rf.NClasses = nClasses
	rf.Importances = normalize(importances)
	return nil
}

func (rf *RandomForestClassifier) Predict(features [][]float64) []int {
	proba := rf.PredictProba(features)
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = argmax(p)
	}
	return out
}

// PredictProba averages the leaf distributions of every tree.
func (rf *RandomForestClassifier) PredictProba(features [][]float64) [][]float64 {
	out := make([][]float64, len(features))
	for i, row := range features {
		votes := make([]float64, rf.NClasses)
		for _, tree := range rf.Trees {
			for c, p := range tree.leaf(row).Distribution {
				votes[c] += p
			}
		}
		for c := range votes {
			votes[c] /= float64(len(rf.Trees))
		}
		out[i] = votes
	}
	return out
}

func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), rf.Importances...)
}
