package ml

import (
	"math/rand"
	"sort"
)

// DecisionTreeClassifier is a CART tree split on gini impurity.
// Nodes are stored flat, children referenced by index.
type DecisionTreeClassifier struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures limits the features examined per split; 0 means all.
	MaxFeatures int
	Seed        int64

	Nodes       []TreeNode
	NClasses    int
	NFeatures   int
	Importances []float64
}

type TreeNode struct {
	FeatureIdx   int       `json:"feature_idx"`
	Threshold    float64   `json:"threshold"`
	LeftChild    int       `json:"left_child"`
	RightChild   int       `json:"right_child"`
	ClassLabel   int       `json:"class_label"`
	IsLeaf       bool      `json:"is_leaf"`
	Distribution []float64 `json:"distribution"`
}

func NewDecisionTreeClassifier(maxDepth, minSamplesSplit, minSamplesLeaf int) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		MaxDepth:        maxDepth,
		MinSamplesSplit: minSamplesSplit,
		MinSamplesLeaf:  minSamplesLeaf,
	}
}

type treeBuilder struct {
	tree     *DecisionTreeClassifier
	features [][]float64
	labels   []int
	rng      *rand.Rand
	gains    []float64
}

func (dt *DecisionTreeClassifier) Fit(features [][]float64, labels []int, nClasses int) error {
	if err := validateTrainingSet(features, labels, nClasses); err != nil {
		return err
	}
	if dt.MaxDepth <= 0 {
		dt.MaxDepth = 10
	}
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}
	if dt.MinSamplesLeaf < 1 {
		dt.MinSamplesLeaf = 1
	}

	dt.NClasses = nClasses
	dt.NFeatures = len(features[0])
	dt.Nodes = dt.Nodes[:0]

	b := &treeBuilder{
		tree:     dt,
		features: features,
		labels:   labels,
		rng:      rand.New(rand.NewSource(dt.Seed)),
		gains:    make([]float64, dt.NFeatures),
	}
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	b.build(idx, 0)

	dt.Importances = normalize(b.gains)
	return nil
}

// build appends the subtree for idx and returns its root position.
func (b *treeBuilder) build(idx []int, depth int) int {
	dt := b.tree
	counts := b.classCounts(idx)
	node := TreeNode{
		FeatureIdx:   -1,
		LeftChild:    -1,
		RightChild:   -1,
		ClassLabel:   argmax(counts),
		IsLeaf:       true,
		Distribution: distribution(counts, len(idx)),
	}
	pos := len(dt.Nodes)
	dt.Nodes = append(dt.Nodes, node)

	impurity := giniCounts(counts, len(idx))
	if depth >= dt.MaxDepth || len(idx) < dt.MinSamplesSplit || impurity == 0 {
		return pos
	}

	feature, threshold, childImpurity, ok := b.bestSplit(idx)
	if !ok {
		return pos
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if b.features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	b.gains[feature] += float64(len(idx))*impurity - childImpurity

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	n := &dt.Nodes[pos]
	n.IsLeaf = false
	n.FeatureIdx = feature
	n.Threshold = threshold
	n.LeftChild = l
	n.RightChild = r
	return pos
}

// bestSplit scans midpoints between distinct sorted values and returns the
// split with the lowest weighted child impurity (sum of n*gini over children).
func (b *treeBuilder) bestSplit(idx []int) (int, float64, float64, bool) {
	dt := b.tree
	bestFeature := -1
	bestThreshold := 0.0
	bestScore := 0.0

	sorted := append([]int(nil), idx...)
	total := b.classCounts(idx)
	left := make([]float64, dt.NClasses)
	right := make([]float64, dt.NClasses)

	for _, f := range b.candidateFeatures() {
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.features[sorted[a]][f] < b.features[sorted[c]][f]
		})
		for k := range left {
			left[k] = 0
			right[k] = total[k]
		}
		for pos := 0; pos < len(sorted)-1; pos++ {
			y := b.labels[sorted[pos]]
			left[y]++
			right[y]--

			nLeft := pos + 1
			nRight := len(sorted) - nLeft
			cur := b.features[sorted[pos]][f]
			next := b.features[sorted[pos+1]][f]
			if cur == next || nLeft < dt.MinSamplesLeaf || nRight < dt.MinSamplesLeaf {
				continue
			}
			score := float64(nLeft)*giniCounts(left, nLeft) + float64(nRight)*giniCounts(right, nRight)
			if bestFeature == -1 || score < bestScore {
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				bestScore = score
			}
		}
	}
	return bestFeature, bestThreshold, bestScore, bestFeature != -1
}

func (b *treeBuilder) candidateFeatures() []int {
	n := b.tree.NFeatures
	k := b.tree.MaxFeatures
	if k <= 0 || k >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(n)[:k]
}

func (b *treeBuilder) classCounts(idx []int) []float64 {
	counts := make([]float64, b.tree.NClasses)
	for _, i := range idx {
		counts[b.labels[i]]++
	}
	return counts
}

func (dt *DecisionTreeClassifier) Predict(features [][]float64) []int {
	out := make([]int, len(features))
	for i, row := range features {
		out[i] = dt.leaf(row).ClassLabel
	}
	return out
}

// PredictProba returns the class distribution of the leaf each row falls in.
func (dt *DecisionTreeClassifier) PredictProba(features [][]float64) [][]float64 {
	out := make([][]float64, len(features))
	for i, row := range features {
		out[i] = append([]float64(nil), dt.leaf(row).Distribution...)
	}
	return out
}

func (dt *DecisionTreeClassifier) leaf(row []float64) TreeNode {
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node
		}
		if row[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}

func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), dt.Importances...)
}

func giniCounts(counts []float64, n int) float64 {
	if n == 0 {
		return 0
	}
	impurity := 1.0
	for _, c := range counts {
		p := c / float64(n)
		impurity -= p * p
	}
	return impurity
}

func distribution(counts []float64, n int) []float64 {
	out := make([]float64, len(counts))
	if n == 0 {
		return out
	}
	for i, c := range counts {
		out[i] = c / float64(n)
	}
	return out
}

// normalize scales values to sum to 1; an all-zero vector stays zero.
func normalize(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sum := 0.0
	for _, v := range out {
		sum += v
	}
	if sum <= 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
