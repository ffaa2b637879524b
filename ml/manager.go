package ml

import (
	"fmt"
	"sort"
	"sync"
)

const DefaultSeed int64 = 42

// FeatureImportance pairs a feature name with its normalized importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Manager owns one train/test split and one trained model slot.
// It is safe for concurrent use.
type Manager struct {
	mu   sync.Mutex
	seed int64

	split *Split

	kind     Kind
	params   Params
	model    Classifier
	features []string
	classes  []string
}

type Option func(*Manager)

// WithSeed fixes the seed used for the split and for seeded models.
func WithSeed(seed int64) Option {
	return func(m *Manager) { m.seed = seed }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{seed: DefaultSeed}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) Seed() int64 {
	return m.seed
}

// PrepareData splits x and y and keeps the split for Train and Evaluate.
func (m *Manager) PrepareData(x Matrix, y []string, testSize float64) (*Split, error) {
	split, err := splitDataset(x, y, testSize, m.seed)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.split = split
	m.mu.Unlock()
	return split, nil
}

// Train fits a new model of the given kind on the training partition and
// replaces the held model only when fitting succeeds.
func (m *Manager) Train(kind Kind, overrides Params) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !kind.Valid() {
		return fmt.Errorf("%w: %v", ErrUnknownModel, kind)
	}
	if m.split == nil {
		return ErrNotPrepared
	}
	params, err := kind.Resolve(overrides)
	if err != nil {
		return err
	}
	model, err := newClassifier(kind, params, m.seed)
	if err != nil {
		return err
	}

	classes := SortLabels(m.split.TrainY)
	index := labelIndex(classes)
	y := make([]int, len(m.split.TrainY))
	for i, label := range m.split.TrainY {
		y[i] = index[label]
	}
	if err := model.Fit(m.split.TrainX.Rows, y, len(classes)); err != nil {
		return fmt.Errorf("fit %s: %w", kind, err)
	}

	m.kind = kind
	m.params = params
	m.model = model
	m.features = append([]string(nil), m.split.TrainX.Columns...)
	m.classes = classes
	return nil
}

// Evaluate scores the held model on both partitions of the current split.
func (m *Manager) Evaluate() (*Metrics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.model == nil {
		return nil, ErrNotTrained
	}
	if m.split == nil {
		return nil, ErrNotPrepared
	}
	testX, err := m.align(m.split.TestX)
	if err != nil {
		return nil, err
	}
	trainX, err := m.align(m.split.TrainX)
	if err != nil {
		return nil, err
	}

	metrics := Score(m.split.TestY, m.decode(m.model.Predict(testX)))
	metrics.TrainAccuracy = Accuracy(m.split.TrainY, m.decode(m.model.Predict(trainX)))
	return &metrics, nil
}

// Predict returns one label per row of x, in row order.
func (m *Manager) Predict(x Matrix) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.model == nil {
		return nil, ErrNotTrained
	}
	rows, err := m.align(x)
	if err != nil {
		return nil, err
	}
	return m.decode(m.model.Predict(rows)), nil
}

// FeatureImportance returns importances sorted descending, or nil for models
// that do not expose them.
func (m *Manager) FeatureImportance() ([]FeatureImportance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.model == nil {
		return nil, ErrNotTrained
	}
	provider, ok := m.model.(importanceProvider)
	if !ok {
		return nil, nil
	}
	values := provider.FeatureImportances()
	out := make([]FeatureImportance, len(values))
	for i, v := range values {
		name := fmt.Sprintf("Feature %d", i)
		if i < len(m.features) {
			name = m.features[i]
		}
		out[i] = FeatureImportance{Feature: name, Importance: v}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Importance > out[j].Importance
	})
	return out, nil
}

// Kind reports the kind of the held model.
func (m *Manager) Kind() (Kind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kind, m.model != nil
}

func (m *Manager) Features() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.features...)
}

func (m *Manager) Classes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.classes...)
}

func (m *Manager) Params() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(Params, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

// align reorders the columns of x to the trained feature order. Extra
// columns are ignored; unnamed input must match the trained width.
func (m *Manager) align(x Matrix) ([][]float64, error) {
	if len(m.features) == 0 || len(x.Columns) == 0 {
		width := len(m.features)
		if width == 0 {
			width = m.width()
		}
		for _, row := range x.Rows {
			if len(row) != width {
				return nil, fmt.Errorf("%w: expected %d features, got %d", ErrSchemaMismatch, width, len(row))
			}
		}
		return x.Rows, nil
	}

	position := make(map[string]int, len(x.Columns))
	for i, name := range x.Columns {
		position[name] = i
	}
	order := make([]int, len(m.features))
	for i, name := range m.features {
		p, ok := position[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrSchemaMismatch, name)
		}
		order[i] = p
	}
	out := make([][]float64, len(x.Rows))
	for r, row := range x.Rows {
		aligned := make([]float64, len(order))
		for i, p := range order {
			aligned[i] = row[p]
		}
		out[r] = aligned
	}
	return out, nil
}

// width is the feature count of the held model when no names were recorded.
func (m *Manager) width() int {
	switch model := m.model.(type) {
	case *DecisionTreeClassifier:
		return model.NFeatures
	case *RandomForestClassifier:
		if len(model.Trees) > 0 {
			return model.Trees[0].NFeatures
		}
	case *KNNClassifier:
		if len(model.X) > 0 {
			return len(model.X[0])
		}
	case *LogisticRegressionClassifier:
		return model.NFeatures
	}
	return 0
}

func (m *Manager) decode(predicted []int) []string {
	out := make([]string, len(predicted))
	for i, p := range predicted {
		out[i] = m.classes[p]
	}
	return out
}
