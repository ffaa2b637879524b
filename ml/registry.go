package ml

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind identifies one of the supported classifier algorithms.
type Kind int

const (
	RandomForest Kind = iota + 1
	DecisionTree
	KNearestNeighbors
	LogisticRegression
)

// Kinds lists every registered model kind in display order.
var Kinds = []Kind{RandomForest, DecisionTree, KNearestNeighbors, LogisticRegression}

var kindNames = map[Kind]string{
	RandomForest:       "Random Forest",
	DecisionTree:       "Decision Tree",
	KNearestNeighbors:  "K-Nearest Neighbors",
	LogisticRegression: "Logistic Regression",
}

var kindSlugs = map[Kind]string{
	RandomForest:       "random_forest",
	DecisionTree:       "decision_tree",
	KNearestNeighbors:  "knn",
	LogisticRegression: "logistic_regression",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Slug is the identifier used on the wire, e.g. "random_forest".
func (k Kind) Slug() string {
	return kindSlugs[k]
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind accepts either the slug or the display name of a kind.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	for _, k := range Kinds {
		if s == kindSlugs[k] || s == kindNames[k] {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

// ParamType tells a caller which control renders a parameter.
type ParamType string

const (
	Slider ParamType = "slider"
	Select ParamType = "select"
)

// Param describes one tunable parameter of a model kind.
type Param struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Step    float64   `json:"step,omitempty"`
	Options []string  `json:"options,omitempty"`
	Default any       `json:"default"`
}

func (p Param) integral() bool {
	return p.Type == Slider && p.Step == math.Trunc(p.Step) && p.Min == math.Trunc(p.Min)
}

var schemas = map[Kind][]Param{
	RandomForest: {
		{Name: "n_estimators", Type: Slider, Min: 10, Max: 200, Default: 100.0, Step: 10},
		{Name: "max_depth", Type: Slider, Min: 2, Max: 50, Default: 10.0, Step: 1},
		{Name: "min_samples_split", Type: Slider, Min: 2, Max: 20, Default: 2.0, Step: 1},
	},
	DecisionTree: {
		{Name: "max_depth", Type: Slider, Min: 2, Max: 50, Default: 10.0, Step: 1},
		{Name: "min_samples_split", Type: Slider, Min: 2, Max: 20, Default: 2.0, Step: 1},
		{Name: "min_samples_leaf", Type: Slider, Min: 1, Max: 20, Default: 1.0, Step: 1},
	},
	KNearestNeighbors: {
		{Name: "n_neighbors", Type: Slider, Min: 1, Max: 30, Default: 5.0, Step: 1},
		{Name: "weights", Type: Select, Options: []string{"uniform", "distance"}, Default: "uniform"},
		{Name: "metric", Type: Select, Options: []string{"euclidean", "manhattan", "minkowski"}, Default: "euclidean"},
	},
	LogisticRegression: {
		{Name: "C", Type: Slider, Min: 0.1, Max: 10.0, Default: 1.0, Step: 0.1},
		{Name: "max_iter", Type: Slider, Min: 100, Max: 1000, Default: 100.0, Step: 100},
	},
}

// Schema returns the tunable parameters of the kind.
func (k Kind) Schema() []Param {
	return append([]Param(nil), schemas[k]...)
}

// Params holds parameter overrides: float64 for sliders, string for selects.
type Params map[string]any

// Defaults returns the schema defaults of the kind.
func (k Kind) Defaults() Params {
	out := make(Params, len(schemas[k]))
	for _, p := range schemas[k] {
		out[p.Name] = p.Default
	}
	return out
}

// Resolve merges overrides onto the defaults and validates them against the schema.
func (k Kind) Resolve(overrides Params) (Params, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnknownModel, k)
	}
	resolved := k.Defaults()
	byName := make(map[string]Param, len(schemas[k]))
	for _, p := range schemas[k] {
		byName[p.Name] = p
	}

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		param, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no parameter %q", ErrInvalidInput, k, name)
		}
		value, err := param.check(overrides[name])
		if err != nil {
			return nil, err
		}
		resolved[name] = value
	}
	return resolved, nil
}

func (p Param) check(value any) (any, error) {
	switch p.Type {
	case Select:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidInput, p.Name)
		}
		for _, opt := range p.Options {
			if opt == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: %s must be one of %v", ErrInvalidInput, p.Name, p.Options)
	default:
		f, ok := toFloat(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a number", ErrInvalidInput, p.Name)
		}
		if f < p.Min || f > p.Max {
			return nil, fmt.Errorf("%w: %s must be within [%v, %v]", ErrInvalidInput, p.Name, p.Min, p.Max)
		}
		if p.integral() && f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: %s must be an integer", ErrInvalidInput, p.Name)
		}
		return f, nil
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Int reads a resolved numeric parameter.
func (p Params) Int(name string) int {
	f, _ := toFloat(p[name])
	return int(f)
}

// Float reads a resolved numeric parameter.
func (p Params) Float(name string) float64 {
	f, _ := toFloat(p[name])
	return f
}

// Choice reads a resolved select parameter.
func (p Params) Choice(name string) string {
	s, _ := p[name].(string)
	return s
}
