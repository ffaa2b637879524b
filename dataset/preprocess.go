package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	// MissingLabel replaces missing target values.
	MissingLabel = "Missing"
	// missingCategory is how a missing categorical cell is encoded.
	missingCategory = "nan"
)

// LabelEncoder maps categories to consecutive codes in sorted order.
type LabelEncoder struct {
	Classes []string
	index   map[string]int
}

// NewLabelEncoder fits an encoder on values.
func NewLabelEncoder(values []string) *LabelEncoder {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	classes := make([]string, 0, len(set))
	for v := range set {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return restoreEncoder(classes)
}

func restoreEncoder(classes []string) *LabelEncoder {
	enc := &LabelEncoder{Classes: classes, index: make(map[string]int, len(classes))}
	for i, c := range classes {
		enc.index[c] = i
	}
	return enc
}

// Encode returns the code of value.
func (e *LabelEncoder) Encode(value string) (int, bool) {
	code, ok := e.index[value]
	return code, ok
}

// Features is a numeric feature matrix with its column names and, when a
// target column was requested, the matching labels.
type Features struct {
	Columns []string
	Rows    [][]float64
	Target  []string
}

// State is the fitted preprocessing state, suitable for persisting.
type State struct {
	Encoders map[string][]string
	Means    map[string]float64
}

// Preprocessor label-encodes categorical columns and mean-imputes numeric
// ones. Preprocess fits encoders and means for columns it has not seen yet
// and reuses the rest. Transform only applies what was fitted.
type Preprocessor struct {
	mu       sync.Mutex
	encoders map[string]*LabelEncoder
	means    map[string]float64
}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		encoders: make(map[string]*LabelEncoder),
		means:    make(map[string]float64),
	}
}

// Preprocess splits off the target column (when target is not empty) and
// encodes every remaining column.
func (p *Preprocessor) Preprocess(t *Table, target string) (*Features, error) {
	x := t
	var labels []string
	if target != "" {
		col, ok := t.Column(target)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, target)
		}
		labels = Labels(col)
		x = t.Drop(target)
	}
	features, err := p.encode(x, x.Names(), true)
	if err != nil {
		return nil, err
	}
	features.Target = labels
	return features, nil
}

// Transform encodes only the named columns, in the given order. Every column
// must exist in t and must have been fitted by Preprocess. A numeric column
// keeps its numeric treatment even when the new data holds its values as text.
func (p *Preprocessor) Transform(t *Table, columns []string) (*Features, error) {
	for _, name := range columns {
		if _, ok := t.Column(name); !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
		}
	}
	return p.encode(t, columns, false)
}

func (p *Preprocessor) encode(t *Table, columns []string, fit bool) (*Features, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := t.Rows()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(columns))
	}
	for j, name := range columns {
		col, _ := t.Column(name)
		values, err := p.encodeColumn(col, fit)
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			rows[i][j] = v
		}
	}
	return &Features{Columns: append([]string(nil), columns...), Rows: rows}, nil
}

func (p *Preprocessor) encodeColumn(col *Column, fit bool) ([]float64, error) {
	enc, fittedAsCategory := p.encoders[col.Name]
	mean, fittedAsNumber := p.means[col.Name]
	switch {
	case fittedAsCategory:
		return encodeCategories(col, enc)
	case fittedAsNumber:
		return imputeNumbers(col, mean)
	case !fit:
		return nil, fmt.Errorf("%w: %q", ErrNotFitted, col.Name)
	case col.Kind == Numeric:
		mean = columnMean(col)
		p.means[col.Name] = mean
		return imputeNumbers(col, mean)
	}
	enc = NewLabelEncoder(categoryTexts(col))
	p.encoders[col.Name] = enc
	return encodeCategories(col, enc)
}

func categoryTexts(col *Column) []string {
	texts := make([]string, col.Len())
	for i := range texts {
		if col.Missing[i] {
			texts[i] = missingCategory
		} else {
			texts[i] = col.Text(i)
		}
	}
	return texts
}

func encodeCategories(col *Column, enc *LabelEncoder) ([]float64, error) {
	out := make([]float64, col.Len())
	for i, text := range categoryTexts(col) {
		code, ok := enc.Encode(text)
		if !ok {
			return nil, fmt.Errorf("%w: column %q value %q", ErrUnseenCategory, col.Name, text)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// imputeNumbers fills missing cells with mean. Text cells are parsed, which
// covers prediction records that carry numbers as JSON strings.
func imputeNumbers(col *Column, mean float64) ([]float64, error) {
	out := make([]float64, col.Len())
	for i := range out {
		switch {
		case col.Missing[i]:
			out[i] = mean
		case col.Kind == Numeric:
			out[i] = col.Numbers[i]
		case missingMarkers[strings.TrimSpace(col.Strings[i])]:
			out[i] = mean
		default:
			v, err := strconv.ParseFloat(strings.TrimSpace(col.Strings[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: column %q value %q", ErrNotNumeric, col.Name, col.Strings[i])
			}
			out[i] = v
		}
	}
	return out, nil
}

// Encoder returns the fitted encoder of a column.
func (p *Preprocessor) Encoder(column string) (*LabelEncoder, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	enc, ok := p.encoders[column]
	return enc, ok
}

// State exports the fitted encoders and means.
func (p *Preprocessor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := State{
		Encoders: make(map[string][]string, len(p.encoders)),
		Means:    make(map[string]float64, len(p.means)),
	}
	for name, enc := range p.encoders {
		state.Encoders[name] = append([]string(nil), enc.Classes...)
	}
	for name, mean := range p.means {
		state.Means[name] = mean
	}
	return state
}

// RestorePreprocessor rebuilds a preprocessor from exported state.
func RestorePreprocessor(state State) *Preprocessor {
	p := NewPreprocessor()
	for name, classes := range state.Encoders {
		p.encoders[name] = restoreEncoder(append([]string(nil), classes...))
	}
	for name, mean := range state.Means {
		p.means[name] = mean
	}
	return p
}

// Labels renders a column as class labels; missing cells become MissingLabel.
func Labels(col *Column) []string {
	labels := make([]string, col.Len())
	for i := range labels {
		if col.Missing[i] {
			labels[i] = MissingLabel
		} else {
			labels[i] = col.Text(i)
		}
	}
	return labels
}

func columnMean(col *Column) float64 {
	var sum float64
	var n int
	for i, v := range col.Numbers {
		if !col.Missing[i] {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
