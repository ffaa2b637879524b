// Package chart builds Plotly-compatible figures from tables and model results.
package chart

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	json "github.com/json-iterator/go"

	"datalab/dataset"
)

var (
	ErrColumnNotFound   = errors.New("chart: column not found")
	ErrColumnType       = errors.New("chart: column has the wrong type")
	ErrInsufficientData = errors.New("chart: not enough data")
)

const defaultHeight = 500

// Trace is one Plotly trace object.
type Trace map[string]any

// Figure is a Plotly figure: traces plus layout.
type Figure struct {
	Data   []Trace        `json:"data"`
	Layout map[string]any `json:"layout"`
}

// JSON serializes the figure. HTML-sensitive characters are escaped so the
// output can be embedded in a script tag.
func (f *Figure) JSON() ([]byte, error) {
	return json.Marshal(f)
}

// Height returns the layout height in pixels.
func (f *Figure) Height() int {
	if h, ok := f.Layout["height"].(int); ok {
		return h
	}
	return defaultHeight
}

func newFigure(title string, height int, traces ...Trace) *Figure {
	return &Figure{
		Data: traces,
		Layout: map[string]any{
			"title":         map[string]any{"text": title},
			"height":        height,
			"paper_bgcolor": "white",
			"plot_bgcolor":  "white",
		},
	}
}

func axisTitle(text string) map[string]any {
	return map[string]any{"title": map[string]any{"text": text}}
}

func column(t *dataset.Table, name string) (*dataset.Column, error) {
	col, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return col, nil
}

type valueCount struct {
	Value string
	Count int
}

// valueCounts counts non-missing values, most frequent first, ties in order of
// first appearance.
func valueCounts(col *dataset.Column) []valueCount {
	index := make(map[string]int)
	var out []valueCount
	for i := 0; i < col.Len(); i++ {
		if col.IsMissing(i) {
			continue
		}
		v := col.Text(i)
		if pos, ok := index[v]; ok {
			out[pos].Count++
			continue
		}
		index[v] = len(out)
		out = append(out, valueCount{Value: v, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func headCounts(counts []valueCount, n int) ([]string, []int) {
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	values := make([]string, len(counts))
	freq := make([]int, len(counts))
	for i, c := range counts {
		values[i] = c.Value
		freq[i] = c.Count
	}
	return values, freq
}

// sortKeys orders group keys numerically when all parse as numbers.
func sortKeys(keys []string) {
	numeric := true
	for _, k := range keys {
		if _, err := strconv.ParseFloat(k, 64); err != nil {
			numeric = false
			break
		}
	}
	if !numeric {
		sort.Strings(keys)
		return
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, _ := strconv.ParseFloat(keys[i], 64)
		b, _ := strconv.ParseFloat(keys[j], 64)
		return a < b
	})
}
