// Package dataset parses uploaded tabular data and prepares it for modelling.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrParse is returned when input cannot be read as a table.
	ErrParse = errors.New("dataset: parse error")
	// ErrNoData is returned for inputs without any row.
	ErrNoData = errors.New("dataset: no data")
	// ErrColumnNotFound is returned when a named column is absent.
	ErrColumnNotFound = errors.New("dataset: column not found")
	// ErrUnseenCategory is returned when a fitted encoder meets a new value.
	ErrUnseenCategory = errors.New("dataset: unseen category")
	// ErrNotNumeric is returned when a column fitted as numeric gets text.
	ErrNotNumeric = errors.New("dataset: value is not numeric")
	// ErrNotFitted is returned when Transform meets a column with no fitted state.
	ErrNotFitted = errors.New("dataset: column not fitted")
)

// Kind is the storage type of a column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Column is a named, typed sequence of values with a missing-value mask.
// Numeric columns use Numbers, categorical columns use Strings.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64
	Strings []string
	Missing []bool
}

// NewNumericColumn builds a numeric column. NaN values are treated as missing.
func NewNumericColumn(name string, values []float64) *Column {
	c := &Column{Name: name, Kind: Numeric, Numbers: values, Missing: make([]bool, len(values))}
	for i, v := range values {
		c.Missing[i] = math.IsNaN(v)
	}
	return c
}

// NewCategoricalColumn builds a categorical column; missing may be nil.
func NewCategoricalColumn(name string, values []string, missing []bool) *Column {
	if missing == nil {
		missing = make([]bool, len(values))
	}
	return &Column{Name: name, Kind: Categorical, Strings: values, Missing: missing}
}

func (c *Column) Len() int {
	return len(c.Missing)
}

func (c *Column) IsMissing(i int) bool {
	return c.Missing[i]
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, m := range c.Missing {
		if m {
			n++
		}
	}
	return n
}

// Text renders cell i the way it appears in a CSV file. Missing cells render as "".
func (c *Column) Text(i int) string {
	if c.Missing[i] {
		return ""
	}
	if c.Kind == Numeric {
		return FormatNumber(c.Numbers[i])
	}
	return c.Strings[i]
}

// Value returns cell i as nil, float64 or string.
func (c *Column) Value(i int) any {
	if c.Missing[i] {
		return nil
	}
	if c.Kind == Numeric {
		return c.Numbers[i]
	}
	return c.Strings[i]
}

// Present returns the non-missing numeric values of the column.
func (c *Column) Present() []float64 {
	if c.Kind != Numeric {
		return nil
	}
	out := make([]float64, 0, len(c.Numbers))
	for i, v := range c.Numbers {
		if !c.Missing[i] {
			out = append(out, v)
		}
	}
	return out
}

// DType mirrors the dtype names users know from dataframe libraries.
func (c *Column) DType() string {
	if c.Kind == Categorical {
		return "object"
	}
	for i, v := range c.Numbers {
		if c.Missing[i] || v != math.Trunc(v) || math.IsInf(v, 0) {
			return "float64"
		}
	}
	return "int64"
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind, Missing: append([]bool(nil), c.Missing...)}
	if c.Numbers != nil {
		out.Numbers = append([]float64(nil), c.Numbers...)
	}
	if c.Strings != nil {
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

// Table is an ordered collection of equally long columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable validates that columns have unique names and equal lengths.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrParse, i)
		}
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrParse, col.Name)
		}
		if i == 0 {
			t.rows = col.Len()
		} else if col.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d", ErrParse, col.Name, col.Len(), t.rows)
		}
		t.index[col.Name] = i
		t.columns = append(t.columns, col)
	}
	return t, nil
}

func (t *Table) Rows() int {
	return t.rows
}

func (t *Table) NumColumns() int {
	return len(t.columns)
}

func (t *Table) Columns() []*Column {
	return t.columns
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Names returns column names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy safe for mutation.
func (t *Table) Clone() *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.clone()
	}
	out, _ := NewTable(cols...)
	return out
}

// Drop returns a table without the named columns. Unknown names are ignored.
func (t *Table) Drop(names ...string) *Table {
	skip := make(map[string]bool, len(names))
	for _, n := range names {
		skip[n] = true
	}
	cols := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !skip[c.Name] {
			cols = append(cols, c)
		}
	}
	out, _ := NewTable(cols...)
	if len(cols) == 0 {
		out.rows = t.rows
	}
	return out
}

// NumericColumns returns the numeric columns in table order.
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Kind == Numeric {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns the categorical columns in table order.
func (t *Table) CategoricalColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Kind == Categorical {
			out = append(out, c)
		}
	}
	return out
}

// FormatNumber renders a float without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
