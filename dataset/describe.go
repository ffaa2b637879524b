package dataset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Info summarises the shape and column types of a table.
type Info struct {
	Rows        int               `json:"n_rows"`
	Columns     int               `json:"n_columns"`
	ColumnNames []string          `json:"columns"`
	DTypes      map[string]string `json:"dtypes"`
	Missing     map[string]int    `json:"missing_values"`
	MemoryMB    float64           `json:"memory_usage"`
}

// Kinds lists column names grouped by storage type.
type Kinds struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
}

// ColumnStats are descriptive statistics of one numeric column.
type ColumnStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary is the payload of a dataset analysis.
type Summary struct {
	TotalRows    int                    `json:"total_rows"`
	TotalColumns int                    `json:"total_columns"`
	NullValues   int                    `json:"null_values"`
	Statistics   map[string]ColumnStats `json:"statistics"`
}

// Describe reports shape, dtypes, missing counts and an estimate of memory use.
func Describe(t *Table) Info {
	info := Info{
		Rows:        t.Rows(),
		Columns:     t.NumColumns(),
		ColumnNames: t.Names(),
		DTypes:      make(map[string]string, t.NumColumns()),
		Missing:     make(map[string]int, t.NumColumns()),
	}
	bytes := 128.0
	for _, col := range t.Columns() {
		info.DTypes[col.Name] = col.DType()
		info.Missing[col.Name] = col.MissingCount()
		if col.Kind == Numeric {
			bytes += 8 * float64(col.Len())
			continue
		}
		for i := range col.Strings {
			// pointer plus a small string object header
			bytes += 8 + 49 + float64(len(col.Text(i)))
		}
	}
	info.MemoryMB = bytes / (1024 * 1024)
	return info
}

// ColumnKinds groups column names into numeric and categorical.
func ColumnKinds(t *Table) Kinds {
	kinds := Kinds{Numeric: []string{}, Categorical: []string{}}
	for _, col := range t.Columns() {
		if col.Kind == Numeric {
			kinds.Numeric = append(kinds.Numeric, col.Name)
		} else {
			kinds.Categorical = append(kinds.Categorical, col.Name)
		}
	}
	return kinds
}

// Summarize computes totals and per numeric column statistics. The standard
// deviation is the sample deviation and is zero below two values.
func Summarize(t *Table) Summary {
	summary := Summary{
		TotalRows:    t.Rows(),
		TotalColumns: t.NumColumns(),
		Statistics:   make(map[string]ColumnStats),
	}
	for _, col := range t.Columns() {
		summary.NullValues += col.MissingCount()
		if col.Kind != Numeric {
			continue
		}
		values := col.Present()
		if len(values) == 0 {
			continue
		}
		summary.Statistics[col.Name] = computeStats(values)
	}
	return summary
}

func computeStats(values []float64) ColumnStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	stats := ColumnStats{
		Mean:   stat.Mean(sorted, nil),
		Median: median(sorted),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
	// summation error must not push the mean outside the observed range
	stats.Mean = math.Min(math.Max(stats.Mean, stats.Min), stats.Max)
	if len(sorted) > 1 {
		stats.Std = stat.StdDev(sorted, nil)
	}
	if math.IsNaN(stats.Std) {
		stats.Std = 0
	}
	return stats
}

// median expects sorted input.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
