package chart

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"datalab/dataset"
)

// PlotType selects how a numeric distribution is drawn.
type PlotType string

const (
	Histogram PlotType = "histogram"
	Box       PlotType = "box"
	Violin    PlotType = "violin"
)

// MapMode selects the geographic chart style.
type MapMode string

const (
	Choropleth MapMode = "choropleth"
	Bubble     MapMode = "bubble"
)

// Distribution draws a numeric column as a histogram, box or violin plot. A
// categorical column is drawn as a bar of value counts regardless of plotType.
func Distribution(t *dataset.Table, name string, plotType PlotType) (*Figure, error) {
	col, err := column(t, name)
	if err != nil {
		return nil, err
	}
	if col.Kind == dataset.Categorical {
		values, freq := headCounts(valueCounts(col), 0)
		fig := newFigure("Distribution of "+name, defaultHeight, Trace{
			"type": "bar",
			"x":    values,
			"y":    freq,
		})
		fig.Layout["xaxis"] = axisTitle(name)
		fig.Layout["yaxis"] = axisTitle("Frequency")
		return fig, nil
	}

	values := col.Present()
	switch plotType {
	case Box:
		fig := newFigure("Box plot of "+name, defaultHeight, Trace{"type": "box", "y": values, "name": name})
		fig.Layout["yaxis"] = axisTitle(name)
		return fig, nil
	case Violin:
		fig := newFigure("Violin plot of "+name, defaultHeight, Trace{"type": "violin", "y": values, "name": name})
		fig.Layout["yaxis"] = axisTitle(name)
		return fig, nil
	case Histogram, "":
		fig := newFigure("Distribution of "+name, defaultHeight, Trace{"type": "histogram", "x": values, "nbinsx": 30})
		fig.Layout["xaxis"] = axisTitle(name)
		fig.Layout["yaxis"] = axisTitle("count")
		return fig, nil
	default:
		return nil, fmt.Errorf("chart: unknown plot type %q", plotType)
	}
}

// CorrelationHeatmap draws pairwise Pearson correlations of the numeric
// columns, computed over rows where both values are present.
func CorrelationHeatmap(t *dataset.Table) (*Figure, error) {
	cols := t.NumericColumns()
	if len(cols) < 2 {
		return nil, fmt.Errorf("%w: correlation needs at least two numeric columns", ErrInsufficientData)
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	z := make([][]any, len(cols))
	text := make([][]string, len(cols))
	for i := range cols {
		z[i] = make([]any, len(cols))
		text[i] = make([]string, len(cols))
		for j := range cols {
			r := pearson(cols[i], cols[j])
			if math.IsNaN(r) {
				continue
			}
			z[i][j] = r
			text[i][j] = fmt.Sprintf("%.2f", r)
		}
	}
	fig := newFigure("Correlation matrix", 600, Trace{
		"type":         "heatmap",
		"z":            z,
		"x":            names,
		"y":            names,
		"text":         text,
		"texttemplate": "%{text}",
		"colorscale":   "RdBu",
		"zmin":         -1,
		"zmax":         1,
	})
	fig.Layout["yaxis"] = map[string]any{"autorange": "reversed"}
	return fig, nil
}

func pearson(a, b *dataset.Column) float64 {
	var x, y []float64
	for i := 0; i < a.Len(); i++ {
		if a.IsMissing(i) || b.IsMissing(i) {
			continue
		}
		x = append(x, a.Numbers[i])
		y = append(y, b.Numbers[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// CategoryCounts draws the topN most frequent values of a column.
func CategoryCounts(t *dataset.Table, name string, topN int) (*Figure, error) {
	col, err := column(t, name)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 10
	}
	values, freq := headCounts(valueCounts(col), topN)
	fig := newFigure(fmt.Sprintf("Top %d - %s", topN, name), defaultHeight, Trace{
		"type":         "bar",
		"x":            values,
		"y":            freq,
		"text":         freq,
		"textposition": "outside",
	})
	fig.Layout["xaxis"] = axisTitle(name)
	fig.Layout["yaxis"] = axisTitle("Frequency")
	return fig, nil
}

// Pie draws the topN most frequent values of a column as a donut.
func Pie(t *dataset.Table, name string, topN int) (*Figure, error) {
	col, err := column(t, name)
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 8
	}
	values, freq := headCounts(valueCounts(col), topN)
	return newFigure("Distribution of "+name, defaultHeight, Trace{
		"type":   "pie",
		"labels": values,
		"values": freq,
		"hole":   0.3,
	}), nil
}

// Scatter plots y against x. A categorical color column splits the points
// into one trace per value; a numeric one colors them on a scale.
func Scatter(t *dataset.Table, xName, yName, colorName string) (*Figure, error) {
	x, err := column(t, xName)
	if err != nil {
		return nil, err
	}
	y, err := column(t, yName)
	if err != nil {
		return nil, err
	}
	var color *dataset.Column
	if colorName != "" {
		if color, err = column(t, colorName); err != nil {
			return nil, err
		}
	}

	title := yName + " vs " + xName
	marker := func(tr Trace) Trace {
		tr["type"] = "scatter"
		tr["mode"] = "markers"
		tr["opacity"] = 0.7
		return tr
	}

	var traces []Trace
	switch {
	case color == nil:
		xs, ys := pairs(x, y, nil)
		traces = append(traces, marker(Trace{"x": xs, "y": ys}))
	case color.Kind == dataset.Numeric:
		xs, ys := pairs(x, y, func(i int) bool { return !color.IsMissing(i) })
		var cs []float64
		for i := 0; i < x.Len(); i++ {
			if !x.IsMissing(i) && !y.IsMissing(i) && !color.IsMissing(i) {
				cs = append(cs, color.Numbers[i])
			}
		}
		traces = append(traces, marker(Trace{
			"x":      xs,
			"y":      ys,
			"marker": map[string]any{"color": cs, "colorscale": "Viridis", "showscale": true},
		}))
	default:
		var groups []string
		seen := make(map[string]bool)
		for i := 0; i < color.Len(); i++ {
			if g := color.Text(i); !color.IsMissing(i) && !seen[g] {
				seen[g] = true
				groups = append(groups, g)
			}
		}
		for _, g := range groups {
			xs, ys := pairs(x, y, func(i int) bool { return !color.IsMissing(i) && color.Text(i) == g })
			traces = append(traces, marker(Trace{"x": xs, "y": ys, "name": g}))
		}
	}

	fig := newFigure(title, defaultHeight, traces...)
	fig.Layout["xaxis"] = axisTitle(xName)
	fig.Layout["yaxis"] = axisTitle(yName)
	return fig, nil
}

func pairs(x, y *dataset.Column, keep func(int) bool) ([]any, []any) {
	var xs, ys []any
	for i := 0; i < x.Len(); i++ {
		if x.IsMissing(i) || y.IsMissing(i) {
			continue
		}
		if keep != nil && !keep(i) {
			continue
		}
		xs = append(xs, x.Value(i))
		ys = append(ys, y.Value(i))
	}
	return xs, ys
}

// GroupedBar draws the mean of value for every (category, group) pair, one
// bar trace per group.
func GroupedBar(t *dataset.Table, categoryName, valueName, groupName string) (*Figure, error) {
	category, err := column(t, categoryName)
	if err != nil {
		return nil, err
	}
	value, err := column(t, valueName)
	if err != nil {
		return nil, err
	}
	group, err := column(t, groupName)
	if err != nil {
		return nil, err
	}
	if value.Kind != dataset.Numeric {
		return nil, fmt.Errorf("%w: %q must be numeric", ErrColumnType, valueName)
	}

	type key struct{ category, group string }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	categorySet := make(map[string]bool)
	groupSet := make(map[string]bool)
	for i := 0; i < value.Len(); i++ {
		if category.IsMissing(i) || group.IsMissing(i) || value.IsMissing(i) {
			continue
		}
		k := key{category.Text(i), group.Text(i)}
		sums[k] += value.Numbers[i]
		counts[k]++
		categorySet[k.category] = true
		groupSet[k.group] = true
	}
	categories := keysOf(categorySet)
	groups := keysOf(groupSet)

	traces := make([]Trace, 0, len(groups))
	for _, g := range groups {
		var xs []string
		var ys []float64
		for _, c := range categories {
			k := key{c, g}
			if counts[k] == 0 {
				continue
			}
			xs = append(xs, c)
			ys = append(ys, sums[k]/float64(counts[k]))
		}
		traces = append(traces, Trace{"type": "bar", "name": g, "x": xs, "y": ys})
	}
	fig := newFigure(fmt.Sprintf("%s by %s and %s", valueName, categoryName, groupName), defaultHeight, traces...)
	fig.Layout["barmode"] = "group"
	fig.Layout["xaxis"] = axisTitle(categoryName)
	fig.Layout["yaxis"] = axisTitle(valueName)
	return fig, nil
}

func keysOf(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// MissingValues draws missing counts per column, largest first. It returns
// nil when the table has no missing cells.
func MissingValues(t *dataset.Table) *Figure {
	type entry struct {
		name  string
		count int
	}
	var entries []entry
	for _, col := range t.Columns() {
		if n := col.MissingCount(); n > 0 {
			entries = append(entries, entry{col.Name, n})
		}
	}
	if len(entries) == 0 {
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].count > entries[j].count })

	names := make([]string, len(entries))
	counts := make([]int, len(entries))
	for i, e := range entries {
		names[i] = e.name
		counts[i] = e.count
	}
	fig := newFigure("Missing values per column", defaultHeight, Trace{
		"type":         "bar",
		"x":            names,
		"y":            counts,
		"text":         counts,
		"textposition": "outside",
	})
	fig.Layout["xaxis"] = axisTitle("Column")
	fig.Layout["yaxis"] = axisTitle("Missing values")
	return fig
}

// GeoMap aggregates rows per country name. With a numeric value column the
// hover text also carries the mean value per country.
func GeoMap(t *dataset.Table, locationName, valueName string, mode MapMode) (*Figure, error) {
	location, err := column(t, locationName)
	if err != nil {
		return nil, err
	}

	var locations []string
	var counts []int
	var hover []string
	if value, ok := t.Column(valueName); ok && valueName != "" {
		if value.Kind != dataset.Numeric {
			return nil, fmt.Errorf("%w: %q must be numeric", ErrColumnType, valueName)
		}
		sums := make(map[string]float64)
		n := make(map[string]int)
		present := make(map[string]int)
		set := make(map[string]bool)
		for i := 0; i < location.Len(); i++ {
			if location.IsMissing(i) {
				continue
			}
			loc := location.Text(i)
			set[loc] = true
			n[loc]++
			if !value.IsMissing(i) {
				sums[loc] += value.Numbers[i]
				present[loc]++
			}
		}
		locations = keysOf(set)
		for _, loc := range locations {
			counts = append(counts, n[loc])
			avg := "n/a"
			if present[loc] > 0 {
				avg = fmt.Sprintf("%.2f", sums[loc]/float64(present[loc]))
			}
			hover = append(hover, fmt.Sprintf("%s<br>count: %d<br>avg %s: %s", loc, n[loc], valueName, avg))
		}
	} else {
		locations, counts = headCounts(valueCounts(location), 0)
		for i, loc := range locations {
			hover = append(hover, fmt.Sprintf("%s<br>count: %d", loc, counts[i]))
		}
	}

	title := "Geographic distribution by " + locationName
	var trace Trace
	geo := map[string]any{"showframe": false, "showcoastlines": true}
	switch mode {
	case Bubble:
		maxCount := 1
		for _, c := range counts {
			if c > maxCount {
				maxCount = c
			}
		}
		trace = Trace{
			"type":         "scattergeo",
			"locations":    locations,
			"locationmode": "country names",
			"text":         hover,
			"hoverinfo":    "text",
			"marker": map[string]any{
				"size":     counts,
				"sizemode": "area",
				"sizeref":  2.0 * float64(maxCount) / (40 * 40),
			},
		}
		geo["projection"] = map[string]any{"type": "natural earth"}
	case Choropleth, "":
		trace = Trace{
			"type":         "choropleth",
			"locations":    locations,
			"locationmode": "country names",
			"z":            counts,
			"text":         hover,
			"hoverinfo":    "text",
			"colorscale":   "Viridis",
			"colorbar":     map[string]any{"title": map[string]any{"text": "count"}},
		}
	default:
		return nil, fmt.Errorf("chart: unknown map mode %q", mode)
	}
	fig := newFigure(title, 600, trace)
	fig.Layout["geo"] = geo
	return fig, nil
}
