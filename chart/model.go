package chart

import "fmt"

// ConfusionMatrix draws counts with true labels on rows and predicted labels
// on columns.
func ConfusionMatrix(cm [][]int, labels []string) *Figure {
	fig := newFigure("Confusion matrix", defaultHeight, Trace{
		"type":         "heatmap",
		"z":            cm,
		"x":            labels,
		"y":            labels,
		"texttemplate": "%{z}",
		"colorscale":   "Blues",
		"reversescale": true,
		"colorbar":     map[string]any{"title": map[string]any{"text": "Count"}},
	})
	fig.Layout["xaxis"] = map[string]any{"title": map[string]any{"text": "Predicted"}, "type": "category"}
	fig.Layout["yaxis"] = map[string]any{"title": map[string]any{"text": "Actual"}, "type": "category", "autorange": "reversed"}
	return fig
}

// FeatureImportance draws the topN features as horizontal bars, largest on
// top. Input is expected sorted descending. It returns nil for no features.
func FeatureImportance(features []string, importances []float64, topN int) *Figure {
	if len(features) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = 15
	}
	n := min(topN, len(features), len(importances))
	fig := newFigure(fmt.Sprintf("Top %d - Feature importance", topN), defaultHeight, Trace{
		"type":        "bar",
		"orientation": "h",
		"x":           importances[:n],
		"y":           features[:n],
	})
	fig.Layout["xaxis"] = axisTitle("Importance")
	fig.Layout["yaxis"] = map[string]any{"title": map[string]any{"text": "Feature"}, "autorange": "reversed"}
	return fig
}
