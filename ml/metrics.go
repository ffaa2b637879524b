package ml

import (
	"fmt"
	"strings"
)

// ClassReport is one row of the per-class report.
type ClassReport struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Metrics is the evaluation of a trained model on its split.
// Precision, Recall and F1 are support-weighted; a zero denominator yields 0.
type Metrics struct {
	Accuracy        float64       `json:"accuracy"`
	Precision       float64       `json:"precision"`
	Recall          float64       `json:"recall"`
	F1              float64       `json:"f1_score"`
	TrainAccuracy   float64       `json:"train_accuracy"`
	ConfusionMatrix [][]int       `json:"confusion_matrix"`
	Labels          []string      `json:"labels"`
	Classes         []ClassReport `json:"classes"`
	Report          string        `json:"classification_report"`
}

// Accuracy is the fraction of positions where truth and prediction agree.
func Accuracy(truth, predicted []string) float64 {
	if len(truth) == 0 {
		return 0
	}
	hits := 0
	for i := range truth {
		if truth[i] == predicted[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(truth))
}

// ConfusionMatrix counts (truth, predicted) pairs over the sorted union of labels.
// Rows are true labels, columns predicted labels.
func ConfusionMatrix(truth, predicted []string) ([][]int, []string) {
	labels := SortLabels(truth, predicted)
	idx := labelIndex(labels)
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range truth {
		cm[idx[truth[i]]][idx[predicted[i]]]++
	}
	return cm, labels
}

// Score computes test metrics, the confusion matrix and the text report.
func Score(truth, predicted []string) Metrics {
	cm, labels := ConfusionMatrix(truth, predicted)
	classes := make([]ClassReport, len(labels))
	total := len(truth)

	m := Metrics{
		Accuracy:        Accuracy(truth, predicted),
		ConfusionMatrix: cm,
		Labels:          labels,
	}
	for i, label := range labels {
		tp := cm[i][i]
		support, predictedCount := 0, 0
		for j := range labels {
			support += cm[i][j]
			predictedCount += cm[j][i]
		}
		r := ClassReport{
			Label:     label,
			Precision: ratio(tp, predictedCount),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if r.Precision+r.Recall > 0 {
			r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
		}
		classes[i] = r

		if total > 0 {
			w := float64(support) / float64(total)
			m.Precision += w * r.Precision
			m.Recall += w * r.Recall
			m.F1 += w * r.F1
		}
	}
	m.Classes = classes
	m.Report = formatReport(classes, m.Accuracy, total)
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// formatReport lays the per-class rows out as a fixed-width table with
// accuracy, macro avg and weighted avg footer lines.
func formatReport(classes []ClassReport, accuracy float64, total int) string {
	const lastHeading = "weighted avg"
	width := len(lastHeading)
	for _, c := range classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(name string, p, r, f float64, support int) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, name, p, r, f, support)
	}
	for _, c := range classes {
		row(c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", accuracy, total)

	var macroP, macroR, macroF, weightP, weightR, weightF float64
	for _, c := range classes {
		macroP += c.Precision
		macroR += c.Recall
		macroF += c.F1
		if total > 0 {
			w := float64(c.Support) / float64(total)
			weightP += w * c.Precision
			weightR += w * c.Recall
			weightF += w * c.F1
		}
	}
	if n := float64(len(classes)); n > 0 {
		macroP, macroR, macroF = macroP/n, macroR/n, macroF/n
	}
	row("macro avg", macroP, macroR, macroF, total)
	row(lastHeading, weightP, weightR, weightF, total)
	return b.String()
}
