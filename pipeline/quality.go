package pipeline

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"gonum.org/v1/gonum/stat"

	"datalab/dataset"
)

// QualityRule 数据质量规则
type QualityRule interface {
	Check(*dataset.Table) []QualityIssue
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type     string `json:"type"`
	Severity string `json:"severity"` // low, medium, high
	Message  string `json:"message"`
	Column   string `json:"column,omitempty"`
}

// QualityChecker runs every rule over a table and keeps per-rule counts.
type QualityChecker struct {
	rules []QualityRule

	stats     map[string]int64
	statsLock sync.RWMutex
}

// NewQualityChecker 创建数据质量检查器
func NewQualityChecker() *QualityChecker {
	checker := &QualityChecker{stats: make(map[string]int64)}

	// 添加默认规则
	checker.AddRule(NewMissingValueRule())
	checker.AddRule(NewConstantColumnRule())
	checker.AddRule(NewDuplicateRowRule())
	checker.AddRule(NewHighCardinalityRule())
	checker.AddRule(NewOutlierDetectionRule())
	return checker
}

func (qc *QualityChecker) AddRule(rule QualityRule) {
	qc.rules = append(qc.rules, rule)
}

// Check 检查数据质量
func (qc *QualityChecker) Check(t *dataset.Table) []QualityIssue {
	issues := make([]QualityIssue, 0)
	for _, rule := range qc.rules {
		found := rule.Check(t)
		if len(found) == 0 {
			continue
		}
		qc.statsLock.Lock()
		qc.stats[rule.Name()] += int64(len(found))
		qc.statsLock.Unlock()
		issues = append(issues, found...)
	}
	return issues
}

// Stats returns how many issues each rule has reported so far.
func (qc *QualityChecker) Stats() map[string]int64 {
	qc.statsLock.RLock()
	defer qc.statsLock.RUnlock()

	out := make(map[string]int64, len(qc.stats))
	for k, v := range qc.stats {
		out[k] = v
	}
	return out
}

// MissingValueRule 缺失值规则
type MissingValueRule struct {
	Threshold float64
}

func NewMissingValueRule() *MissingValueRule {
	return &MissingValueRule{Threshold: 0.5}
}

func (r *MissingValueRule) Name() string {
	return "missing_values"
}

func (r *MissingValueRule) Check(t *dataset.Table) []QualityIssue {
	if t.Rows() == 0 {
		return nil
	}
	var issues []QualityIssue
	for _, col := range t.Columns() {
		ratio := float64(col.MissingCount()) / float64(t.Rows())
		if ratio <= r.Threshold {
			continue
		}
		severity := "medium"
		if ratio == 1 {
			severity = "high"
		}
		issues = append(issues, QualityIssue{
			Type:     r.Name(),
			Severity: severity,
			Message:  fmt.Sprintf("%.0f%% of values are missing", ratio*100),
			Column:   col.Name,
		})
	}
	return issues
}

// ConstantColumnRule 常量列规则
type ConstantColumnRule struct{}

func NewConstantColumnRule() *ConstantColumnRule {
	return &ConstantColumnRule{}
}

func (r *ConstantColumnRule) Name() string {
	return "constant_column"
}

func (r *ConstantColumnRule) Check(t *dataset.Table) []QualityIssue {
	var issues []QualityIssue
	for _, col := range t.Columns() {
		distinct := make(map[string]struct{})
		for i := 0; i < col.Len(); i++ {
			if !col.IsMissing(i) {
				distinct[col.Text(i)] = struct{}{}
			}
		}
		if len(distinct) == 1 {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: "low",
				Message:  "column has a single distinct value",
				Column:   col.Name,
			})
		}
	}
	return issues
}

// DuplicateRowRule 重复行规则
type DuplicateRowRule struct{}

func NewDuplicateRowRule() *DuplicateRowRule {
	return &DuplicateRowRule{}
}

func (r *DuplicateRowRule) Name() string {
	return "duplicate_rows"
}

func (r *DuplicateRowRule) Check(t *dataset.Table) []QualityIssue {
	seen := make(map[string]struct{}, t.Rows())
	duplicates := 0
	cols := t.Columns()
	var key strings.Builder
	for i := 0; i < t.Rows(); i++ {
		key.Reset()
		for _, col := range cols {
			if col.IsMissing(i) {
				key.WriteString("\x00")
			} else {
				key.WriteString(col.Text(i))
			}
			key.WriteString("\x1f")
		}
		if _, exists := seen[key.String()]; exists {
			duplicates++
			continue
		}
		seen[key.String()] = struct{}{}
	}
	if duplicates == 0 {
		return nil
	}
	return []QualityIssue{{
		Type:     r.Name(),
		Severity: "low",
		Message:  fmt.Sprintf("%d duplicate rows", duplicates),
	}}
}

// HighCardinalityRule flags categorical columns that look like identifiers;
// label-encoding them gives the models nothing to learn from.
type HighCardinalityRule struct {
	MinRows    int
	UniqueRate float64
}

func NewHighCardinalityRule() *HighCardinalityRule {
	return &HighCardinalityRule{MinRows: 20, UniqueRate: 0.9}
}

func (r *HighCardinalityRule) Name() string {
	return "high_cardinality"
}

func (r *HighCardinalityRule) Check(t *dataset.Table) []QualityIssue {
	if t.Rows() < r.MinRows {
		return nil
	}
	var issues []QualityIssue
	for _, col := range t.CategoricalColumns() {
		distinct := make(map[string]struct{})
		present := 0
		for i := 0; i < col.Len(); i++ {
			if !col.IsMissing(i) {
				distinct[col.Strings[i]] = struct{}{}
				present++
			}
		}
		if present == 0 {
			continue
		}
		if rate := float64(len(distinct)) / float64(present); rate >= r.UniqueRate {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: "medium",
				Message:  fmt.Sprintf("%d distinct values in %d rows", len(distinct), present),
				Column:   col.Name,
			})
		}
	}
	return issues
}

// OutlierDetectionRule 异常值检测规则
type OutlierDetectionRule struct {
	StdDevThreshold float64
}

func NewOutlierDetectionRule() *OutlierDetectionRule {
	return &OutlierDetectionRule{
		StdDevThreshold: 3.0, // 3个标准差
	}
}

func (r *OutlierDetectionRule) Name() string {
	return "outlier_detection"
}

func (r *OutlierDetectionRule) Check(t *dataset.Table) []QualityIssue {
	var issues []QualityIssue
	for _, col := range t.NumericColumns() {
		values := col.Present()
		if len(values) < 3 {
			continue
		}
		mean, std := stat.MeanStdDev(values, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		outliers := 0
		for _, v := range values {
			if math.Abs(v-mean)/std > r.StdDevThreshold {
				outliers++
			}
		}
		if outliers > 0 {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: "low",
				Message:  fmt.Sprintf("%d values beyond %.0f standard deviations", outliers, r.StdDevThreshold),
				Column:   col.Name,
			})
		}
	}
	return issues
}
