package http

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"datalab/chart"
	"datalab/dataset"
	"datalab/pipeline"
)

type uploadResponse struct {
	Data    []dataset.Record `json:"data"`
	Columns []string         `json:"columns"`
	Shape   [2]int           `json:"shape"`
	Info    dataset.Info     `json:"info"`
}

// handleUpload 解析上传的 CSV 文件
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			writeErrorStatus(w, http.StatusBadRequest, errors.New("no file uploaded"))
			return
		}
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	defer file.Close()
	if header.Filename == "" || header.Size == 0 {
		writeErrorStatus(w, http.StatusBadRequest, errors.New("empty file"))
		return
	}

	table, err := dataset.Load(file)
	if err != nil {
		a.logger.Warn("upload parse failed", zap.String("file", header.Filename), zap.Error(err))
		writeErrorStatus(w, http.StatusInternalServerError, err)
		return
	}
	a.logger.Info("dataset uploaded",
		zap.String("file", header.Filename),
		zap.Int("rows", table.Rows()),
		zap.Int("columns", table.NumColumns()))

	respondJSON(w, http.StatusOK, uploadResponse{
		Data:    table.Records(),
		Columns: table.Names(),
		Shape:   [2]int{table.Rows(), table.NumColumns()},
		Info:    dataset.Describe(table),
	})
}

type analyzeResponse struct {
	dataset.Summary
	QualityIssues []pipeline.QualityIssue `json:"quality_issues"`
}

// handleAnalyze 返回数值列统计和数据质量问题
func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	table, err := req.table()
	if err != nil {
		writeError(w, err)
		return
	}
	issues := a.quality.Check(table)
	if issues == nil {
		issues = []pipeline.QualityIssue{}
	}
	respondJSON(w, http.StatusOK, analyzeResponse{
		Summary:       dataset.Summarize(table),
		QualityIssues: issues,
	})
}

// handleVisualize 按列类型生成默认图表
func (a *API) handleVisualize(w http.ResponseWriter, r *http.Request) {
	var req dataRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	table, err := req.table()
	if err != nil {
		writeError(w, err)
		return
	}

	charts := make(map[string]string)
	add := func(name string, fig *chart.Figure, err error) error {
		if err != nil {
			return err
		}
		if fig == nil {
			return nil
		}
		html, err := a.renderer.Render(fig)
		if err != nil {
			return err
		}
		charts[name] = html
		return nil
	}

	numeric := table.NumericColumns()
	categorical := table.CategoricalColumns()
	if len(numeric) > 0 {
		fig, err := chart.Distribution(table, numeric[0].Name, chart.Histogram)
		if err := add("distribution", fig, err); err != nil {
			writeError(w, err)
			return
		}
	}
	if len(numeric) > 1 {
		fig, err := chart.CorrelationHeatmap(table)
		if err := add("correlation", fig, err); err != nil {
			writeError(w, err)
			return
		}
	}
	if len(categorical) > 0 {
		fig, err := chart.Pie(table, categorical[0].Name, 8)
		if err := add("pie", fig, err); err != nil {
			writeError(w, err)
			return
		}
	}
	for _, name := range []string{"Country", "country"} {
		if _, ok := table.Column(name); !ok {
			continue
		}
		fig, err := chart.GeoMap(table, name, "", chart.Choropleth)
		if err := add("geographic", fig, err); err != nil {
			a.logger.Debug("geographic chart skipped", zap.Error(err))
		}
		break
	}

	respondJSON(w, http.StatusOK, charts)
}
