package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"datalab/chart"
	"datalab/dataset"
	"datalab/db"
	"datalab/ml"
	"datalab/monitoring"
	"datalab/session"
)

const importanceTopN = 15

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":   "ok",
		"sessions": a.sessions.Len(),
	}
	if a.metrics != nil {
		resp["uptime"] = a.metrics.Uptime().String()
		resp["system"] = a.metrics.SystemStats()
	}
	if a.hub != nil {
		resp["event_clients"] = a.hub.Clients()
	}
	respondJSON(w, http.StatusOK, resp)
}

type modelInfo struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Params []ml.Param `json:"params"`
}

// handleModels 列出支持的模型及其参数定义
func (a *API) handleModels(w http.ResponseWriter, r *http.Request) {
	models := make([]modelInfo, 0, len(ml.Kinds))
	for _, k := range ml.Kinds {
		models = append(models, modelInfo{Type: k.Slug(), Name: k.String(), Params: k.Schema()})
	}
	respondJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (a *API) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.New()
	if a.metrics != nil {
		a.metrics.SetSessions(a.sessions.Len())
	}
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

type trainRequest struct {
	Data         []dataset.Record `json:"data"`
	ModelType    string           `json:"model_type"`
	TargetColumn string           `json:"target_column"`
	TestSize     *float64         `json:"test_size"`
	Params       map[string]any   `json:"params"`
}

type trainResponse struct {
	*ml.Metrics
	ModelType             string `json:"model_type"`
	ConfusionMatrixPlot   string `json:"confusion_matrix_plot"`
	FeatureImportancePlot string `json:"feature_importance_plot,omitempty"`
	RunID                 string `json:"run_id,omitempty"`
}

// handleTrain 训练模型并返回评估结果和图表
func (a *API) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Data) == 0 || req.ModelType == "" || req.TargetColumn == "" {
		writeError(w, fmt.Errorf("%w: data, model_type and target_column are required", errBadRequest))
		return
	}
	kind, err := ml.ParseKind(req.ModelType)
	if err != nil {
		writeError(w, err)
		return
	}
	table, err := dataset.FromRecords(req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, ok := table.Column(req.TargetColumn); !ok {
		writeError(w, fmt.Errorf("%w: target %q", dataset.ErrColumnNotFound, req.TargetColumn))
		return
	}
	testSize := a.testSize
	if req.TestSize != nil {
		testSize = *req.TestSize
	}

	sess := a.session(r)
	start := time.Now()
	sess.Lock()
	result, err := sess.Train(table, session.TrainRequest{
		Kind:     kind,
		Target:   req.TargetColumn,
		TestSize: testSize,
		Params:   ml.Params(req.Params),
	})
	sess.Unlock()
	elapsed := time.Since(start)

	if a.metrics != nil {
		accuracy := 0.0
		if result != nil {
			accuracy = result.Metrics.Accuracy
		}
		a.metrics.ObserveTraining(kind.Slug(), elapsed, accuracy, err)
	}
	if err != nil {
		a.logger.Warn("training failed", zap.String("session_id", sess.ID), zap.String("model_type", kind.Slug()), zap.Error(err))
		writeError(w, err)
		return
	}

	resp := trainResponse{Metrics: result.Metrics, ModelType: kind.Slug()}
	resp.ConfusionMatrixPlot, err = a.renderer.Render(chart.ConfusionMatrix(result.Metrics.ConfusionMatrix, result.Metrics.Labels))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(result.Importance) > 0 {
		names := make([]string, len(result.Importance))
		values := make([]float64, len(result.Importance))
		for i, fi := range result.Importance {
			names[i], values[i] = fi.Feature, fi.Importance
		}
		resp.FeatureImportancePlot, err = a.renderer.Render(chart.FeatureImportance(names, values, importanceTopN))
		if err != nil {
			writeError(w, err)
			return
		}
	}

	run := &db.TrainingRun{
		SessionID:     sess.ID,
		ModelType:     kind.Slug(),
		TargetColumn:  req.TargetColumn,
		Rows:          result.Rows,
		Features:      result.Features,
		TestSize:      testSize,
		Accuracy:      result.Metrics.Accuracy,
		Precision:     result.Metrics.Precision,
		Recall:        result.Metrics.Recall,
		F1Score:       result.Metrics.F1,
		TrainAccuracy: result.Metrics.TrainAccuracy,
		Duration:      elapsed,
	}
	if a.runs != nil {
		if err := a.runs.SaveTrainingRun(r.Context(), run); err != nil {
			a.logger.Warn("record training run failed", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}

	a.logger.Info("model trained",
		zap.String("session_id", sess.ID),
		zap.String("model_type", kind.Slug()),
		zap.Float64("accuracy", result.Metrics.Accuracy),
		zap.Duration("duration", elapsed))
	a.publish(monitoring.TrainingCompleted, sess.ID, map[string]any{
		"run_id":     resp.RunID,
		"model_type": kind.Slug(),
		"accuracy":   result.Metrics.Accuracy,
		"f1_score":   result.Metrics.F1,
	})
	respondJSON(w, http.StatusOK, resp)
}

type predictRequest struct {
	Data      []dataset.Record `json:"data"`
	ModelType string           `json:"model_type"`
}

// handlePredict 使用当前会话的模型预测
func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Data) == 0 || req.ModelType == "" {
		writeError(w, fmt.Errorf("%w: data and model_type are required", errBadRequest))
		return
	}
	kind, err := ml.ParseKind(req.ModelType)
	if err != nil {
		writeError(w, err)
		return
	}
	table, err := dataset.FromRecords(req.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	sess := a.session(r)
	sess.Lock()
	trained, ok := sess.Manager.Kind()
	var labels, classes []string
	switch {
	case !ok:
		err = ml.ErrNotTrained
	case trained != kind:
		err = fmt.Errorf("%w: session holds a %s model, not %s", errBadRequest, trained.Slug(), kind.Slug())
	default:
		labels, err = sess.Predict(table)
		classes = sess.Manager.Classes()
	}
	sess.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}

	predictions := make([]any, len(labels))
	numeric := ml.NumericLabels(classes)
	for i, label := range labels {
		predictions[i] = label
		if numeric {
			if f, err := strconv.ParseFloat(label, 64); err == nil {
				predictions[i] = f
			}
		}
	}

	if a.metrics != nil {
		a.metrics.AddPredictions(kind.Slug(), len(labels))
	}
	if a.runs != nil {
		if err := a.runs.SavePredictionBatch(r.Context(), sess.ID, kind.Slug(), len(labels)); err != nil {
			a.logger.Warn("record prediction batch failed", zap.Error(err))
		}
	}
	a.publish(monitoring.PredictionMade, sess.ID, map[string]any{
		"model_type": kind.Slug(),
		"rows":       len(labels),
	})
	respondJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
}

// handleSaveModel 将会话模型写入配置的 bundle 路径
func (a *API) handleSaveModel(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Lock()
	err := sess.Save(a.modelPath)
	kind, _ := sess.Manager.Kind()
	sess.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	a.logger.Info("model saved", zap.String("session_id", sess.ID), zap.String("path", a.modelPath))
	a.publish(monitoring.ModelSaved, sess.ID, map[string]string{"path": a.modelPath, "model_type": kind.Slug()})
	respondJSON(w, http.StatusOK, map[string]string{"path": a.modelPath, "model_type": kind.Slug()})
}

// handleLoadModel 从配置的 bundle 路径恢复会话模型
func (a *API) handleLoadModel(w http.ResponseWriter, r *http.Request) {
	sess := a.session(r)
	sess.Lock()
	err := sess.Load(a.modelPath)
	kind, _ := sess.Manager.Kind()
	features := sess.Manager.Features()
	classes := sess.Manager.Classes()
	sess.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	a.publish(monitoring.ModelLoaded, sess.ID, map[string]string{"path": a.modelPath, "model_type": kind.Slug()})
	respondJSON(w, http.StatusOK, map[string]any{
		"model_type": kind.Slug(),
		"features":   features,
		"classes":    classes,
	})
}

// handleRuns 返回最近的训练记录
func (a *API) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	if a.runs == nil {
		respondJSON(w, http.StatusOK, map[string]any{"runs": []db.TrainingRun{}})
		return
	}
	runs, err := a.runs.ListTrainingRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []db.TrainingRun{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
