package http

import (
	"errors"
	"fmt"
	"net/http"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"datalab/chart"
	"datalab/dataset"
	"datalab/db"
	"datalab/ml"
	"datalab/monitoring"
	"datalab/pipeline"
	"datalab/session"
)

// SessionHeader selects the session a request works on.
const SessionHeader = "X-Session-ID"

var errBadRequest = errors.New("bad request")

// API 持有处理器依赖
type API struct {
	sessions  *session.Store
	runs      *db.Store
	hub       *monitoring.Hub
	metrics   *monitoring.Metrics
	renderer  chart.Renderer
	quality   *pipeline.QualityChecker
	modelPath string
	testSize  float64
	logger    *zap.Logger
}

// Options configures NewAPI. Runs, Hub and Metrics may be nil.
type Options struct {
	Sessions  *session.Store
	Runs      *db.Store
	Hub       *monitoring.Hub
	Metrics   *monitoring.Metrics
	Renderer  chart.Renderer
	ModelPath string
	TestSize  float64
	Logger    *zap.Logger
}

func NewAPI(opts Options) *API {
	a := &API{
		sessions:  opts.Sessions,
		runs:      opts.Runs,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		renderer:  opts.Renderer,
		quality:   pipeline.NewQualityChecker(),
		modelPath: opts.ModelPath,
		testSize:  opts.TestSize,
		logger:    opts.Logger,
	}
	if a.renderer == nil {
		a.renderer = chart.HTMLRenderer{}
	}
	if a.testSize <= 0 || a.testSize >= 1 {
		a.testSize = 0.2
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Register 注册所有路由
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", a.handleHealth)
	mux.HandleFunc("GET /api/models", a.handleModels)
	mux.HandleFunc("POST /api/session", a.handleNewSession)

	mux.HandleFunc("POST /api/upload", a.handleUpload)
	mux.HandleFunc("POST /api/analyze", a.handleAnalyze)
	mux.HandleFunc("POST /api/visualize", a.handleVisualize)

	mux.HandleFunc("POST /api/train", a.handleTrain)
	mux.HandleFunc("POST /api/predict", a.handlePredict)
	mux.HandleFunc("POST /api/model/save", a.handleSaveModel)
	mux.HandleFunc("POST /api/model/load", a.handleLoadModel)
	mux.HandleFunc("GET /api/runs", a.handleRuns)

	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}
	if a.hub != nil {
		mux.Handle("GET /api/ws/events", a.hub)
	}
}

func (a *API) session(r *http.Request) *session.Session {
	sess := a.sessions.Get(r.Header.Get(SessionHeader))
	if a.metrics != nil {
		a.metrics.SetSessions(a.sessions.Len())
	}
	return sess
}

func (a *API) publish(eventType monitoring.EventType, sessionID string, data any) {
	if a.hub != nil {
		a.hub.Publish(eventType, sessionID, data)
	}
}

// ReloadDefault loads the bundle at path into the default session.
func (a *API) ReloadDefault(path string) error {
	sess := a.sessions.Get(session.DefaultID)
	sess.Lock()
	err := sess.Load(path)
	sess.Unlock()
	if err != nil {
		return err
	}
	a.publish(monitoring.ModelLoaded, sess.ID, map[string]string{"path": path})
	return nil
}

// dataRequest is the common body of analyze and visualize.
type dataRequest struct {
	Data []dataset.Record `json:"data"`
}

func (d dataRequest) table() (*dataset.Table, error) {
	if len(d.Data) == 0 {
		return nil, fmt.Errorf("%w: data is required", errBadRequest)
	}
	return dataset.FromRecords(d.Data)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// statusFor maps caller mistakes to 400 and everything else to 500.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, ml.ErrInvalidInput),
		errors.Is(err, ml.ErrUnknownModel),
		errors.Is(err, ml.ErrSchemaMismatch),
		errors.Is(err, dataset.ErrNoData),
		errors.Is(err, dataset.ErrColumnNotFound),
		errors.Is(err, dataset.ErrUnseenCategory),
		errors.Is(err, dataset.ErrNotNumeric),
		errors.Is(err, dataset.ErrNotFitted),
		errors.Is(err, chart.ErrColumnNotFound):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorStatus(w, statusFor(err), err)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
