package monitoring

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标，导出为 Prometheus 格式
type Metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	trainings        *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	testAccuracy     *prometheus.GaugeVec
	predictions      *prometheus.CounterVec
	sessions         prometheus.Gauge

	startTime time.Time
}

// NewMetrics 创建指标并注册到独立的 registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datalab",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datalab",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		trainings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datalab",
			Name:      "trainings_total",
			Help:      "Training runs by model and outcome.",
		}, []string{"model", "outcome"}),
		trainingDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datalab",
			Name:      "training_duration_seconds",
			Help:      "Time spent fitting and evaluating a model.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"model"}),
		testAccuracy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "datalab",
			Name:      "last_test_accuracy",
			Help:      "Test accuracy of the latest successful training per model.",
		}, []string{"model"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datalab",
			Name:      "predictions_total",
			Help:      "Rows predicted by model.",
		}, []string{"model"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "datalab",
			Name:      "sessions",
			Help:      "Sessions currently held in memory.",
		}),
		startTime: time.Now(),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.trainings,
		m.trainingDuration,
		m.testAccuracy,
		m.predictions,
		m.sessions,
	)
	return m
}

// Handler 以 Prometheus 文本格式导出指标，压缩交给 HTTP 层的 Gzip 中间件
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{DisableCompression: true})
}

// ObserveRequest 记录一次HTTP请求
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveTraining 记录一次训练，只有成功时才更新准确率
func (m *Metrics) ObserveTraining(model string, d time.Duration, accuracy float64, err error) {
	if err != nil {
		m.trainings.WithLabelValues(model, "error").Inc()
		return
	}
	m.trainings.WithLabelValues(model, "ok").Inc()
	m.trainingDuration.WithLabelValues(model).Observe(d.Seconds())
	m.testAccuracy.WithLabelValues(model).Set(accuracy)
}

// AddPredictions 累加预测行数
func (m *Metrics) AddPredictions(model string, n int) {
	m.predictions.WithLabelValues(model).Add(float64(n))
}

// SetSessions 设置当前会话数
func (m *Metrics) SetSessions(n int) {
	m.sessions.Set(float64(n))
}

// Uptime 获取运行时间
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// SystemStats 获取系统统计
func (m *Metrics) SystemStats() map[string]any {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return map[string]any{
		"uptime":     m.Uptime().String(),
		"goroutines": runtime.NumGoroutine(),
		"memory": map[string]any{
			"alloc":      mem.Alloc,
			"sys":        mem.Sys,
			"heap_inuse": mem.HeapInuse,
			"gc_count":   mem.NumGC,
		},
		"num_cpu": runtime.NumCPU(),
	}
}
