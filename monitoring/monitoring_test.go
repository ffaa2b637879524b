package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposition(t *testing.T) {
	m := NewMetrics()
	m.ObserveRequest("POST", "/api/train", 200, 120*time.Millisecond)
	m.ObserveTraining("knn", time.Second, 0.75, nil)
	m.ObserveTraining("knn", time.Second, 0, errors.New("boom"))
	m.AddPredictions("knn", 5)
	m.SetSessions(3)

	assert.Equal(t, 0.75, testutil.ToFloat64(m.testAccuracy.WithLabelValues("knn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.trainings.WithLabelValues("knn", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.predictions.WithLabelValues("knn")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `datalab_http_requests_total{method="POST",path="/api/train",status="200"} 1`)
	assert.Contains(t, body, "datalab_sessions 3")

	stats := m.SystemStats()
	assert.Contains(t, stats, "goroutines")
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(hub)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(TrainingCompleted, "default", map[string]any{"accuracy": 0.9})
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, TrainingCompleted, event.Type)
	assert.Equal(t, "default", event.SessionID)
	assert.JSONEq(t, `{"accuracy":0.9}`, string(event.Data))
}

func TestHubHonorsSubscriptions(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "subscribe", Topic: PredictionMade}))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	// give the read pump time to apply the subscription
	time.Sleep(50 * time.Millisecond)
	hub.Publish(TrainingCompleted, "", nil)
	hub.Publish(PredictionMade, "", map[string]int{"rows": 2})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, PredictionMade, event.Type)
}
