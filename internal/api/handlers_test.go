package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"tradebot-config/internal/auth"
	"tradebot-config/internal/configuration"
	"tradebot-config/internal/events"
	"tradebot-config/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSession struct {
	snapshots     map[string]interface{}
	report        *configuration.Report
	checkErr      error
	checkedModes  []bool
	inBacktesting bool
}

func (f *fakeSession) Keys() []string {
	return []string{"global_config", "trader"}
}

func (f *fakeSession) Startup(key string, dictOnly bool) (interface{}, error) {
	if key == "raw" && dictOnly {
		return nil, fmt.Errorf("%w: raw", configuration.ErrNoProjection)
	}
	v, ok := f.snapshots[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", configuration.ErrKeyNotFound, key)
	}
	return v, nil
}

func (f *fakeSession) Edited(key string, dictOnly bool) (interface{}, error) {
	return f.Startup(key, dictOnly)
}

func (f *fakeSession) CheckMode(inBacktesting bool) (*configuration.Report, error) {
	f.checkedModes = append(f.checkedModes, inBacktesting)
	return f.report, f.checkErr
}

func (f *fakeSession) InBacktesting() bool { return f.inBacktesting }

func newTestServer(session ConfigSession, jwt *auth.JWTManager) *Server {
	logger := logging.NewWithWriter(&bytes.Buffer{}, &logging.Config{Level: "DEBUG"})
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 0}, session, jwt, logger)
}

func do(t *testing.T, s *Server, method, path, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return w, body
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeSession{}, nil)

	w, body := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestSnapshotEndpoints(t *testing.T) {
	session := &fakeSession{snapshots: map[string]interface{}{
		"trader": map[string]interface{}{"enabled": true},
	}}
	s := newTestServer(session, nil)

	w, body := do(t, s, http.MethodGet, "/api/config", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"global_config", "trader"}, body["data"].(map[string]interface{})["keys"])

	w, body = do(t, s, http.MethodGet, "/api/config/trader/startup", "")
	assert.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "trader", data["key"])
	assert.Equal(t, map[string]interface{}{"enabled": true}, data["value"])

	w, _ = do(t, s, http.MethodGet, "/api/config/trader/edited", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/config/missing/edited", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/config/raw/startup?dict_only=true", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/config/trader/startup?dict_only=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheckEndpoint(t *testing.T) {
	session := &fakeSession{
		report:        &configuration.Report{ShouldReplaceConfig: true, Saved: true},
		inBacktesting: true,
	}
	s := newTestServer(session, nil)

	w, body := do(t, s, http.MethodPost, "/api/config/health-check", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["run_id"])
	report := data["report"].(map[string]interface{})
	assert.Equal(t, true, report["should_replace_config"])
	assert.Equal(t, true, report["saved"])

	w, _ = do(t, s, http.MethodPost, "/api/config/health-check?backtesting=false", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true, false}, session.checkedModes)

	w, _ = do(t, s, http.MethodPost, "/api/config/health-check?backtesting=nope", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthCheckEndpoint_Failure(t *testing.T) {
	session := &fakeSession{
		report:   &configuration.Report{ShouldReplaceConfig: true},
		checkErr: fmt.Errorf("%w: disk gone", configuration.ErrReloadFailed),
	}
	s := newTestServer(session, nil)

	w, body := do(t, s, http.MethodPost, "/api/config/health-check", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, true, body["error"])
	assert.NotEmpty(t, body["run_id"])
	assert.NotNil(t, body["report"])
}

func TestHealthCheckEndpoint_RateLimited(t *testing.T) {
	s := newTestServer(&fakeSession{report: &configuration.Report{}}, nil)
	s.rateLimiter = NewRateLimiter(1, time.Minute)

	w, _ := do(t, s, http.MethodPost, "/api/config/health-check", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, s, http.MethodPost, "/api/config/health-check", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAuthenticatedRoutes(t *testing.T) {
	jwt := auth.NewJWTManager("secret", "tradebot-config")
	session := &fakeSession{report: &configuration.Report{}}
	s := newTestServer(session, jwt)

	w, body := do(t, s, http.MethodGet, "/api/config", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, auth.ErrUnauthorized.Code, body["error"])

	w, _ = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code, "health stays public")

	reader, err := jwt.GenerateAccessToken(auth.OperatorClaims{Operator: "viewer"}, time.Minute)
	require.NoError(t, err)
	w, _ = do(t, s, http.MethodGet, "/api/config", reader)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = do(t, s, http.MethodPost, "/api/config/health-check", reader)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, auth.ErrForbidden.Code, body["error"])
	assert.Empty(t, session.checkedModes)

	writer, err := jwt.GenerateAccessToken(auth.OperatorClaims{Operator: "ops", CanWrite: true}, time.Minute)
	require.NoError(t, err)
	w, _ = do(t, s, http.MethodPost, "/api/config/health-check", writer)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	r := NewRateLimiter(2, time.Minute)
	assert.True(t, r.Allow("a"))
	assert.True(t, r.Allow("a"))
	assert.False(t, r.Allow("a"))
	assert.True(t, r.Allow("b"))
}

func TestEventsEndpoint(t *testing.T) {
	s := newTestServer(&fakeSession{report: &configuration.Report{Saved: true}}, nil)

	w, body := do(t, s, http.MethodGet, "/api/config/events", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["data"].(map[string]interface{})["events"])

	bus := events.NewEventBus()
	recent := events.NewRecorder(10)
	bus.SubscribeAll(recent.Record)
	s.WithEvents(bus, recent)

	w, _ = do(t, s, http.MethodPost, "/api/config/health-check", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool { return len(recent.Recent()) == 1 }, time.Second, 5*time.Millisecond)

	w, body = do(t, s, http.MethodGet, "/api/config/events", "")
	assert.Equal(t, http.StatusOK, w.Code)
	list := body["data"].(map[string]interface{})["events"].([]interface{})
	require.Len(t, list, 1)
	event := list[0].(map[string]interface{})
	assert.Equal(t, string(events.EventHealthChecked), event["type"])
	assert.Equal(t, true, event["data"].(map[string]interface{})["saved"])
}
