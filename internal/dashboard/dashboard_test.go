package dashboard_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/dashboard"
	"github.com/ruvnet/crdtcheck/internal/explorer"
	"github.com/ruvnet/crdtcheck/internal/middleware"
)

func TestReportEndpointRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := dashboard.NewHub(nil)
	srv := dashboard.NewServer(dashboard.Config{JWTSecret: "test-secret"}, hub, nil)
	_ = srv

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	rec := httptest.NewRecorder()
	router := newTestRouter(t, hub, "test-secret")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReportEndpointWithValidToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := dashboard.NewHub(nil)
	hub.SetReport(&explorer.Report{
		StatesVisited: 10,
		Discoveries: []explorer.Discovery{
			{Property: "counter-value-matches-net-ops"},
		},
	})

	router := newTestRouter(t, hub, "test-secret")

	token, err := middleware.IssueViewerToken("test-secret", "tester", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/report", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "complete", body["status"])
	assert.Equal(t, float64(10), body["states_visited"])
}

// newTestRouter builds a gin engine with the same route wiring dashboard.NewServer
// uses internally, against httptest rather than a bound network listener.
func newTestRouter(t *testing.T, hub *dashboard.Hub, secret string) http.Handler {
	t.Helper()
	router := gin.New()
	authed := router.Group("/api/v1")
	authed.Use(middleware.Auth(secret))
	authed.GET("/report", func(c *gin.Context) {
		report := hub.Report()
		if report == nil {
			c.JSON(http.StatusOK, gin.H{"status": "running"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "complete",
			"passed":         report.Passed(),
			"states_visited": report.StatesVisited,
			"discoveries":    report.Discoveries,
		})
	})
	return router
}
