package activity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
)

func newTestRouter(t *testing.T) (*gin.Engine, *activity.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	svc := activity.NewService(db, 0)
	h := activity.NewHandler(svc, 10, 90)

	router := gin.New()
	router.GET("/api/users/top", h.GetTopUsers)
	router.GET("/api/users/:id/stats", h.GetUserStats)
	router.POST("/api/users/:id/privacy", h.SetPrivacy)
	router.DELETE("/api/users/:id", h.EraseUser)
	return router, svc
}

func TestHandlerGetUserStats(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	require.True(t, svc.HandleActivity(ctx, "user-a", "Alice", activity.KindMessage, time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/user-a/stats", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp activity.UserStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-a", resp.UserID)
	assert.Equal(t, "Alice", resp.Username)
	assert.Equal(t, int64(1), resp.EventCount)
	assert.True(t, resp.TrackingEnabled)
}

func TestHandlerTopUsersBadLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/users/top?limit=abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerPrivacyReportsAlreadyInState(t *testing.T) {
	router, _ := newTestRouter(t)

	// 默认即为开启，重复开启应说明状态未变
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/user-a/privacy",
		strings.NewReader(`{"enabled": true}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Changed bool   `json:"changed"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Changed)
	assert.NotEmpty(t, resp.Message)

	// 关闭则是一次真实变更
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/users/user-a/privacy",
		strings.NewReader(`{"enabled": false}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Changed)
}

func TestHandlerPrivacyMissingBody(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users/user-a/privacy", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerEraseUser(t *testing.T) {
	router, svc := newTestRouter(t)
	ctx := context.Background()

	require.True(t, svc.HandleActivity(ctx, "user-a", "Alice", activity.KindMessage, time.Now()))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/users/user-a", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	ids, err := svc.AllUserIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
