package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/transport"
)

func (f *fakeRoster) Members(ctx context.Context) ([]transport.Member, error) {
	out := make([]transport.Member, 0, len(f.members))
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}

func newCleanDBRouter(t *testing.T, roster transport.Roster) (*gin.Engine, *activity.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw, act := newGatewayFixture(t, roster, nil)
	h := transport.NewHandler(gw, act, roster)

	router := gin.New()
	router.POST("/api/admin/clean-db", h.CleanDB)
	return router, act
}

func seedUsers(t *testing.T, act *activity.Service, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.True(t, act.HandleActivity(context.Background(), id, "用户"+id, activity.KindMessage, time.Now()))
	}
}

func TestCleanDBAbortsWhenRosterUnavailable(t *testing.T) {
	router, act := newCleanDBRouter(t, transport.Noop{})
	seedUsers(t, act, "user-a", "user-b")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/clean-db", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	ids, err := act.AllUserIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2, "名册不可用时不得删除任何用户")
}

func TestCleanDBAbortsOnEmptyRoster(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{}}
	router, act := newCleanDBRouter(t, roster)
	seedUsers(t, act, "user-a", "user-b")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/clean-db", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	ids, err := act.AllUserIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2, "空名册等同于名册不可用")
}

func TestCleanDBDeletesOnlyGhosts(t *testing.T) {
	roster := &fakeRoster{members: map[string]*transport.Member{
		"user-a": {ID: "user-a"},
	}}
	router, act := newCleanDBRouter(t, roster)
	seedUsers(t, act, "user-a", "user-b")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/clean-db", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Checked int `json:"checked"`
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Checked)
	assert.Equal(t, 1, resp.Deleted)

	ids, err := act.AllUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"user-a"}, ids)
}
