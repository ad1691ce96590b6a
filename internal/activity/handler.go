package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// --- API响应模型 ---

type UserStatsResponse struct {
	UserID              string `json:"userId"`
	Username            string `json:"username"`
	EventCount          int64  `json:"eventCount"`
	LastActiveTimestamp int64  `json:"lastActiveTimestamp"`
	TrackingEnabled     bool   `json:"trackingEnabled"`
}

type RankedUserResponse struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int64  `json:"score"`
}

type InactiveUserResponse struct {
	UserID              string `json:"userId"`
	Username            string `json:"username"`
	LastActiveTimestamp int64  `json:"lastActiveTimestamp"`
	InactiveDays        int    `json:"inactiveDays"`
}

// Handler 暴露activity模块的HTTP接口。
type Handler struct {
	svc *Service
	// defaultTopLimit 是未指定limit时排行榜的长度
	defaultTopLimit int
	// defaultInactivityDays 是未指定days时不活跃报告的阈值
	defaultInactivityDays int
}

// NewHandler 构造activity模块的HTTP处理器。
func NewHandler(svc *Service, defaultTopLimit, defaultInactivityDays int) *Handler {
	return &Handler{svc: svc, defaultTopLimit: defaultTopLimit, defaultInactivityDays: defaultInactivityDays}
}

// GetUserStats 处理 GET /api/users/:id/stats
func (h *Handler) GetUserStats(c *gin.Context) {
	stats, err := h.svc.GetUserStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取用户统计失败"})
		return
	}
	c.JSON(http.StatusOK, UserStatsResponse{
		UserID:              c.Param("id"),
		Username:            stats.Username,
		EventCount:          stats.Count,
		LastActiveTimestamp: stats.LastActive,
		TrackingEnabled:     stats.TrackingEnabled,
	})
}

// GetTopUsers 处理 GET /api/users/top?limit=
func (h *Handler) GetTopUsers(c *gin.Context) {
	limit := h.defaultTopLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit参数必须是正整数"})
			return
		}
		limit = parsed
	}

	ranked, err := h.svc.TopUsers(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取排行榜数据失败"})
		return
	}

	responses := make([]RankedUserResponse, len(ranked))
	for i, row := range ranked {
		responses[i] = RankedUserResponse{
			Rank:     i + 1,
			UserID:   row.UserID,
			Username: row.Username,
			Score:    row.Score,
		}
	}
	c.JSON(http.StatusOK, responses)
}

// GetInactiveUsers 处理 GET /api/users/inactive?days=
func (h *Handler) GetInactiveUsers(c *gin.Context) {
	days := h.defaultInactivityDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days参数必须是正整数"})
			return
		}
		days = parsed
	}

	now := time.Now()
	users, err := h.svc.UsersInactiveSince(c.Request.Context(), days, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取不活跃名单失败"})
		return
	}

	responses := make([]InactiveUserResponse, len(users))
	for i, user := range users {
		inactiveFor := int(now.Sub(time.UnixMilli(user.LastActiveTimestamp)).Hours() / 24)
		responses[i] = InactiveUserResponse{
			UserID:              user.UserID,
			Username:            user.Username,
			LastActiveTimestamp: user.LastActiveTimestamp,
			InactiveDays:        inactiveFor,
		}
	}
	c.JSON(http.StatusOK, gin.H{"thresholdDays": days, "users": responses})
}

type privacyRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetPrivacy 处理 POST /api/users/:id/privacy
// 当用户已处于目标状态时，响应中明确说明而不是静默成功。
func (h *Handler) SetPrivacy(c *gin.Context) {
	var req privacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须包含enabled字段"})
		return
	}

	userID := c.Param("id")
	enabled := *req.Enabled

	stats, err := h.svc.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询当前追踪状态失败"})
		return
	}
	if stats.TrackingEnabled == enabled {
		var message string
		if enabled {
			message = "活动追踪已经处于开启状态。"
		} else {
			message = "活动追踪已经处于关闭状态。"
		}
		c.JSON(http.StatusOK, gin.H{"changed": false, "message": message})
		return
	}

	if err := h.svc.SetTrackingStatus(c.Request.Context(), userID, enabled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "更新追踪状态失败"})
		return
	}

	var message string
	if enabled {
		message = "已开启活动追踪。"
	} else {
		message = "已关闭活动追踪，你的活动将不再被统计。"
	}
	c.JSON(http.StatusOK, gin.H{"changed": true, "message": message})
}

// EraseUser 处理 DELETE /api/users/:id，被遗忘权入口。
func (h *Handler) EraseUser(c *gin.Context) {
	userID := c.Param("id")
	if err := h.svc.EraseUser(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "擦除用户数据失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "该用户的全部数据已被删除。"})
}
