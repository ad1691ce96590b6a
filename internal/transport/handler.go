package transport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/guild-activity-tracker/internal/activity"
	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

type inboundEventRequest struct {
	UserID        string `json:"userId" binding:"required"`
	Username      string `json:"username" binding:"required"`
	Kind          string `json:"kind" binding:"required"`
	ChannelID     string `json:"channelId"`
	Bot           bool   `json:"bot"`
	HasAttachment bool   `json:"hasAttachment"`
}

// Handler 暴露事件摄入与名册维护相关的HTTP接口。
type Handler struct {
	gateway *Gateway
	act     *activity.Service
	roster  Roster
}

// NewHandler 构造transport侧的HTTP处理器。
func NewHandler(gateway *Gateway, act *activity.Service, roster Roster) *Handler {
	return &Handler{gateway: gateway, act: act, roster: roster}
}

// HandleEvent 处理 POST /api/events，平台适配器的事件投递入口。
func (h *Handler) HandleEvent(c *gin.Context) {
	var req inboundEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须包含userId、username和kind字段"})
		return
	}

	kind := activity.EventKind(req.Kind)
	switch kind {
	case activity.KindMessage, activity.KindReaction, activity.KindFile:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind必须是message、reaction或file之一"})
		return
	}

	counted := h.gateway.HandleEvent(c.Request.Context(), InboundEvent{
		UserID:        req.UserID,
		Username:      req.Username,
		Kind:          kind,
		ChannelID:     req.ChannelID,
		Bot:           req.Bot,
		HasAttachment: req.HasAttachment,
	})
	c.JSON(http.StatusOK, gin.H{"counted": counted})
}

// HandleMemberRemove 处理 POST /api/events/member-remove，成员离开通知。
func (h *Handler) HandleMemberRemove(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Bot    bool   `json:"bot"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须包含userId字段"})
		return
	}

	h.gateway.HandleMemberRemove(c.Request.Context(), req.UserID, req.Bot)
	c.JSON(http.StatusOK, gin.H{"message": "已处理。"})
}

// CleanDB 处理 POST /api/admin/clean-db：
// 删除数据库中已不在名册上的幽灵用户，返回删除数量。
func (h *Handler) CleanDB(c *gin.Context) {
	ctx := c.Request.Context()

	members, err := h.roster.Members(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取成员名册失败"})
		return
	}
	if len(members) == 0 {
		// 空名册只可能来自适配器缺席或取数失败，此时清理等于全库删除
		logger.Log.Warn("[清理] 成员名册为空，已中止清理。")
		c.JSON(http.StatusConflict, gin.H{"error": "成员名册为空，已中止清理"})
		return
	}
	present := make(map[string]bool, len(members))
	for _, m := range members {
		present[m.ID] = true
	}

	userIDs, err := h.act.AllUserIDs(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取用户列表失败"})
		return
	}

	deleted := 0
	for _, id := range userIDs {
		if present[id] {
			continue
		}
		if err := h.act.EraseUser(ctx, id); err != nil {
			logger.Log.Errorf("[清理] 删除幽灵用户 %s 失败: %v", id, err)
			continue
		}
		deleted++
	}

	logger.Log.Infof("[清理] 完成: 检查 %d 个用户, 删除 %d 个幽灵用户。", len(userIDs), deleted)
	c.JSON(http.StatusOK, gin.H{"checked": len(userIDs), "deleted": deleted})
}
