package birthday

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/logger"
)

type BirthdayResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Day      int    `json:"day"`
	Month    int    `json:"month"`
}

type setBirthdayRequest struct {
	UserID   string `json:"userId" binding:"required"`
	Username string `json:"username" binding:"required"`
	Day      int    `json:"day" binding:"required"`
	Month    int    `json:"month" binding:"required"`
}

// Handler 暴露birthday模块的HTTP接口。
// 每次写操作之后都会触发一次看板协调，保持频道与数据库一致。
type Handler struct {
	svc   *Service
	board *Reconciler
}

// NewHandler 构造birthday模块的HTTP处理器。board可为nil（未配置生日频道）。
func NewHandler(svc *Service, board *Reconciler) *Handler {
	return &Handler{svc: svc, board: board}
}

func (h *Handler) refreshBoard(c *gin.Context) {
	if h.board == nil {
		return
	}
	if err := h.board.Refresh(c.Request.Context()); err != nil {
		// 数据库已更新，看板会在下一次写操作时收敛
		logger.Log.Warnf("生日看板刷新失败: %v", err)
	}
}

// SetBirthday 处理 POST /api/birthdays
func (h *Handler) SetBirthday(c *gin.Context) {
	var req setBirthdayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体必须包含userId、username、day和month字段"})
		return
	}

	err := h.svc.SetBirthday(c.Request.Context(), req.UserID, req.Username, req.Day, req.Month)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "这个日期并不存在，请检查日和月。"})
		case errors.Is(err, ErrOptedOut):
			c.JSON(http.StatusForbidden, gin.H{"error": "该用户已关闭活动追踪，无法为其登记生日。"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "登记生日失败"})
		}
		return
	}

	h.refreshBoard(c)
	c.JSON(http.StatusOK, gin.H{"message": "生日已登记。"})
}

// DeleteBirthday 处理 DELETE /api/birthdays/:id
func (h *Handler) DeleteBirthday(c *gin.Context) {
	existed, err := h.svc.DeleteBirthday(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "删除生日失败"})
		return
	}
	if !existed {
		c.JSON(http.StatusOK, gin.H{"deleted": false, "message": "该用户没有登记过生日。"})
		return
	}

	h.refreshBoard(c)
	c.JSON(http.StatusOK, gin.H{"deleted": true, "message": "生日已删除。"})
}

// ListBirthdays 处理 GET /api/birthdays
func (h *Handler) ListBirthdays(c *gin.Context) {
	birthdays, err := h.svc.AllBirthdays(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取生日列表失败"})
		return
	}

	responses := make([]BirthdayResponse, len(birthdays))
	for i, b := range birthdays {
		responses[i] = BirthdayResponse{
			UserID:   b.UserID,
			Username: b.Username,
			Day:      b.Day,
			Month:    b.Month,
		}
	}
	c.JSON(http.StatusOK, responses)
}
