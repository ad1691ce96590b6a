package scan

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// defaultScanDays 与事件日志的默认保留期一致。
const defaultScanDays = 365

// Handler 暴露深度扫描的管理接口。
type Handler struct {
	scanner *Scanner
}

// NewHandler 构造scan模块的HTTP处理器。
func NewHandler(scanner *Scanner) *Handler {
	return &Handler{scanner: scanner}
}

// Run 处理 POST /api/admin/scan，同步执行一次深度历史回填。
func (h *Handler) Run(c *gin.Context) {
	var req struct {
		Days int `json:"days"`
	}
	// 请求体可省略，此时使用默认回溯天数
	if err := c.ShouldBindJSON(&req); err != nil || req.Days <= 0 {
		req.Days = defaultScanDays
	}

	result, err := h.scanner.Run(c.Request.Context(), req.Days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "深度扫描失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"days":              req.Days,
		"channelsProcessed": result.ChannelsProcessed,
		"messagesIndexed":   result.MessagesIndexed,
	})
}
