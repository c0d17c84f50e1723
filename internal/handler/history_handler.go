package handler

import (
	"github.com/gin-gonic/gin"

	"multisender-core/internal/handler/response"
	"multisender-core/internal/model"
	"multisender-core/internal/service"
)

type HistoryHandler struct {
	svc *service.HistoryService
}

func NewHistoryHandler(svc *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

type historyItem struct {
	ID             string   `json:"id"`
	Timestamp      int64    `json:"timestamp"`
	Asset          string   `json:"asset"`
	IsNative       bool     `json:"is_native"`
	Mode           string   `json:"mode"`
	RecipientCount int      `json:"recipient_count"`
	Total          string   `json:"total"`
	Fee            string   `json:"fee"`
	Samples        []string `json:"samples"`
}

func toHistoryItem(e model.HistoryEntry) historyItem {
	return historyItem{
		ID:             e.ID,
		Timestamp:      e.Timestamp,
		Asset:          e.AssetLabel,
		IsNative:       e.IsNative,
		Mode:           e.Mode,
		RecipientCount: e.RecipientCount,
		Total:          e.TotalAmount.String(),
		Fee:            e.Fee.String(),
		Samples:        e.Samples(),
	}
}

// List 最近的分发记录
// @Summary 历史记录
// @Description 返回最近保留的分发记录, 最新在前
// @Tags History
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	entries, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]historyItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, toHistoryItem(e))
	}
	response.Success(c, gin.H{"entries": items})
}
