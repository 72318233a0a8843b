package handler

import (
	"context"
	"strings"

	"github.com/catalogsync/backend/internal/domain/catalog"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// NotificationLogReader queries the inbound notification log
type NotificationLogReader interface {
	FindLog(ctx context.Context, messageID string) (*integration.NotificationLog, error)
	RecentLogs(ctx context.Context, status integration.NotificationLogStatus, limit int) ([]integration.NotificationLog, error)
}

const defaultListLimit = 50

// NotificationHandler exposes the notification log and product change notices
type NotificationHandler struct {
	BaseHandler
	logs    NotificationLogReader
	notices catalog.ChangeNoticeRepository
}

// NewNotificationHandler creates a NotificationHandler
func NewNotificationHandler(logs NotificationLogReader, notices catalog.ChangeNoticeRepository) *NotificationHandler {
	return &NotificationHandler{logs: logs, notices: notices}
}

// RecentLogs godoc
// @ID           listNotificationLogs
// @Summary      List notification logs
// @Description  Most recent inbound notifications, optionally filtered by status
// @Tags         notifications
// @Produce      json
// @Param        status         query  string  false "RECEIVED, PROCESSED or ERROR"
// @Param        limit          query  integer false "Maximum rows"
// @Success      200 {object} dto.Response{data=[]dto.NotificationLogResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /notifications/logs [get]
func (h *NotificationHandler) RecentLogs(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	status := integration.NotificationLogStatus(strings.ToUpper(q.Status))
	limit := q.LimitOr(defaultListLimit)

	logs, err := h.logs.RecentLogs(c.Request.Context(), status, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := lo.Map(logs, func(l integration.NotificationLog, _ int) dto.NotificationLogResponse {
		return dto.ToNotificationLogResponse(l)
	})
	h.SuccessList(c, out, len(out), limit)
}

// GetLog godoc
// @ID           getNotificationLog
// @Summary      Get notification log
// @Tags         notifications
// @Produce      json
// @Param        messageId      path   string  true  "Supplier message ID"
// @Success      200 {object} dto.Response{data=dto.NotificationLogResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /notifications/logs/{messageId} [get]
func (h *NotificationHandler) GetLog(c *gin.Context) {
	l, err := h.logs.FindLog(c.Request.Context(), c.Param("messageId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToNotificationLogResponse(*l))
}

// RecentNotices godoc
// @ID           listChangeNotices
// @Summary      List change notices
// @Description  Most recent product change notices raised by notifications
// @Tags         notifications
// @Produce      json
// @Param        limit          query  integer false "Maximum rows"
// @Success      200 {object} dto.Response{data=[]dto.ChangeNoticeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /notifications/notices [get]
func (h *NotificationHandler) RecentNotices(c *gin.Context) {
	var q dto.ListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	limit := q.LimitOr(defaultListLimit)

	notices, err := h.notices.FindRecent(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := lo.Map(notices, func(n catalog.ChangeNotice, _ int) dto.ChangeNoticeResponse {
		return dto.ToChangeNoticeResponse(n)
	})
	h.SuccessList(c, out, len(out), limit)
}

// RegisterRoutes mounts the notification endpoints
func (h *NotificationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/notifications")
	g.GET("/logs", h.RecentLogs)
	g.GET("/logs/:messageId", h.GetLog)
	g.GET("/notices", h.RecentNotices)
}
