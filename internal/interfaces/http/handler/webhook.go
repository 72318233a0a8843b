package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/catalogsync/backend/internal/application/catalogsync"
	"github.com/catalogsync/backend/internal/interfaces/http/dto"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotificationReceiver accepts a raw supplier push
type NotificationReceiver interface {
	Receive(ctx context.Context, body []byte) catalogsync.Ack
}

// WebhookHandler is the inbound supplier push endpoint. It never answers
// with anything but HTTP 200 and the supplier envelope.
type WebhookHandler struct {
	BaseHandler
	receiver NotificationReceiver
	maxBody  int64
	logger   *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler. maxBody <= 0 disables the cap.
func NewWebhookHandler(receiver NotificationReceiver, maxBody int64, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{receiver: receiver, maxBody: maxBody, logger: logger}
}

// Receive godoc
// @ID           receiveSupplierWebhook
// @Summary      Receive supplier notification
// @Description  Push endpoint for supplier change notifications. Always answers 200 with the supplier envelope.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        request body object false "Notification envelope {messageId, type, params}"
// @Success      200 {object} dto.WebhookResponse{data=dto.WebhookAck}
// @Router       /webhooks/supplier [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	requestID := middleware.GetRequestID(c)

	reader := io.Reader(c.Request.Body)
	if h.maxBody > 0 {
		reader = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		// An unreadable body is acknowledged like a ping.
		h.logger.Warn("webhook body unreadable",
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		body = nil
	}

	ack := h.receiver.Receive(c.Request.Context(), body)

	out := dto.WebhookAck{
		MessageID: ack.MessageID,
		Ping:      ack.Ping,
		Completed: ack.Completed,
	}
	if ack.Result != nil {
		out.Status = string(ack.Result.Status)
	}
	c.JSON(http.StatusOK, dto.NewWebhookResponse(out, requestID))
}

// RegisterRoutes mounts the push endpoint
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/supplier", h.Receive)
}
