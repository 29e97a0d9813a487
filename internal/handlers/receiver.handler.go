package handlers

import (
	"context"
	"errors"

	"github.com/careline/message-dispatch/internal/model"
	"github.com/careline/message-dispatch/internal/repository"
	xhttp "github.com/careline/message-dispatch/pkg/http"
	"github.com/fasthttp/router"
)

type RequestQueryService interface {
	FetchPendingScheduledMessages(ctx context.Context, receiverID string, receiverType model.ReceiverType, status model.DeliveryStatus) ([]*model.MessageRequest, error)
}

type ReceiverHandler struct {
	requests RequestQueryService
	auth     Authenticator
}

func RegisterReceiverRoutes(e *router.Group, h *ReceiverHandler) {
	e.GET("/receivers/{type}/{id}/messages", h.ListScheduledMessages)
}

func NewReceiverHandler(requests RequestQueryService, auth Authenticator) *ReceiverHandler {
	return &ReceiverHandler{
		requests: requests,
		auth:     auth,
	}
}

type scheduledMessagesResponse struct {
	Items []*model.MessageRequest `json:"items"`
}

func (h *ReceiverHandler) ListScheduledMessages(ctx *xhttp.RequestCtx) {
	tenantCtx, err := authenticate(ctx, h.auth)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	receiverType := model.ReceiverType(pathParam(ctx, "type"))
	if !receiverType.Valid() {
		writeError(ctx, 400, "invalid receiver type")
		return
	}
	receiverID := pathParam(ctx, "id")
	if receiverID == "" {
		writeError(ctx, 400, "receiver id is required")
		return
	}

	status := model.DeliveryStatusPending
	if v := query(ctx, "status"); v != "" {
		status = model.DeliveryStatus(v)
	}

	items, err := h.requests.FetchPendingScheduledMessages(tenantCtx, receiverID, receiverType, status)
	if err != nil {
		if errors.Is(err, repository.ErrMessageReceiverNotFound) {
			writeError(ctx, 404, "receiver not found")
			return
		}
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, scheduledMessagesResponse{Items: items})
}
