package handlers

import (
	"context"
	"time"

	"github.com/careline/message-dispatch/internal/model"
	xhttp "github.com/careline/message-dispatch/pkg/http"
	"github.com/fasthttp/router"
)

type BroadcastService interface {
	ScheduleBroadcastMessage(ctx context.Context, groupIDs []string, templateID string, parameters []string, scheduledAt time.Time) (*model.ManualBroadcastMessage, error)
}

type BroadcastHandler struct {
	svc  BroadcastService
	auth Authenticator
}

func RegisterBroadcastRoutes(e *router.Group, h *BroadcastHandler) {
	e.POST("/broadcasts", h.ScheduleBroadcast)
}

func NewBroadcastHandler(svc BroadcastService, auth Authenticator) *BroadcastHandler {
	return &BroadcastHandler{
		svc:  svc,
		auth: auth,
	}
}

type scheduleBroadcastRequest struct {
	GroupIDs          []string `json:"group_ids"`
	MessageTemplateID string   `json:"message_template_id"`
	Parameters        []string `json:"parameters"`
	ScheduledAt       string   `json:"scheduled_at"`
}

func (h *BroadcastHandler) ScheduleBroadcast(ctx *xhttp.RequestCtx) {
	tenantCtx, err := authenticate(ctx, h.auth)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	var req scheduleBroadcastRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	scheduledAt := time.Now()
	if req.ScheduledAt != "" {
		t, err := parseTime(req.ScheduledAt)
		if err != nil {
			writeError(ctx, 400, "invalid scheduled_at: "+err.Error())
			return
		}
		scheduledAt = t
	}

	broadcast, err := h.svc.ScheduleBroadcastMessage(tenantCtx, req.GroupIDs, req.MessageTemplateID, req.Parameters, scheduledAt)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, broadcast)
}
