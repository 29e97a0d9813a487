package handlers

import (
	"context"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/model"
	xhttp "github.com/careline/message-dispatch/pkg/http"
	"github.com/fasthttp/router"
)

type MessageRuleRepository interface {
	Create(ctx context.Context, rule *model.MessageRule) (*model.MessageRule, error)
	List(ctx context.Context, organisationID int64, f model.MessageRuleFilter) ([]*model.MessageRule, int64, error)
	Void(ctx context.Context, id int64) error
}

type RuleHandler struct {
	rules MessageRuleRepository
	auth  Authenticator
}

func RegisterRuleRoutes(e *router.Group, h *RuleHandler) {
	e.GET("/message-rules", h.ListRules)
	e.POST("/message-rules", h.CreateRule)
}

func NewRuleHandler(rules MessageRuleRepository, authSvc Authenticator) *RuleHandler {
	return &RuleHandler{
		rules: rules,
		auth:  authSvc,
	}
}

type createRuleRequest struct {
	Name              string `json:"name"`
	EntityType        string `json:"entity_type"`
	EntityTypeID      int64  `json:"entity_type_id"`
	ScheduleRule      string `json:"schedule_rule"`
	MessageRule       string `json:"message_rule"`
	ReceiverType      string `json:"receiver_type"`
	MessageTemplateID string `json:"message_template_id"`
}

type listRulesResponse struct {
	Items []*model.MessageRule `json:"items"`
	Total int64                `json:"total"`
}

func (h *RuleHandler) CreateRule(ctx *xhttp.RequestCtx) {
	tenantCtx, err := authenticate(ctx, h.auth)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	var req createRuleRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}

	p := model.MessageRuleCreateRequest{
		Name:              req.Name,
		EntityType:        model.EntityType(req.EntityType),
		EntityTypeID:      req.EntityTypeID,
		ScheduleRule:      req.ScheduleRule,
		MessageRule:       req.MessageRule,
		ReceiverType:      model.ReceiverType(req.ReceiverType),
		MessageTemplateID: req.MessageTemplateID,
	}
	if err := p.Validate(); err != nil {
		writeError(ctx, 400, err.Error())
		return
	}

	uc, err := auth.UserContextFrom(tenantCtx)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	rule, err := h.rules.Create(tenantCtx, &model.MessageRule{
		Name:              p.Name,
		EntityType:        p.EntityType,
		EntityTypeID:      p.EntityTypeID,
		ScheduleRule:      p.ScheduleRule,
		MessageRule:       p.MessageRule,
		ReceiverType:      p.ReceiverType,
		MessageTemplateID: p.MessageTemplateID,
		OrganisationID:    uc.OrganisationID,
	})
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 201, rule)
}

func (h *RuleHandler) ListRules(ctx *xhttp.RequestCtx) {
	tenantCtx, err := authenticate(ctx, h.auth)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	var f model.MessageRuleFilter
	if v := query(ctx, "entity_type"); v != "" {
		t := model.EntityType(v)
		f.EntityType = &t
	}
	if v, ok := queryInt64(ctx, "entity_type_id"); ok {
		f.EntityTypeID = &v
	}
	if v, ok := queryInt64(ctx, "limit"); ok {
		f.Limit = int(v)
	}
	if v, ok := queryInt64(ctx, "offset"); ok {
		f.Offset = int(v)
	}

	uc, err := auth.UserContextFrom(tenantCtx)
	if err != nil {
		writeError(ctx, 401, err.Error())
		return
	}

	items, total, err := h.rules.List(tenantCtx, uc.OrganisationID, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, listRulesResponse{Items: items, Total: total})
}
