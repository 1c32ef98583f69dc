package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"castflow/internal/services"

	"github.com/gin-gonic/gin"
)

// AutomationHandler exposes the rule engine management surface: trigger
// catalog, rules, actions, execution logs and test runs.
type AutomationHandler struct {
	service *services.AutomationService
	casting *services.CastingService
}

func NewAutomationHandler(service *services.AutomationService, casting *services.CastingService) *AutomationHandler {
	return &AutomationHandler{service: service, casting: casting}
}

// ListTriggers returns the static trigger catalog.
func (h *AutomationHandler) ListTriggers(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Catalog().List())
}

// ListRules returns all rules of one trigger, actions included.
func (h *AutomationHandler) ListRules(c *gin.Context) {
	rules, err := h.service.ListRules(c.Request.Context(), c.Param("trigger"))
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to list rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule adds a rule under a trigger.
func (h *AutomationHandler) CreateRule(c *gin.Context) {
	var req services.RuleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), c.Param("trigger"), &req)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to create rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateRule applies a partial rule update.
func (h *AutomationHandler) UpdateRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.RuleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to update rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule removes a rule and its actions. Execution logs stay.
func (h *AutomationHandler) DeleteRule(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRule(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to delete rule", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ReorderRules applies a bulk order change for one trigger.
func (h *AutomationHandler) ReorderRules(c *gin.Context) {
	var items []services.RuleOrderItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	if err := h.service.ReorderRules(c.Request.Context(), c.Param("trigger"), items); err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to reorder rules", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "reordered"})
}

// ListActions returns a rule's actions in execution order.
func (h *AutomationHandler) ListActions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	actions, err := h.service.ListActions(c.Request.Context(), id)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to list actions", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, actions)
}

// CreateAction attaches an action to a rule.
func (h *AutomationHandler) CreateAction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.ActionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	action, err := h.service.CreateAction(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to create action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, action)
}

// UpdateAction applies a partial action update.
func (h *AutomationHandler) UpdateAction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.ActionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	action, err := h.service.UpdateAction(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to update action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, action)
}

// DeleteAction removes one action.
func (h *AutomationHandler) DeleteAction(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteAction(c.Request.Context(), id); err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Failed to delete action", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// ListLogs queries the execution log, newest first.
func (h *AutomationHandler) ListLogs(c *gin.Context) {
	var req services.LogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	logs, err := h.service.ListLogs(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list logs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, logs)
}

// TestRunRequest fires a trigger in test mode. Parameters come either
// inline or derived from a real casting record.
type TestRunRequest struct {
	Parameters map[string]interface{} `json:"parameters"`
	CastingID  uint                   `json:"casting_id"`
}

// TestRun runs a trigger in test mode: delivery is suppressed but the
// full evaluation and logging path is exercised.
func (h *AutomationHandler) TestRun(c *gin.Context) {
	var req TestRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	params := req.Parameters
	if req.CastingID != 0 && h.casting != nil {
		derived, err := h.casting.EventParams(c.Request.Context(), req.CastingID)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to derive parameters", Message: err.Error()})
			return
		}
		params = derived
	}

	executedBy := c.GetString("user_email")
	if executedBy == "" {
		executedBy = "operator"
	}

	result, err := h.service.TestRun(c.Request.Context(), c.Param("trigger"), params, executedBy)
	if err != nil {
		c.JSON(statusFor(err), ErrorResponse{Error: "Test run failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return 0, false
	}
	return uint(id), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrUnknownTrigger),
		errors.Is(err, services.ErrRuleNotFound),
		errors.Is(err, services.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RegisterAutomationRoutes mounts the management surface.
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	auto := r.Group("/automation")
	{
		auto.GET("/triggers", handler.ListTriggers)
		auto.GET("/triggers/:trigger/rules", handler.ListRules)
		auto.POST("/triggers/:trigger/rules", handler.CreateRule)
		auto.PUT("/triggers/:trigger/rules/order", handler.ReorderRules)
		auto.POST("/triggers/:trigger/test", handler.TestRun)

		auto.PUT("/rules/:id", handler.UpdateRule)
		auto.DELETE("/rules/:id", handler.DeleteRule)
		auto.GET("/rules/:id/actions", handler.ListActions)
		auto.POST("/rules/:id/actions", handler.CreateAction)

		auto.PUT("/actions/:id", handler.UpdateAction)
		auto.DELETE("/actions/:id", handler.DeleteAction)

		auto.GET("/logs", handler.ListLogs)
	}
}
