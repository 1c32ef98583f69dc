package handlers

import (
	"net/http"

	"castflow/internal/services"

	"github.com/gin-gonic/gin"
)

// CastingHandler covers the casting lifecycle, invitations and creator
// signup. These are the endpoints whose transitions fire triggers.
type CastingHandler struct {
	service *services.CastingService
}

func NewCastingHandler(service *services.CastingService) *CastingHandler {
	return &CastingHandler{service: service}
}

// CreateCasting creates a casting in draft state.
func (h *CastingHandler) CreateCasting(c *gin.Context) {
	var req services.CastingCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	casting, err := h.service.CreateCasting(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to create casting", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, casting)
}

// ListCastings pages through castings.
func (h *CastingHandler) ListCastings(c *gin.Context) {
	var req services.CastingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	castings, total, err := h.service.ListCastings(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list castings", Message: err.Error()})
		return
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	pages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		pages++
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     castings,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	})
}

// GetCasting loads one casting with invitations.
func (h *CastingHandler) GetCasting(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	casting, err := h.service.GetCasting(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Casting not found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, casting)
}

// UpdateStatus moves a casting through its lifecycle.
func (h *CastingHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.CastingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	casting, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to update status", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, casting)
}

// InviteCreator sends a casting invitation.
func (h *CastingHandler) InviteCreator(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.InvitationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	invitation, err := h.service.InviteCreator(c.Request.Context(), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to invite creator", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, invitation)
}

// RespondInvitation records the creator's answer.
func (h *CastingHandler) RespondInvitation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.InvitationRespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	invitation, err := h.service.RespondInvitation(c.Request.Context(), id, req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to respond", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, invitation)
}

// RegisterCreator onboards a new creator.
func (h *CastingHandler) RegisterCreator(c *gin.Context) {
	var req services.CreatorSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	creator, err := h.service.RegisterCreator(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to register creator", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, creator)
}

// RegisterCastingRoutes mounts the casting domain endpoints.
func RegisterCastingRoutes(r *gin.RouterGroup, handler *CastingHandler) {
	castings := r.Group("/castings")
	{
		castings.POST("", handler.CreateCasting)
		castings.GET("", handler.ListCastings)
		castings.GET("/:id", handler.GetCasting)
		castings.PUT("/:id/status", handler.UpdateStatus)
		castings.POST("/:id/invitations", handler.InviteCreator)
	}
	r.PUT("/invitations/:id/response", handler.RespondInvitation)
	r.POST("/creators", handler.RegisterCreator)
}
