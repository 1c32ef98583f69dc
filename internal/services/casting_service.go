package services

import (
	"context"
	"fmt"
	"time"

	"castflow/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CastingService owns castings, invitations and creator onboarding. Every
// state transition fires the matching automation trigger.
type CastingService struct {
	db         *gorm.DB
	logger     *logrus.Logger
	automation *AutomationService
}

func NewCastingService(db *gorm.DB, logger *logrus.Logger) *CastingService {
	if logger == nil {
		logger = logrus.New()
	}
	return &CastingService{
		db:     db,
		logger: logger,
	}
}

// SetAutomationService wires the engine in. Without it transitions still
// work, they just fire nothing.
func (s *CastingService) SetAutomationService(automation *AutomationService) {
	s.automation = automation
}

// CastingCreateRequest creates a casting for a client.
type CastingCreateRequest struct {
	ClientID uint       `json:"client_id" binding:"required"`
	Title    string     `json:"title" binding:"required"`
	Brief    string     `json:"brief"`
	Category string     `json:"category"`
	Budget   float64    `json:"budget"`
	Location string     `json:"location"`
	Deadline *time.Time `json:"deadline"`
}

type CastingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type InvitationCreateRequest struct {
	CreatorID uint   `json:"creator_id" binding:"required"`
	Message   string `json:"message"`
}

type InvitationRespondRequest struct {
	Status string `json:"status" binding:"required"` // accepted or declined
}

type CreatorSignupRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Handle     string `json:"handle"`
	Categories string `json:"categories"`
	Followers  int    `json:"followers"`
}

type CastingListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Status   string `form:"status"`
	ClientID uint   `form:"client_id"`
}

var castingStatusTriggers = map[string]string{
	"approved":  TriggerCastingApproved,
	"rejected":  TriggerCastingRejected,
	"completed": TriggerCastingCompleted,
}

func validCastingStatus(status string) bool {
	switch status {
	case "draft", "pending", "approved", "rejected", "completed":
		return true
	default:
		return false
	}
}

// CreateCasting stores a new casting in draft state and fires
// casting_created.
func (s *CastingService) CreateCasting(ctx context.Context, req *CastingCreateRequest) (*models.Casting, error) {
	var client models.ClientAccount
	if err := s.db.WithContext(ctx).First(&client, req.ClientID).Error; err != nil {
		return nil, fmt.Errorf("client not found: %w", err)
	}

	casting := &models.Casting{
		PublicID:  uuid.NewString(),
		ClientID:  req.ClientID,
		Title:     req.Title,
		Brief:     req.Brief,
		Category:  req.Category,
		Budget:    req.Budget,
		Location:  req.Location,
		Deadline:  req.Deadline,
		Status:    "draft",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(casting).Error; err != nil {
		return nil, fmt.Errorf("create casting: %w", err)
	}
	casting.Client = client

	s.fireTrigger(TriggerCastingCreated, s.castingParams(casting))
	return casting, nil
}

// UpdateStatus moves a casting through its lifecycle and fires the trigger
// bound to the new status, if any.
func (s *CastingService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Casting, error) {
	if !validCastingStatus(status) {
		return nil, fmt.Errorf("%w: unknown casting status %q", ErrInvalidRequest, status)
	}

	var casting models.Casting
	if err := s.db.WithContext(ctx).Preload("Client").First(&casting, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("casting %d not found", id)
		}
		return nil, fmt.Errorf("load casting: %w", err)
	}

	casting.Status = status
	casting.UpdatedAt = time.Now()
	if status == "completed" {
		now := time.Now()
		casting.CompletedAt = &now
	}
	if err := s.db.WithContext(ctx).Save(&casting).Error; err != nil {
		return nil, fmt.Errorf("update casting: %w", err)
	}

	if trigger, ok := castingStatusTriggers[status]; ok {
		s.fireTrigger(trigger, s.castingParams(&casting))
	}
	return &casting, nil
}

// InviteCreator sends a casting invitation and fires invitation_sent.
func (s *CastingService) InviteCreator(ctx context.Context, castingID uint, req *InvitationCreateRequest) (*models.Invitation, error) {
	var casting models.Casting
	if err := s.db.WithContext(ctx).Preload("Client").First(&casting, castingID).Error; err != nil {
		return nil, fmt.Errorf("casting not found: %w", err)
	}
	var creator models.Creator
	if err := s.db.WithContext(ctx).First(&creator, req.CreatorID).Error; err != nil {
		return nil, fmt.Errorf("creator not found: %w", err)
	}

	invitation := &models.Invitation{
		CastingID: castingID,
		CreatorID: req.CreatorID,
		Status:    "pending",
		Message:   req.Message,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	invitation.Casting = casting
	invitation.Creator = creator

	s.fireTrigger(TriggerInvitationSent, s.invitationParams(invitation))
	return invitation, nil
}

// RespondInvitation records the creator's answer and fires the matching
// trigger.
func (s *CastingService) RespondInvitation(ctx context.Context, invitationID uint, status string) (*models.Invitation, error) {
	if status != "accepted" && status != "declined" {
		return nil, fmt.Errorf("%w: invitation response must be accepted or declined", ErrInvalidRequest)
	}

	var invitation models.Invitation
	err := s.db.WithContext(ctx).
		Preload("Casting").Preload("Casting.Client").Preload("Creator").
		First(&invitation, invitationID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invitation %d not found", invitationID)
		}
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if invitation.Status != "pending" {
		return nil, fmt.Errorf("%w: invitation already %s", ErrInvalidRequest, invitation.Status)
	}

	now := time.Now()
	invitation.Status = status
	invitation.RespondedAt = &now
	invitation.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&invitation).Error; err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	trigger := TriggerInvitationAccepted
	if status == "declined" {
		trigger = TriggerInvitationDeclined
	}
	s.fireTrigger(trigger, s.invitationParams(&invitation))
	return &invitation, nil
}

// RegisterCreator onboards a new creator and fires creator_signed_up.
func (s *CastingService) RegisterCreator(ctx context.Context, req *CreatorSignupRequest) (*models.Creator, error) {
	creator := &models.Creator{
		Name:       req.Name,
		Email:      req.Email,
		Handle:     req.Handle,
		Categories: req.Categories,
		Followers:  req.Followers,
		Status:     "pending",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(creator).Error; err != nil {
		return nil, fmt.Errorf("create creator: %w", err)
	}

	s.fireTrigger(TriggerCreatorSignedUp, map[string]interface{}{
		"creator": map[string]interface{}{
			"id":         creator.ID,
			"name":       creator.Name,
			"email":      creator.Email,
			"handle":     creator.Handle,
			"categories": creator.Categories,
			"followers":  creator.Followers,
			"status":     creator.Status,
		},
	})
	return creator, nil
}

// ListCastings pages through castings, newest first.
func (s *CastingService) ListCastings(ctx context.Context, req *CastingListRequest) ([]models.Casting, int64, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Casting{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ClientID != 0 {
		query = query.Where("client_id = ?", req.ClientID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var castings []models.Casting
	err := query.Preload("Client").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&castings).Error
	if err != nil {
		return nil, 0, err
	}
	return castings, total, nil
}

// GetCasting loads one casting with its client and invitations.
func (s *CastingService) GetCasting(ctx context.Context, id uint) (*models.Casting, error) {
	var casting models.Casting
	err := s.db.WithContext(ctx).
		Preload("Client").
		Preload("Invitations").Preload("Invitations.Creator").
		First(&casting, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("casting %d not found", id)
		}
		return nil, err
	}
	return &casting, nil
}

// EventParams rebuilds the parameter bag a casting trigger would carry, for
// test runs against live data.
func (s *CastingService) EventParams(ctx context.Context, castingID uint) (map[string]interface{}, error) {
	casting, err := s.GetCasting(ctx, castingID)
	if err != nil {
		return nil, err
	}
	return s.castingParams(casting), nil
}

// castingParams builds the event parameter bag for casting triggers.
func (s *CastingService) castingParams(casting *models.Casting) map[string]interface{} {
	params := map[string]interface{}{
		"casting": map[string]interface{}{
			"id":        casting.ID,
			"public_id": casting.PublicID,
			"title":     casting.Title,
			"brief":     casting.Brief,
			"category":  casting.Category,
			"budget":    casting.Budget,
			"location":  casting.Location,
			"status":    casting.Status,
		},
	}
	if casting.Client.ID != 0 {
		params["client"] = map[string]interface{}{
			"id":      casting.Client.ID,
			"name":    casting.Client.Name,
			"company": casting.Client.Company,
			"email":   casting.Client.Email,
		}
	}
	return params
}

func (s *CastingService) invitationParams(invitation *models.Invitation) map[string]interface{} {
	params := s.castingParams(&invitation.Casting)
	params["invitation"] = map[string]interface{}{
		"id":      invitation.ID,
		"status":  invitation.Status,
		"message": invitation.Message,
	}
	params["creator"] = map[string]interface{}{
		"id":        invitation.Creator.ID,
		"name":      invitation.Creator.Name,
		"email":     invitation.Creator.Email,
		"handle":    invitation.Creator.Handle,
		"followers": invitation.Creator.Followers,
	}
	return params
}

// fireTrigger runs the engine asynchronously so delivery latency never
// blocks the business transaction.
func (s *CastingService) fireTrigger(name string, params map[string]interface{}) {
	if s.automation == nil {
		return
	}
	go func() {
		if err := s.automation.Trigger(context.Background(), name, params, TriggerOptions{ExecutedBy: "system"}); err != nil {
			s.logger.Errorf("automation trigger %s failed: %v", name, err)
		}
	}()
}
