package services

import (
	"context"
	"fmt"
	"time"

	"castflow/internal/models"

	"gorm.io/gorm"
)

// RuleCreateRequest creates a rule under a trigger. Omitted conditions
// default to an empty "all" group, so the rule matches every event.
type RuleCreateRequest struct {
	Name           string                 `json:"name" binding:"required"`
	Description    string                 `json:"description"`
	Conditions     *models.ConditionGroup `json:"conditions"`
	ExecutionOrder *int                   `json:"execution_order"`
	Enabled        *bool                  `json:"enabled"`
}

type RuleUpdateRequest struct {
	Name           *string                `json:"name"`
	Description    *string                `json:"description"`
	Conditions     *models.ConditionGroup `json:"conditions"`
	ExecutionOrder *int                   `json:"execution_order"`
	Enabled        *bool                  `json:"enabled"`
}

type ActionCreateRequest struct {
	Name           string                     `json:"name" binding:"required"`
	Type           string                     `json:"type" binding:"required"`
	Configuration  models.ActionConfiguration `json:"configuration"`
	ExecutionOrder *int                       `json:"execution_order"`
	Enabled        *bool                      `json:"enabled"`
}

type ActionUpdateRequest struct {
	Name           *string                     `json:"name"`
	Type           *string                     `json:"type"`
	Configuration  *models.ActionConfiguration `json:"configuration"`
	ExecutionOrder *int                        `json:"execution_order"`
	Enabled        *bool                       `json:"enabled"`
}

// RuleOrderItem is one entry of a bulk reorder.
type RuleOrderItem struct {
	ID    uint `json:"id" binding:"required"`
	Order int  `json:"order"`
}

// LogListRequest filters the execution log. Limit is clamped to the engine's
// configured maximum.
type LogListRequest struct {
	TriggerName string `form:"trigger_name"`
	RuleID      uint   `form:"rule_id"`
	Status      string `form:"status"`
	Limit       int    `form:"limit"`
}

// ListRules returns all rules of a trigger (enabled or not) with their
// actions, in execution order.
func (s *AutomationService) ListRules(ctx context.Context, triggerName string) ([]models.AutomationRule, error) {
	if _, ok := s.catalog.Lookup(triggerName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerName)
	}
	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("trigger_name = ?", triggerName).
		Order("execution_order ASC, id ASC").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("execution_order ASC, id ASC")
		}).
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// CreateRule adds a rule to a known trigger. When no execution order is
// given the rule is appended after the trigger's current rules.
func (s *AutomationService) CreateRule(ctx context.Context, triggerName string, req *RuleCreateRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request required", ErrInvalidRequest)
	}
	if _, ok := s.catalog.Lookup(triggerName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerName)
	}

	conditions := models.EmptyAllGroup()
	if req.Conditions != nil && !req.Conditions.IsZero() {
		conditions = *req.Conditions
	}

	order := 0
	if req.ExecutionOrder != nil {
		order = *req.ExecutionOrder
	} else {
		var maxOrder *int
		row := s.db.WithContext(ctx).Model(&models.AutomationRule{}).
			Where("trigger_name = ?", triggerName).
			Select("MAX(execution_order)").Row()
		if err := row.Scan(&maxOrder); err == nil && maxOrder != nil {
			order = *maxOrder + 1
		}
	}

	rule := &models.AutomationRule{
		TriggerName:    triggerName,
		Name:           req.Name,
		Description:    req.Description,
		Conditions:     conditions,
		ExecutionOrder: order,
		Enabled:        req.Enabled == nil || *req.Enabled,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return rule, nil
}

// UpdateRule applies a partial update.
func (s *AutomationService) UpdateRule(ctx context.Context, id uint, req *RuleUpdateRequest) (*models.AutomationRule, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request required", ErrInvalidRequest)
	}
	var rule models.AutomationRule
	if err := s.db.WithContext(ctx).First(&rule, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("load rule: %w", err)
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.Conditions != nil {
		if req.Conditions.IsZero() {
			rule.Conditions = models.EmptyAllGroup()
		} else {
			rule.Conditions = *req.Conditions
		}
	}
	if req.ExecutionOrder != nil {
		rule.ExecutionOrder = *req.ExecutionOrder
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	rule.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&rule).Error; err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return &rule, nil
}

// DeleteRule removes the rule and its actions. Historical logs keep their
// rule_id reference for audit.
func (s *AutomationService) DeleteRule(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).Delete(&models.AutomationAction{}).Error; err != nil {
			return fmt.Errorf("delete rule actions: %w", err)
		}
		result := tx.Delete(&models.AutomationRule{}, id)
		if result.Error != nil {
			return fmt.Errorf("delete rule: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrRuleNotFound
		}
		return nil
	})
}

// ReorderRules applies a bulk order change in a single transaction so a
// half-applied reorder can never be observed.
func (s *AutomationService) ReorderRules(ctx context.Context, triggerName string, items []RuleOrderItem) error {
	if _, ok := s.catalog.Lookup(triggerName); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerName)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: empty reorder list", ErrInvalidRequest)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			result := tx.Model(&models.AutomationRule{}).
				Where("id = ? AND trigger_name = ?", item.ID, triggerName).
				Updates(map[string]interface{}{
					"execution_order": item.Order,
					"updated_at":      time.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("reorder rule %d: %w", item.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: id %d not under trigger %s", ErrRuleNotFound, item.ID, triggerName)
			}
		}
		return nil
	})
}

// ListActions returns a rule's actions in execution order.
func (s *AutomationService) ListActions(ctx context.Context, ruleID uint) ([]models.AutomationAction, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.AutomationRule{}).Where("id = ?", ruleID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrRuleNotFound
	}
	var actions []models.AutomationAction
	err := s.db.WithContext(ctx).
		Where("rule_id = ?", ruleID).
		Order("execution_order ASC, id ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// CreateAction attaches an action to an existing rule. The type must be one
// of the closed executor set.
func (s *AutomationService) CreateAction(ctx context.Context, ruleID uint, req *ActionCreateRequest) (*models.AutomationAction, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request required", ErrInvalidRequest)
	}
	if !validActionType(req.Type) {
		return nil, fmt.Errorf("%w: unsupported action type %q", ErrInvalidRequest, req.Type)
	}
	var rule models.AutomationRule
	if err := s.db.WithContext(ctx).First(&rule, ruleID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("load rule: %w", err)
	}

	order := 0
	if req.ExecutionOrder != nil {
		order = *req.ExecutionOrder
	} else {
		var maxOrder *int
		row := s.db.WithContext(ctx).Model(&models.AutomationAction{}).
			Where("rule_id = ?", ruleID).
			Select("MAX(execution_order)").Row()
		if err := row.Scan(&maxOrder); err == nil && maxOrder != nil {
			order = *maxOrder + 1
		}
	}

	action := &models.AutomationAction{
		RuleID:         ruleID,
		Name:           req.Name,
		Type:           req.Type,
		Configuration:  req.Configuration,
		ExecutionOrder: order,
		Enabled:        req.Enabled == nil || *req.Enabled,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(action).Error; err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	return action, nil
}

// UpdateAction applies a partial update.
func (s *AutomationService) UpdateAction(ctx context.Context, id uint, req *ActionUpdateRequest) (*models.AutomationAction, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request required", ErrInvalidRequest)
	}
	var action models.AutomationAction
	if err := s.db.WithContext(ctx).First(&action, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("load action: %w", err)
	}

	if req.Type != nil {
		if !validActionType(*req.Type) {
			return nil, fmt.Errorf("%w: unsupported action type %q", ErrInvalidRequest, *req.Type)
		}
		action.Type = *req.Type
	}
	if req.Name != nil {
		action.Name = *req.Name
	}
	if req.Configuration != nil {
		action.Configuration = *req.Configuration
	}
	if req.ExecutionOrder != nil {
		action.ExecutionOrder = *req.ExecutionOrder
	}
	if req.Enabled != nil {
		action.Enabled = *req.Enabled
	}
	action.UpdatedAt = time.Now()

	if err := s.db.WithContext(ctx).Save(&action).Error; err != nil {
		return nil, fmt.Errorf("update action: %w", err)
	}
	return &action, nil
}

// DeleteAction removes one action.
func (s *AutomationService) DeleteAction(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.AutomationAction{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete action: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrActionNotFound
	}
	return nil
}

// ListLogs queries the execution log, newest first.
func (s *AutomationService) ListLogs(ctx context.Context, req *LogListRequest) ([]models.AutomationLog, error) {
	limit := defaultLogLimit
	if req != nil && req.Limit > 0 {
		limit = req.Limit
	}
	if limit > s.opts.MaxLogLimit {
		limit = s.opts.MaxLogLimit
	}

	query := s.db.WithContext(ctx).Model(&models.AutomationLog{})
	if req != nil {
		if req.TriggerName != "" {
			query = query.Where("trigger_name = ?", req.TriggerName)
		}
		if req.RuleID != 0 {
			query = query.Where("rule_id = ?", req.RuleID)
		}
		if req.Status != "" {
			query = query.Where("status = ?", req.Status)
		}
	}

	var logs []models.AutomationLog
	err := query.Order("executed_at DESC, id DESC").Limit(limit).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	return logs, nil
}

func validActionType(t string) bool {
	switch t {
	case models.ActionSlackNotification, models.ActionEmail, models.ActionWebhook:
		return true
	default:
		return false
	}
}
