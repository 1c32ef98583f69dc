package services

import (
	"context"
	"fmt"
	"time"

	"castflow/internal/metrics"
	"castflow/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TriggerOptions controls one engine invocation. Test runs exercise the full
// matching/dispatch/logging path but suppress real delivery.
type TriggerOptions struct {
	IsTest     bool
	ExecutedBy string
}

// EngineOptions bounds an invocation. Zero values fall back to defaults.
type EngineOptions struct {
	InvocationTimeout time.Duration
	ActionTimeout     time.Duration
	MaxLogLimit       int
}

const (
	defaultInvocationTimeout = 30 * time.Second
	defaultActionTimeout     = 10 * time.Second
	defaultLogLimit          = 50
	maxLogLimitCap           = 100
)

// LogSink receives every appended execution log, e.g. for live streaming.
type LogSink interface {
	PublishLog(models.AutomationLog)
}

// AutomationService is the rule engine: it owns rule/action management,
// trigger evaluation, action dispatch and the execution log.
type AutomationService struct {
	db        *gorm.DB
	logger    *logrus.Logger
	catalog   *TriggerCatalog
	executors map[string]ActionExecutor
	opts      EngineOptions
	sink      LogSink
}

func NewAutomationService(db *gorm.DB, logger *logrus.Logger, executors []ActionExecutor, opts EngineOptions) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.InvocationTimeout <= 0 {
		opts.InvocationTimeout = defaultInvocationTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	if opts.MaxLogLimit <= 0 || opts.MaxLogLimit > maxLogLimitCap {
		opts.MaxLogLimit = maxLogLimitCap
	}
	byType := make(map[string]ActionExecutor, len(executors))
	for _, ex := range executors {
		byType[ex.Type()] = ex
	}
	return &AutomationService{
		db:        db,
		logger:    logger,
		catalog:   NewTriggerCatalog(),
		executors: byType,
		opts:      opts,
	}
}

// SetLogSink attaches an optional live subscriber for execution logs.
func (s *AutomationService) SetLogSink(sink LogSink) {
	s.sink = sink
}

// Catalog exposes the static trigger registry.
func (s *AutomationService) Catalog() *TriggerCatalog {
	return s.catalog
}

// Trigger runs every enabled rule of the named trigger against the event
// parameters. Failures inside the loop are contained to one action or one
// rule and recorded in the log; only an unknown trigger or a store failure
// aborts the invocation.
func (s *AutomationService) Trigger(ctx context.Context, triggerName string, params map[string]interface{}, opts TriggerOptions) error {
	_, err := s.run(ctx, triggerName, params, opts)
	return err
}

// TestRunResult reports a test invocation back to the operator: the
// parameters the engine saw and whether every dispatched action succeeded.
type TestRunResult struct {
	RunID      string                 `json:"run_id"`
	Trigger    string                 `json:"trigger"`
	Parameters map[string]interface{} `json:"parameters"`
	Success    bool                   `json:"success"`
	Matched    int                    `json:"rules_matched"`
	Skipped    int                    `json:"rules_skipped"`
}

// TestRun exercises the trigger in test mode. Individual action failures do
// not fail the run; they only clear the success flag.
func (s *AutomationService) TestRun(ctx context.Context, triggerName string, params map[string]interface{}, executedBy string) (*TestRunResult, error) {
	summary, err := s.run(ctx, triggerName, params, TriggerOptions{IsTest: true, ExecutedBy: executedBy})
	if err != nil {
		return nil, err
	}
	return &TestRunResult{
		RunID:      summary.runID,
		Trigger:    triggerName,
		Parameters: params,
		Success:    summary.actionsFailed == 0,
		Matched:    summary.rulesMatched,
		Skipped:    summary.rulesSkipped,
	}, nil
}

type runSummary struct {
	runID         string
	rulesMatched  int
	rulesSkipped  int
	actionsFailed int
}

func (s *AutomationService) run(ctx context.Context, triggerName string, params map[string]interface{}, opts TriggerOptions) (*runSummary, error) {
	if _, ok := s.catalog.Lookup(triggerName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, triggerName)
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	metrics.IncTriggerFired()

	ctx, cancel := context.WithTimeout(ctx, s.opts.InvocationTimeout)
	defer cancel()

	rules, err := s.rulesFor(ctx, triggerName)
	if err != nil {
		return nil, fmt.Errorf("load rules for %s: %w", triggerName, err)
	}

	summary := &runSummary{runID: uuid.NewString()}
	s.logger.Debugf("automation: trigger %s run %s, %d rule(s)", triggerName, summary.runID, len(rules))

	for i := range rules {
		rule := rules[i]

		// Once the invocation deadline passes, the remaining rules are
		// recorded as skipped instead of silently dropped.
		if ctx.Err() != nil {
			summary.rulesSkipped++
			if err := s.appendLog(triggerName, &rule.ID, models.LogStatusSkipped, opts, models.JSONMap{
				"run_id":    summary.runID,
				"rule_name": rule.Name,
				"reason":    "timeout",
			}); err != nil {
				return summary, err
			}
			continue
		}

		matched, warnings := EvaluateConditions(rule.Conditions, params)
		metrics.IncRuleEvaluated(matched)
		if !matched {
			summary.rulesSkipped++
			details := models.JSONMap{
				"run_id":    summary.runID,
				"rule_name": rule.Name,
				"matched":   false,
			}
			if len(warnings) > 0 {
				details["warnings"] = warnings
			}
			if err := s.appendLog(triggerName, &rule.ID, models.LogStatusSkipped, opts, details); err != nil {
				return summary, err
			}
			continue
		}

		summary.rulesMatched++
		failed, err := s.dispatchActions(ctx, rule, params, opts, summary.runID)
		if err != nil {
			return summary, err
		}
		summary.actionsFailed += failed

		ruleStatus := models.LogStatusSuccess
		if failed > 0 {
			ruleStatus = models.LogStatusError
		}
		details := models.JSONMap{
			"run_id":         summary.runID,
			"rule_name":      rule.Name,
			"matched":        true,
			"actions_failed": failed,
		}
		if len(warnings) > 0 {
			details["warnings"] = warnings
		}
		if err := s.appendLog(triggerName, &rule.ID, ruleStatus, opts, details); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// dispatchActions runs the rule's enabled actions in execution order. One
// action's failure never prevents the next from running; the count of
// failures is returned for the rule summary.
func (s *AutomationService) dispatchActions(ctx context.Context, rule models.AutomationRule, params map[string]interface{}, opts TriggerOptions, runID string) (int, error) {
	failed := 0
	for _, action := range rule.Actions {
		if !action.Enabled {
			continue
		}

		details := models.JSONMap{
			"run_id":          runID,
			"rule_name":       rule.Name,
			"action_id":       action.ID,
			"action_name":     action.Name,
			"action_type":     action.Type,
			"execution_order": action.ExecutionOrder,
		}

		outcome, execErr := s.executeAction(ctx, action, params, opts.IsTest)
		status := models.LogStatusSuccess
		if execErr != nil {
			status = models.LogStatusError
			details["error"] = execErr.Error()
			failed++
			s.logger.Warnf("automation: rule %q action %q failed: %v", rule.Name, action.Name, execErr)
		}
		if outcome.Detail != "" {
			details["detail"] = outcome.Detail
		}
		if outcome.Target != "" {
			details["target"] = outcome.Target
		}
		if outcome.WouldSend {
			details["would_send"] = true
		}
		if len(outcome.Warnings) > 0 {
			details["warnings"] = outcome.Warnings
		}
		metrics.IncActionRun(execErr == nil)

		if err := s.appendLog(rule.TriggerName, &rule.ID, status, opts, details); err != nil {
			return failed, err
		}
	}
	return failed, nil
}

// executeAction resolves the executor and runs it under the per-action
// timeout. A panicking executor is contained and reported as a failure.
func (s *AutomationService) executeAction(ctx context.Context, action models.AutomationAction, params map[string]interface{}, testMode bool) (outcome ActionOutcome, err error) {
	executor, ok := s.executors[action.Type]
	if !ok {
		return ActionOutcome{}, fmt.Errorf("unknown action type %q", action.Type)
	}

	actionCtx, cancel := context.WithTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action executor panic: %v", r)
		}
	}()
	return executor.Execute(actionCtx, action.Configuration, params, testMode)
}

// rulesFor loads the enabled rules of a trigger in execution order, ties
// broken by creation order. Actions are preloaded in their own order.
func (s *AutomationService) rulesFor(ctx context.Context, triggerName string) ([]models.AutomationRule, error) {
	var rules []models.AutomationRule
	err := s.db.WithContext(ctx).
		Where("trigger_name = ? AND enabled = ?", triggerName, true).
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

// appendLog writes one immutable execution record. The write completes
// before the invocation returns so operators can read logs right after a
// test run.
func (s *AutomationService) appendLog(triggerName string, ruleID *uint, status string, opts TriggerOptions, details models.JSONMap) error {
	entry := models.AutomationLog{
		TriggerName: triggerName,
		RuleID:      ruleID,
		Status:      status,
		IsTest:      opts.IsTest,
		ExecutedBy:  opts.ExecutedBy,
		Details:     details,
		ExecutedAt:  time.Now(),
	}
	// Log writes use the base DB handle: an invocation past its deadline
	// must still record its skipped entries.
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("append automation log: %w", err)
	}
	if s.sink != nil {
		s.sink.PublishLog(entry)
	}
	return nil
}
