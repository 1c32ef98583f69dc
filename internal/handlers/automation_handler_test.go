package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"castflow/internal/models"
	"castflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDBForAutomation(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:automation_" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.AutomationRule{}, &models.AutomationAction{}, &models.AutomationLog{},
		&models.ClientAccount{}, &models.Creator{}, &models.Casting{}, &models.Invitation{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// noopExecutor satisfies the closed action type set without side effects.
type noopExecutor struct{ typ string }

func (e noopExecutor) Type() string { return e.typ }
func (e noopExecutor) Execute(ctx context.Context, cfg models.ActionConfiguration, params map[string]interface{}, testMode bool) (services.ActionOutcome, error) {
	return services.ActionOutcome{Detail: "noop", WouldSend: testMode}, nil
}

func newAutomationRouter(t *testing.T) (*gin.Engine, *gorm.DB, *services.AutomationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDBForAutomation(t)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	executors := []services.ActionExecutor{
		noopExecutor{typ: models.ActionSlackNotification},
		noopExecutor{typ: models.ActionEmail},
		noopExecutor{typ: models.ActionWebhook},
	}
	svc := services.NewAutomationService(db, logger, executors, services.EngineOptions{})
	casting := services.NewCastingService(db, logger)
	h := NewAutomationHandler(svc, casting)

	r := gin.New()
	api := r.Group("/api")
	RegisterAutomationRoutes(api, h)
	return r, db, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAutomationHandler_ListTriggers(t *testing.T) {
	r, _, _ := newAutomationRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/automation/triggers", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var triggers []services.Trigger
	if err := json.Unmarshal(w.Body.Bytes(), &triggers); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(triggers) != 8 {
		t.Errorf("expected 8 triggers, got %d", len(triggers))
	}
	if triggers[0].Name != services.TriggerCastingCreated {
		t.Errorf("first trigger = %s", triggers[0].Name)
	}
}

func TestAutomationHandler_RuleLifecycle(t *testing.T) {
	r, _, _ := newAutomationRouter(t)

	// create
	w := doJSON(t, r, http.MethodPost, "/api/automation/triggers/casting_created/rules", map[string]interface{}{
		"name": "big budget alert",
		"conditions": map[string]interface{}{
			"all": []map[string]interface{}{
				{"field": "casting.budget", "operator": "greater_than", "value": 5000},
			},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var rule models.AutomationRule
	if err := json.Unmarshal(w.Body.Bytes(), &rule); err != nil {
		t.Fatalf("unmarshal rule: %v", err)
	}
	if rule.ID == 0 || rule.Name != "big budget alert" {
		t.Fatalf("rule = %+v", rule)
	}

	// list
	w = doJSON(t, r, http.MethodGet, "/api/automation/triggers/casting_created/rules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d", w.Code)
	}
	var rules []models.AutomationRule
	if err := json.Unmarshal(w.Body.Bytes(), &rules); err != nil {
		t.Fatalf("unmarshal rules: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}

	// update
	idPath := "/api/automation/rules/" + strconv.Itoa(int(rule.ID))
	w = doJSON(t, r, http.MethodPut, idPath, map[string]interface{}{"enabled": false})
	if w.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", w.Code, w.Body.String())
	}
	var updated models.AutomationRule
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Enabled {
		t.Error("rule should be disabled after update")
	}

	// delete
	w = doJSON(t, r, http.MethodDelete, idPath, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status=%d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, idPath, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", w.Code)
	}
}

func TestAutomationHandler_UnknownTriggerIs404(t *testing.T) {
	r, _, _ := newAutomationRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/automation/triggers/ticket_created/rules", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("list status=%d, want 404", w.Code)
	}
	w = doJSON(t, r, http.MethodPost, "/api/automation/triggers/ticket_created/rules", map[string]interface{}{"name": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("create status=%d, want 404", w.Code)
	}
}

func TestAutomationHandler_CreateRuleValidation(t *testing.T) {
	r, _, _ := newAutomationRouter(t)

	// name is required
	w := doJSON(t, r, http.MethodPost, "/api/automation/triggers/casting_created/rules", map[string]interface{}{
		"description": "anonymous",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}
}

func TestAutomationHandler_ActionLifecycle(t *testing.T) {
	r, _, svc := newAutomationRouter(t)

	rule, err := svc.CreateRule(context.Background(), services.TriggerCastingApproved, &services.RuleCreateRequest{Name: "r"})
	if err != nil {
		t.Fatalf("seed rule: %v", err)
	}
	actionsPath := "/api/automation/rules/" + strconv.Itoa(int(rule.ID)) + "/actions"

	w := doJSON(t, r, http.MethodPost, actionsPath, map[string]interface{}{
		"name": "ping channel",
		"type": models.ActionSlackNotification,
		"configuration": map[string]interface{}{
			"channel": "#castings",
			"message": "Approved: {{casting.title}}",
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create action status=%d body=%s", w.Code, w.Body.String())
	}
	var action models.AutomationAction
	json.Unmarshal(w.Body.Bytes(), &action)
	if action.Configuration.Channel != "#castings" {
		t.Errorf("configuration = %+v", action.Configuration)
	}

	// reject a type outside the closed set
	w = doJSON(t, r, http.MethodPost, actionsPath, map[string]interface{}{
		"name": "x", "type": "carrier_pigeon",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type status=%d, want 400", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, actionsPath, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list actions status=%d", w.Code)
	}
	var actions []models.AutomationAction
	json.Unmarshal(w.Body.Bytes(), &actions)
	if len(actions) != 1 {
		t.Fatalf("expected 1 action, got %d", len(actions))
	}

	actionPath := "/api/automation/actions/" + strconv.Itoa(int(action.ID))
	w = doJSON(t, r, http.MethodPut, actionPath, map[string]interface{}{"name": "renamed"})
	if w.Code != http.StatusOK {
		t.Fatalf("update action status=%d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, actionPath, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete action status=%d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, actionPath, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status=%d, want 404", w.Code)
	}
}

func TestAutomationHandler_Reorder(t *testing.T) {
	r, _, svc := newAutomationRouter(t)
	ctx := context.Background()

	a, _ := svc.CreateRule(ctx, services.TriggerCastingCreated, &services.RuleCreateRequest{Name: "a"})
	b, _ := svc.CreateRule(ctx, services.TriggerCastingCreated, &services.RuleCreateRequest{Name: "b"})

	w := doJSON(t, r, http.MethodPut, "/api/automation/triggers/casting_created/rules/order", []map[string]interface{}{
		{"id": a.ID, "order": 2},
		{"id": b.ID, "order": 1},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder status=%d body=%s", w.Code, w.Body.String())
	}

	rules, err := svc.ListRules(ctx, services.TriggerCastingCreated)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if rules[0].Name != "b" || rules[1].Name != "a" {
		t.Errorf("order after reorder: %s, %s", rules[0].Name, rules[1].Name)
	}

	// a rule id of a different trigger fails the batch
	foreign, _ := svc.CreateRule(ctx, services.TriggerCastingApproved, &services.RuleCreateRequest{Name: "f"})
	w = doJSON(t, r, http.MethodPut, "/api/automation/triggers/casting_created/rules/order", []map[string]interface{}{
		{"id": foreign.ID, "order": 0},
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("cross-trigger reorder status=%d, want 404", w.Code)
	}
}

func TestAutomationHandler_TestRunInlineParams(t *testing.T) {
	r, db, svc := newAutomationRouter(t)
	ctx := context.Background()

	rule, _ := svc.CreateRule(ctx, services.TriggerCastingCreated, &services.RuleCreateRequest{Name: "r"})
	if _, err := svc.CreateAction(ctx, rule.ID, &services.ActionCreateRequest{
		Name: "notify", Type: models.ActionSlackNotification,
		Configuration: models.ActionConfiguration{Channel: "#c", Message: "m"},
	}); err != nil {
		t.Fatalf("seed action: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/automation/triggers/casting_created/test", map[string]interface{}{
		"parameters": map[string]interface{}{
			"casting": map[string]interface{}{"title": "Test"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("test run status=%d body=%s", w.Code, w.Body.String())
	}
	var result services.TestRunResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if !result.Success || result.Matched != 1 {
		t.Errorf("result = %+v", result)
	}

	// test runs are logged and flagged
	var logs []models.AutomationLog
	if err := db.Find(&logs).Error; err != nil {
		t.Fatalf("load logs: %v", err)
	}
	if len(logs) == 0 {
		t.Fatal("test run should write logs")
	}
	for _, l := range logs {
		if !l.IsTest {
			t.Error("test run log missing is_test")
		}
	}
}

func TestAutomationHandler_TestRunDerivedParams(t *testing.T) {
	r, db, svc := newAutomationRouter(t)
	ctx := context.Background()

	client := &models.ClientAccount{Name: "Nova", Email: "ops@nova.example"}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	casting := &models.Casting{PublicID: "p", ClientID: client.ID, Title: "Winter drop", Budget: 9000, Status: "draft"}
	if err := db.Create(casting).Error; err != nil {
		t.Fatalf("seed casting: %v", err)
	}

	rule, _ := svc.CreateRule(ctx, services.TriggerCastingCreated, &services.RuleCreateRequest{
		Name: "big budget",
		Conditions: &models.ConditionGroup{
			Mode:  models.GroupAll,
			Nodes: []models.ConditionNode{{Cond: &models.Condition{Field: "casting.budget", Operator: models.OpGreaterThan, Value: 5000}}},
		},
	})
	if rule == nil {
		t.Fatal("seed rule failed")
	}

	w := doJSON(t, r, http.MethodPost, "/api/automation/triggers/casting_created/test", map[string]interface{}{
		"casting_id": casting.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("test run status=%d body=%s", w.Code, w.Body.String())
	}
	var result services.TestRunResult
	json.Unmarshal(w.Body.Bytes(), &result)
	if result.Matched != 1 {
		t.Errorf("derived params should match the budget condition: %+v", result)
	}

	// unknown casting id
	w = doJSON(t, r, http.MethodPost, "/api/automation/triggers/casting_created/test", map[string]interface{}{
		"casting_id": 9999,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing casting status=%d, want 400", w.Code)
	}
}

func TestAutomationHandler_ListLogs(t *testing.T) {
	r, _, svc := newAutomationRouter(t)
	ctx := context.Background()

	rule, _ := svc.CreateRule(ctx, services.TriggerCastingCreated, &services.RuleCreateRequest{Name: "r"})
	if rule == nil {
		t.Fatal("seed rule failed")
	}
	if _, err := svc.TestRun(ctx, services.TriggerCastingCreated, nil, "ops"); err != nil {
		t.Fatalf("TestRun: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/api/automation/logs?trigger_name=casting_created", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d body=%s", w.Code, w.Body.String())
	}
	var logs []models.AutomationLog
	if err := json.Unmarshal(w.Body.Bytes(), &logs); err != nil {
		t.Fatalf("unmarshal logs: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("expected 1 log, got %d", len(logs))
	}

	w = doJSON(t, r, http.MethodGet, "/api/automation/logs?trigger_name=creator_signed_up", nil)
	json.Unmarshal(w.Body.Bytes(), &logs)
	if len(logs) != 0 {
		t.Errorf("filter leak: %d logs", len(logs))
	}
}

func TestAutomationHandler_InvalidID(t *testing.T) {
	r, _, _ := newAutomationRouter(t)

	w := doJSON(t, r, http.MethodPut, "/api/automation/rules/not-a-number", map[string]interface{}{"name": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}
}
