package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"castflow/internal/models"
	"castflow/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newCastingRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDBForAutomation(t)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	// no automation service wired: transitions fire nothing, which keeps
	// these tests synchronous
	svc := services.NewCastingService(db, logger)
	h := NewCastingHandler(svc)

	r := gin.New()
	api := r.Group("/api")
	RegisterCastingRoutes(api, h)
	return r, db
}

func seedTestClient(t *testing.T, db *gorm.DB) *models.ClientAccount {
	t.Helper()
	client := &models.ClientAccount{Name: "Nova", Company: "Nova Agency", Email: "ops@nova.example"}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func TestCastingHandler_CreateAndGet(t *testing.T) {
	r, db := newCastingRouter(t)
	client := seedTestClient(t, db)

	w := doJSON(t, r, http.MethodPost, "/api/castings", map[string]interface{}{
		"client_id": client.ID,
		"title":     "Spring lookbook",
		"budget":    7500,
		"location":  "Lisbon",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", w.Code, w.Body.String())
	}
	var casting models.Casting
	if err := json.Unmarshal(w.Body.Bytes(), &casting); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if casting.Status != "draft" || casting.PublicID == "" {
		t.Errorf("casting = %+v", casting)
	}

	w = doJSON(t, r, http.MethodGet, "/api/castings/"+strconv.Itoa(int(casting.ID)), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
	var loaded models.Casting
	json.Unmarshal(w.Body.Bytes(), &loaded)
	if loaded.Client.Email != "ops@nova.example" {
		t.Errorf("client not preloaded: %+v", loaded.Client)
	}

	w = doJSON(t, r, http.MethodGet, "/api/castings/9999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing casting status=%d, want 404", w.Code)
	}
}

func TestCastingHandler_CreateValidation(t *testing.T) {
	r, _ := newCastingRouter(t)

	// client_id and title are required
	w := doJSON(t, r, http.MethodPost, "/api/castings", map[string]interface{}{"brief": "no title"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", w.Code)
	}

	// unknown client
	w = doJSON(t, r, http.MethodPost, "/api/castings", map[string]interface{}{
		"client_id": 9999, "title": "x",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown client status=%d, want 400", w.Code)
	}
}

func TestCastingHandler_ListPagination(t *testing.T) {
	r, db := newCastingRouter(t)
	client := seedTestClient(t, db)

	for i := 0; i < 3; i++ {
		casting := &models.Casting{PublicID: "p-" + strconv.Itoa(i), ClientID: client.ID, Title: "c", Status: "draft"}
		if err := db.Create(casting).Error; err != nil {
			t.Fatalf("seed casting: %v", err)
		}
	}

	w := doJSON(t, r, http.MethodGet, "/api/castings?page=1&page_size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	var page PaginatedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal page: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || page.PageSize != 2 {
		t.Errorf("page = %+v", page)
	}
}

func TestCastingHandler_StatusTransition(t *testing.T) {
	r, db := newCastingRouter(t)
	client := seedTestClient(t, db)
	casting := &models.Casting{PublicID: "p", ClientID: client.ID, Title: "c", Status: "draft"}
	if err := db.Create(casting).Error; err != nil {
		t.Fatalf("seed casting: %v", err)
	}
	path := "/api/castings/" + strconv.Itoa(int(casting.ID)) + "/status"

	w := doJSON(t, r, http.MethodPut, path, map[string]interface{}{"status": "approved"})
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var updated models.Casting
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated.Status != "approved" {
		t.Errorf("status = %s", updated.Status)
	}

	w = doJSON(t, r, http.MethodPut, path, map[string]interface{}{"status": "archived"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status code=%d, want 400", w.Code)
	}
}

func TestCastingHandler_InvitationFlow(t *testing.T) {
	r, db := newCastingRouter(t)
	client := seedTestClient(t, db)
	casting := &models.Casting{PublicID: "p", ClientID: client.ID, Title: "c", Status: "approved"}
	if err := db.Create(casting).Error; err != nil {
		t.Fatalf("seed casting: %v", err)
	}
	creator := &models.Creator{Name: "Mika", Email: "mika@example.com", Status: "active"}
	if err := db.Create(creator).Error; err != nil {
		t.Fatalf("seed creator: %v", err)
	}

	w := doJSON(t, r, http.MethodPost, "/api/castings/"+strconv.Itoa(int(casting.ID))+"/invitations", map[string]interface{}{
		"creator_id": creator.ID,
		"message":    "fits your profile",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("invite status=%d body=%s", w.Code, w.Body.String())
	}
	var invitation models.Invitation
	json.Unmarshal(w.Body.Bytes(), &invitation)
	if invitation.Status != "pending" {
		t.Errorf("invitation status = %s", invitation.Status)
	}

	respPath := "/api/invitations/" + strconv.Itoa(int(invitation.ID)) + "/response"
	w = doJSON(t, r, http.MethodPut, respPath, map[string]interface{}{"status": "accepted"})
	if w.Code != http.StatusOK {
		t.Fatalf("respond status=%d body=%s", w.Code, w.Body.String())
	}

	// second response is rejected
	w = doJSON(t, r, http.MethodPut, respPath, map[string]interface{}{"status": "declined"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("second response status=%d, want 400", w.Code)
	}
}

func TestCastingHandler_RegisterCreator(t *testing.T) {
	r, _ := newCastingRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/creators", map[string]interface{}{
		"name":  "Lena",
		"email": "lena@example.com",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", w.Code, w.Body.String())
	}
	var creator models.Creator
	json.Unmarshal(w.Body.Bytes(), &creator)
	if creator.Status != "pending" {
		t.Errorf("creator status = %s", creator.Status)
	}

	// email format is validated
	w = doJSON(t, r, http.MethodPost, "/api/creators", map[string]interface{}{
		"name":  "Bad",
		"email": "not-an-email",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad email status=%d, want 400", w.Code)
	}
}
