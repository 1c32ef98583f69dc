package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func managerTestRouter(authz Authorizer, email string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if email != "" {
			c.Set("user_email", email)
		}
	})
	r.Use(RequireAutomationManager(authz))
	r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func getAdmin(r *gin.Engine) int {
	req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestConfigAuthorizer_EmptyListAllowsAll(t *testing.T) {
	authz := NewConfigAuthorizer(nil)
	if !authz.IsAuthorized("anyone@example.com") {
		t.Error("empty allow-list should admit any authenticated identity")
	}
}

func TestConfigAuthorizer_ListRestricts(t *testing.T) {
	authz := NewConfigAuthorizer([]string{"lead@example.com"})
	if !authz.IsAuthorized("lead@example.com") {
		t.Error("listed identity should be allowed")
	}
	if authz.IsAuthorized("intern@example.com") {
		t.Error("unlisted identity should be denied")
	}
}

func TestRequireAutomationManager(t *testing.T) {
	authz := NewConfigAuthorizer([]string{"lead@example.com"})

	if code := getAdmin(managerTestRouter(authz, "lead@example.com")); code != http.StatusOK {
		t.Errorf("manager status=%d", code)
	}
	if code := getAdmin(managerTestRouter(authz, "intern@example.com")); code != http.StatusForbidden {
		t.Errorf("non-manager status=%d", code)
	}
	// no identity at all, e.g. auth middleware not run
	if code := getAdmin(managerTestRouter(NewConfigAuthorizer(nil), "")); code != http.StatusForbidden {
		t.Errorf("anonymous status=%d", code)
	}
}

func TestRequireRolesAny(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newRouter := func(roles interface{}) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if roles != nil {
				c.Set("roles", roles)
			}
		})
		r.Use(RequireRolesAny("admin", "ops"))
		r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })
		return r
	}

	if code := getAdmin(newRouter([]string{"ops"})); code != http.StatusOK {
		t.Errorf("matching role status=%d", code)
	}
	if code := getAdmin(newRouter([]string{"viewer"})); code != http.StatusForbidden {
		t.Errorf("wrong role status=%d", code)
	}
	if code := getAdmin(newRouter(nil)); code != http.StatusForbidden {
		t.Errorf("no roles status=%d", code)
	}
	if code := getAdmin(newRouter("admin")); code != http.StatusOK {
		t.Errorf("single string role status=%d", code)
	}
}
