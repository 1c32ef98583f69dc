package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Authorizer decides whether an authenticated identity may manage
// automation rules.
type Authorizer interface {
	IsAuthorized(identity string) bool
}

// ConfigAuthorizer allows the identities listed in configuration. An empty
// list allows everyone who passed authentication.
type ConfigAuthorizer struct {
	allowed map[string]struct{}
}

func NewConfigAuthorizer(managers []string) *ConfigAuthorizer {
	allowed := make(map[string]struct{}, len(managers))
	for _, m := range managers {
		allowed[m] = struct{}{}
	}
	return &ConfigAuthorizer{allowed: allowed}
}

func (a *ConfigAuthorizer) IsAuthorized(identity string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[identity]
	return ok
}

// RequireAutomationManager gates the automation management surface behind
// the authorizer. Identity comes from "user_email" set by AuthMiddleware.
func RequireAutomationManager(authz Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := c.GetString("user_email")
		if identity == "" || !authz.IsAuthorized(identity) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "automation management not permitted",
			})
			return
		}
		c.Next()
	}
}

// RequireRolesAny returns a middleware that checks if the request context
// contains at least one of the required roles in "roles" (set by AuthMiddleware).
func RequireRolesAny(required ...string) gin.HandlerFunc {
	reqSet := make(map[string]struct{}, len(required))
	for _, r := range required {
		reqSet[r] = struct{}{}
	}
	return func(c *gin.Context) {
		var roles []string
		if v, ok := c.Get("roles"); ok {
			switch t := v.(type) {
			case []string:
				roles = t
			case []interface{}:
				for _, it := range t {
					if s, ok := it.(string); ok {
						roles = append(roles, s)
					}
				}
			case interface{}:
				// tolerate single role as string
				if s, ok := t.(string); ok && s != "" {
					roles = []string{s}
				}
			}
		}
		for _, r := range roles {
			if _, ok := reqSet[r]; ok {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "Forbidden",
			"message": "insufficient role",
		})
	}
}
