package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sterling-dialer/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(userID, role string, chain ...gin.HandlerFunc) int {
	return serveMethod(http.MethodGet, userID, role, chain...)
}

func serveMethod(method, userID, role string, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), userID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.Handle(method, "/x", handlers...)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	if code := serve("u", RoleSuperAdmin, RequireUser(), RequireAnyRole(RoleOwner)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_HiddenRoleDeniedUnlessAllowed(t *testing.T) {
	if code := serve("u", RoleSupport, RequireUser(), RequireAnyRole(RoleOwner)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := serve("u", RoleSupport, RequireUser(), RequireAnyRole(RoleOwner, RoleSupport)); code != 200 {
		t.Fatalf("expected 200 when explicitly allowed, got %d", code)
	}
}

func TestRequireAnyRole_HiddenRoleIsReadOnly(t *testing.T) {
	if code := serveMethod(http.MethodPost, "u", RoleSupport, RequireUser(), RequireAnyRole(RoleOwner, RoleSupport)); code != 403 {
		t.Fatalf("expected 403 for a write, got %d", code)
	}
	if code := serveMethod(http.MethodPost, "u", RoleOwner, RequireUser(), RequireAnyRole(RoleOwner, RoleSupport)); code != 200 {
		t.Fatalf("expected 200 for owner write, got %d", code)
	}
}

func TestRequireAnyRole_AnalystCannotControl(t *testing.T) {
	if code := serve("u", RoleAnalyst, RequireUser(), RequireAnyRole(RoleOwner)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireUser(t *testing.T) {
	if code := serve("", RoleOwner, RequireUser(), RequireAnyRole(RoleOwner)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
