package http

import (
	"context"
	stdhttp "net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"posadmin/internal/domain/permissions"
)

type Middleware struct {
	Auth          echo.MiddlewareFunc
	XRay          echo.MiddlewareFunc
	RequestLogger echo.MiddlewareFunc
	Metrics       echo.MiddlewareFunc
}

// Handlers groups the route handlers. Authorizer guards the administrative
// routes and MetricsHandler is served on /metrics when set.
type Handlers struct {
	Permissions    *PermissionsHandler
	Authorization  *AuthorizationHandler
	Users          *UsersHandler
	Audit          *AuditHandler
	Authorizer     Authorizer
	MetricsHandler stdhttp.Handler
}

// Authorizer answers access questions for the acting user of a request.
type Authorizer interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
	IsAllowed(ctx context.Context, orgID, userID string, module permissions.ModuleName, action permissions.PermissionAction) (bool, error)
	HasSpecialPermission(ctx context.Context, orgID, userID, permission string) (bool, error)
}

func unauthenticated(c echo.Context) error {
	return c.JSON(stdhttp.StatusUnauthorized, map[string]string{"error": "missing acting user"})
}

// RequireActor rejects requests that carry no acting user.
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if actingUser(c) == "" {
				return unauthenticated(c)
			}
			return next(c)
		}
	}
}

// RequireMembership lets the request through only when the acting user belongs
// to the organization named by the :id path parameter. A token scoped to a
// different organization is refused before the user is looked up.
func RequireMembership(authz Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := actingUser(c)
			if userID == "" {
				return unauthenticated(c)
			}
			if claimed, _ := c.Get(organizationIDKey).(string); claimed != "" && claimed != c.Param("id") {
				return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": "permission denied"})
			}
			member, err := authz.IsMember(c.Request().Context(), c.Param("id"), userID)
			return guard(c, next, member, err)
		}
	}
}

// RequirePermission lets the request through only when the acting user holds
// action on module inside the organization named by the :id path parameter.
func RequirePermission(authz Authorizer, module permissions.ModuleName, action permissions.PermissionAction) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := actingUser(c)
			if userID == "" {
				return unauthenticated(c)
			}
			allowed, err := authz.IsAllowed(c.Request().Context(), c.Param("id"), userID, module, action)
			return guard(c, next, allowed, err)
		}
	}
}

// RequireSpecialPermission lets the request through only when the acting
// user's own role lists permission.
func RequireSpecialPermission(authz Authorizer, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := actingUser(c)
			if userID == "" {
				return unauthenticated(c)
			}
			allowed, err := authz.HasSpecialPermission(c.Request().Context(), c.Param("id"), userID, permission)
			return guard(c, next, allowed, err)
		}
	}
}

func guard(c echo.Context, next echo.HandlerFunc, allowed bool, err error) error {
	if err != nil {
		return handleError(c, err)
	}
	if !allowed {
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": "permission denied"})
	}
	return next(c)
}

func newEcho(m Middleware) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	for _, mw := range []echo.MiddlewareFunc{m.XRay, m.RequestLogger, m.Metrics} {
		if mw != nil {
			e.Use(mw)
		}
	}
	return e
}

func NewMainRouter(h Handlers, m Middleware) *echo.Echo {
	e := newEcho(m)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(stdhttp.StatusOK, map[string]string{"status": "ok"})
	})
	if h.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(h.MetricsHandler))
	}

	withAuth := func(gate echo.MiddlewareFunc) []echo.MiddlewareFunc {
		if m.Auth == nil {
			return []echo.MiddlewareFunc{gate}
		}
		return []echo.MiddlewareFunc{m.Auth, gate}
	}
	admin := RequirePermission(h.Authorizer, permissions.ModuleSettings, permissions.ActionUpdate)

	orgs := e.Group("/organizations/:id", withAuth(RequireMembership(h.Authorizer))...)
	orgs.GET("/permissions", h.Permissions.Get)
	orgs.PATCH("/permissions", h.Permissions.Update, admin)
	orgs.POST("/permissions/reset", h.Permissions.Reset, admin)
	orgs.GET("/permissions/roles/:role", h.Permissions.Effective)
	orgs.GET("/features/:feature", h.Permissions.Feature)
	orgs.POST("/authorize", h.Authorization.Authorize)
	orgs.GET("/audit", h.Audit.List, RequireSpecialPermission(h.Authorizer, "view_audit_logs"))

	users := e.Group("/users/:id", withAuth(RequireActor())...)
	users.PATCH("/role", h.Users.ChangeRole)
	users.GET("/assignable-roles", h.Users.AssignableRoles)
	return e
}
