package http

import (
	"errors"
	stdhttp "net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"posadmin/internal/application"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
)

const (
	userIDKey         = "user_id"
	organizationIDKey = "organization_id"
)

func handleError(c echo.Context, err error) error {
	var validation *domain.ValidationFailedError
	switch {
	case errors.As(err, &validation):
		return c.JSON(stdhttp.StatusBadRequest, map[string]any{"error": "invalid permissions", "errors": validation.Errors})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrPermissionDeny):
		return c.JSON(stdhttp.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(stdhttp.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrVersionConflict):
		return c.JSON(stdhttp.StatusConflict, map[string]string{"error": err.Error()})
	default:
		return c.JSON(stdhttp.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func actingUser(c echo.Context) string {
	uid, _ := c.Get(userIDKey).(string)
	return uid
}

type PermissionsHandler struct {
	service *application.PermissionService
}

func NewPermissionsHandler(service *application.PermissionService) *PermissionsHandler {
	return &PermissionsHandler{service: service}
}

func (h *PermissionsHandler) Get(c echo.Context) error {
	record, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, record)
}

func (h *PermissionsHandler) Update(c echo.Context) error {
	var req struct {
		Permissions     *permissions.PermissionsUpdate `json:"permissions"`
		ExpectedVersion *int64                         `json:"expected_version"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if req.Permissions == nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "permissions is required"})
	}
	record, err := h.service.Update(c.Request().Context(), c.Param("id"), actingUser(c), *req.Permissions, req.ExpectedVersion)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, record)
}

func (h *PermissionsHandler) Reset(c echo.Context) error {
	record, err := h.service.Reset(c.Request().Context(), c.Param("id"), actingUser(c))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, record)
}

func (h *PermissionsHandler) Effective(c echo.Context) error {
	summary, err := h.service.Effective(c.Request().Context(), c.Param("id"), permissions.UserRole(c.Param("role")))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, summary)
}

func (h *PermissionsHandler) Feature(c echo.Context) error {
	feature := permissions.FeatureFlag(c.Param("feature"))
	enabled, err := h.service.IsFeatureEnabled(c.Request().Context(), c.Param("id"), feature)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{"feature": feature, "enabled": enabled})
}

type AuthorizationHandler struct {
	service *application.AuthorizationService
}

func NewAuthorizationHandler(service *application.AuthorizationService) *AuthorizationHandler {
	return &AuthorizationHandler{service: service}
}

func (h *AuthorizationHandler) Authorize(c echo.Context) error {
	var req struct {
		UserID string `json:"user_id"`
		Module string `json:"module"`
		Action string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if req.UserID == "" {
		req.UserID = actingUser(c)
	}
	allowed, err := h.service.IsAllowed(
		c.Request().Context(),
		c.Param("id"),
		req.UserID,
		permissions.ModuleName(req.Module),
		permissions.PermissionAction(req.Action),
	)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]bool{"allowed": allowed})
}

type UsersHandler struct {
	service *application.UserService
}

func NewUsersHandler(service *application.UserService) *UsersHandler {
	return &UsersHandler{service: service}
}

func (h *UsersHandler) ChangeRole(c echo.Context) error {
	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	user, err := h.service.ChangeRole(c.Request().Context(), actingUser(c), c.Param("id"), req.Role)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, user)
}

func (h *UsersHandler) AssignableRoles(c echo.Context) error {
	roles, err := h.service.AssignableRoles(c.Request().Context(), actingUser(c), c.Param("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, roles)
}

type AuditHandler struct {
	service *application.AuditService
}

func NewAuditHandler(service *application.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

func (h *AuditHandler) List(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return c.JSON(stdhttp.StatusBadRequest, map[string]string{"error": "limit must be a number"})
		}
		limit = parsed
	}
	entries, err := h.service.List(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(stdhttp.StatusOK, map[string]any{"entries": entries})
}
