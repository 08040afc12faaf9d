package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
	"github.com/mediclear/mediclear/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts register, login and logout on the public /api group.
// authn guards logout; loginLimit, when set, throttles register and login.
func (h *Handler) RegisterRoutes(public *echo.Group, authn, loginLimit echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if loginLimit != nil {
		mw = append(mw, loginLimit)
	}
	public.POST("/register", h.Register, mw...)
	public.POST("/login", h.Login, mw...)
	public.POST("/logout", h.Logout, authn)
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	_, err := h.svc.Register(c.Request().Context(), req.Email, req.Password, req.Role)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, ErrMissingFields):
		return apierror.BadRequest(apierror.CodeMissingFields)
	case errors.Is(err, ErrInvalidRole):
		return apierror.BadRequest(apierror.CodeInvalidRole)
	case errors.Is(err, ErrDuplicateEmail):
		return apierror.Conflict(apierror.CodeDupEmail)
	default:
		return apierror.Storage(err)
	}
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, res)
	case errors.Is(err, ErrMissingFields):
		return apierror.BadRequest(apierror.CodeMissingFields)
	case errors.Is(err, ErrInvalidCredentials):
		return apierror.Unauthorized(apierror.CodeInvalidCredentials)
	default:
		return apierror.Storage(err)
	}
}

func (h *Handler) Logout(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return apierror.Unauthorized(apierror.CodeNoToken)
	}
	if err := h.svc.Logout(c.Request().Context(), id); err != nil {
		return apierror.Wrap(http.StatusServiceUnavailable, apierror.CodeUnavailable, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
