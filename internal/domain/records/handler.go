package records

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

// RegisterRoutes mounts the clinician endpoints on doctor (already guarded
// by RequireDoctor) and the self-scoped view on patient.
func (h *Handler) RegisterRoutes(doctor *echo.Group, patient *echo.Group) {
	doctor.POST("", h.Submit)
	doctor.GET("/records", h.ListForDoctor)
	patient.GET("/records", h.ListForPatient)
}

type submitRequest struct {
	Email       string `json:"email"`
	Instruction string `json:"instruction"`
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	rec, err := h.svc.Submit(c.Request().Context(), req.Email, req.Instruction)
	if errors.Is(err, ErrMissingFields) {
		return apierror.BadRequest(apierror.CodeMissingFields)
	}
	if err != nil {
		return apierror.Storage(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "id": rec.ID})
}

func (h *Handler) ListForDoctor(c echo.Context) error {
	items, err := h.svc.ListForDoctor(c.Request().Context(), c.QueryParam("patient"))
	if err != nil {
		return apierror.Storage(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"records": items})
}

func (h *Handler) ListForPatient(c echo.Context) error {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return apierror.Unauthorized(apierror.CodeNoToken)
	}
	items, err := h.svc.ListForPatient(c.Request().Context(), id.Email)
	if err != nil {
		return apierror.Storage(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"records": items})
}
