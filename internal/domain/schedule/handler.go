package schedule

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
	"github.com/mediclear/mediclear/internal/platform/auth"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the clinician endpoints on doctor (already guarded
// by RequireDoctor) and the self-scoped views on patient.
func (h *Handler) RegisterRoutes(doctor *echo.Group, patient *echo.Group) {
	doctor.POST("/surgery", h.CreateSurgery)
	doctor.GET("/surgeries", h.ListSurgeries)
	doctor.POST("/medication", h.CreateMedication)
	doctor.PATCH("/medication/:id", h.UpdateMedication)
	doctor.DELETE("/medication/:id", h.DeleteMedication)
	doctor.POST("/test", h.CreateTest)
	doctor.PATCH("/test/:id", h.UpdateTest)
	doctor.DELETE("/test/:id", h.DeleteTest)
	doctor.GET("/schedules", h.DoctorSchedules)
	doctor.GET("/schedules/export", h.ExportSchedules)

	patient.GET("/surgeries", h.PatientSurgeries)
	patient.GET("/schedules", h.PatientSchedules)
}

var okResponse = map[string]bool{"ok": true}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeInvalidID)
	}
	return id, nil
}

// toHTTP maps service errors to public codes.
func toHTTP(err error) error {
	switch {
	case errors.Is(err, ErrMissingFields):
		return apierror.BadRequest(apierror.CodeMissingFields)
	case errors.Is(err, ErrMissingPatient):
		return apierror.BadRequest(apierror.CodeMissingPatient)
	default:
		return apierror.Storage(err)
	}
}

func callerEmail(c echo.Context) (string, error) {
	id, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return "", apierror.Unauthorized(apierror.CodeNoToken)
	}
	return id.Email, nil
}

// -- Surgery Handlers --

type surgeryRequest struct {
	Email string `json:"email"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

func (h *Handler) CreateSurgery(c echo.Context) error {
	var req surgeryRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	doctor, err := callerEmail(c)
	if err != nil {
		return err
	}

	sur, err := h.svc.CreateSurgery(c.Request().Context(), doctor, SurgeryInput{
		Email: req.Email,
		Title: req.Title,
		Date:  req.Date,
		Notes: req.Notes,
	})
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"id":      sur.ID,
		"surgery": sur.Ref(),
	})
}

func (h *Handler) ListSurgeries(c echo.Context) error {
	items, err := h.svc.ListSurgeries(c.Request().Context(), c.QueryParam("patient"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"surgeries": items})
}

func (h *Handler) PatientSurgeries(c echo.Context) error {
	email, err := callerEmail(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListPatientSurgeries(c.Request().Context(), email)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"surgeries": items})
}

// -- Medication Handlers --

type medicationRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Time  string `json:"time"`
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	m, err := h.svc.CreateMedication(c.Request().Context(), req.Email, req.Name, req.Time)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "id": m.ID})
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req medicationRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	if err := h.svc.UpdateMedication(c.Request().Context(), id, req.Name, req.Time); err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, okResponse)
}

func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteMedication(c.Request().Context(), id); err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, okResponse)
}

// -- Test Handlers --

type testRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Date  string `json:"date"`
}

func (h *Handler) CreateTest(c echo.Context) error {
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	t, err := h.svc.CreateTest(c.Request().Context(), req.Email, req.Name, req.Date)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "id": t.ID})
}

func (h *Handler) UpdateTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req testRequest
	if err := c.Bind(&req); err != nil {
		return apierror.InvalidBody(err)
	}
	if err := h.svc.UpdateTest(c.Request().Context(), id, req.Name, req.Date); err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, okResponse)
}

func (h *Handler) DeleteTest(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTest(c.Request().Context(), id); err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, okResponse)
}

// -- Schedule Handlers --

func (h *Handler) DoctorSchedules(c echo.Context) error {
	sched, err := h.svc.GetSchedules(c.Request().Context(), c.QueryParam("patient"))
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

// PatientSchedules ignores any patient query parameter.
func (h *Handler) PatientSchedules(c echo.Context) error {
	email, err := callerEmail(c)
	if err != nil {
		return err
	}
	sched, err := h.svc.GetSchedules(c.Request().Context(), email)
	if err != nil {
		return toHTTP(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) ExportSchedules(c echo.Context) error {
	patient := c.QueryParam("patient")
	data, err := h.svc.ExportSchedules(c.Request().Context(), patient)
	if err != nil {
		return toHTTP(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", "schedules.xlsx"))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
