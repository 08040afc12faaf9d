package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
	"github.com/mediclear/mediclear/internal/platform/auth"
)

func newTestHandler() (*Handler, *mockRecordRepo, *echo.Echo) {
	svc, repo := newTestService()
	return NewHandler(svc), repo, echo.New()
}

func asUser(c echo.Context, email, role string) {
	ctx := auth.WithIdentity(c.Request().Context(), auth.Identity{Email: email, Role: role})
	c.SetRequest(c.Request().WithContext(ctx))
}

func TestHandler_Submit(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/doctor", strings.NewReader(`{"email":"p@example.com","instruction":"take meds"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		OK bool  `json:"ok"`
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if !body.OK || body.ID != 1 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Submit_MissingFields(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/api/doctor", strings.NewReader(`{"email":"p@example.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	status, code := apierror.Resolve(h.Submit(c))
	if status != http.StatusBadRequest || code != apierror.CodeMissingFields {
		t.Errorf("expected 400 MISSING_FIELDS, got %d %s", status, code)
	}
}

func TestHandler_Submit_StorageFailure(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.err = errors.New("relation \"doctor_records\" does not exist")
	req := httptest.NewRequest(http.MethodPost, "/api/doctor", strings.NewReader(`{"email":"p@example.com","instruction":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	status, code := apierror.Resolve(h.Submit(c))
	if status != http.StatusInternalServerError || code != apierror.CodeDBError {
		t.Errorf("expected 500 DB_ERROR, got %d %s", status, code)
	}
}

func TestHandler_ListForDoctor_Filter(t *testing.T) {
	h, _, e := newTestHandler()
	_, _ = h.svc.Submit(context.Background(), "a@example.com", "one")
	_, _ = h.svc.Submit(context.Background(), "b@example.com", "two")

	req := httptest.NewRequest(http.MethodGet, "/api/doctor/records?patient=b@example.com", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListForDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Records []Record `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].PatientEmail != "b@example.com" {
		t.Errorf("unexpected records %+v", body.Records)
	}
}

func TestHandler_ListForPatient_IgnoresQuery(t *testing.T) {
	h, _, e := newTestHandler()
	_, _ = h.svc.Submit(context.Background(), "p@example.com", "mine")
	_, _ = h.svc.Submit(context.Background(), "other@example.com", "theirs")

	req := httptest.NewRequest(http.MethodGet, "/api/patient/records?patient=other@example.com", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	asUser(c, "p@example.com", auth.RolePatient)

	if err := h.ListForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Records []PatientRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Records) != 1 || body.Records[0].Raw != "mine" {
		t.Errorf("expected only the caller's record, got %+v", body.Records)
	}
}

func TestHandler_ListForPatient_EmptyIsArray(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/patient/records", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	asUser(c, "new@example.com", auth.RolePatient)

	if err := h.ListForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"records":[]}` {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}
