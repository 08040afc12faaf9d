package apierror

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"public code", BadRequest(CodeMissingFields), http.StatusBadRequest, CodeMissingFields},
		{"storage", Storage(errors.New("relation does not exist")), http.StatusInternalServerError, CodeDBError},
		{"echo not found", echo.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{"echo free text", echo.NewHTTPError(http.StatusBadRequest, "Syntax error: offset=3"), http.StatusBadRequest, CodeInvalidRequest},
		{"too large", echo.ErrStatusRequestEntityTooLarge, http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
		{"wrapped", errors.Join(errors.New("ctx"), Conflict(CodeDupEmail)), http.StatusConflict, CodeDupEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := Resolve(tt.err)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if code != tt.wantCode {
				t.Errorf("code = %q, want %q", code, tt.wantCode)
			}
		})
	}
}

func TestHandler_HidesInternalCause(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Handler()(Storage(errors.New("password authentication failed for user mediclear")), c)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password authentication") {
		t.Errorf("internal cause leaked: %s", rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["error"] != CodeDBError {
		t.Errorf("expected DB_ERROR, got %q", body["error"])
	}
}

func TestHandler_HeadHasNoBody(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodHead, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	Handler()(Unauthorized(CodeNoToken), c)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}
