package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/mediclear/mediclear/internal/platform/apierror"
	"github.com/mediclear/mediclear/internal/platform/auth"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func jsonContext(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectCode(t *testing.T, err error, status int, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	gotStatus, gotCode := apierror.Resolve(err)
	if gotStatus != status || gotCode != code {
		t.Errorf("expected %d %s, got %d %s", status, code, gotStatus, gotCode)
	}
}

func TestHandler_Register(t *testing.T) {
	h, e := newTestHandler()
	c, rec := jsonContext(e, http.MethodPost, "/api/register", `{"email":"p@example.com","password":"pw"}`)

	if err := h.Register(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Register_Errors(t *testing.T) {
	h, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/register", `{"email":"p@example.com","password":"pw"}`)
	_ = h.Register(c)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing password", `{"email":"x@example.com"}`, http.StatusBadRequest, apierror.CodeMissingFields},
		{"duplicate", `{"email":"p@example.com","password":"pw2"}`, http.StatusConflict, apierror.CodeDupEmail},
		{"bad role", `{"email":"y@example.com","password":"pw","role":"root"}`, http.StatusBadRequest, apierror.CodeInvalidRole},
		{"malformed", `{"email":`, http.StatusBadRequest, apierror.CodeInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := jsonContext(e, http.MethodPost, "/api/register", tt.body)
			expectCode(t, h.Register(c), tt.status, tt.code)
		})
	}
}

func TestHandler_Login(t *testing.T) {
	h, e := newTestHandler()
	_, _ = h.svc.Register(context.Background(), "d@example.com", "pw", auth.RoleDoctor)

	c, rec := jsonContext(e, http.MethodPost, "/api/login", `{"email":"d@example.com","password":"pw"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var res LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if res.Token == "" || res.Email != "d@example.com" || res.Role != auth.RoleDoctor {
		t.Errorf("unexpected login response: %+v", res)
	}
}

func TestHandler_Login_InvalidCredentials(t *testing.T) {
	h, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/login", `{"email":"nobody@example.com","password":"pw"}`)
	expectCode(t, h.Login(c), http.StatusUnauthorized, apierror.CodeInvalidCredentials)
}

func TestHandler_Login_MissingFields(t *testing.T) {
	h, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/login", `{}`)
	expectCode(t, h.Login(c), http.StatusBadRequest, apierror.CodeMissingFields)
}

func TestHandler_Logout(t *testing.T) {
	h, e := newTestHandler()
	_, id, _ := testTokens.Issue("p@example.com", auth.RolePatient)

	c, rec := jsonContext(e, http.MethodPost, "/api/logout", "")
	c.SetRequest(c.Request().WithContext(auth.WithIdentity(c.Request().Context(), id)))

	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	revoked, _ := h.svc.revoker.IsRevoked(context.Background(), id.TokenID)
	if !revoked {
		t.Error("expected token to be revoked after logout")
	}
}

func TestHandler_Logout_NoIdentity(t *testing.T) {
	h, e := newTestHandler()
	c, _ := jsonContext(e, http.MethodPost, "/api/logout", "")
	expectCode(t, h.Logout(c), http.StatusUnauthorized, apierror.CodeNoToken)
}

func TestHandler_Register_LongHangulPassword(t *testing.T) {
	h, e := newTestHandler()
	body := `{"email":"kr@example.com","password":"` + strings.Repeat("비밀번호", 10) + `"}`

	c, rec := jsonContext(e, http.MethodPost, "/api/register", body)
	if err := h.Register(c); err != nil {
		t.Fatalf("register: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, rec = jsonContext(e, http.MethodPost, "/api/login", body)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
