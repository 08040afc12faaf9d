package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rs/zerolog"

	"github.com/mediclear/mediclear/internal/config"
	"github.com/mediclear/mediclear/internal/platform/auth"
	"github.com/mediclear/mediclear/internal/platform/simplifier"
)

type testServer struct {
	e      *echo.Echo
	mock   pgxmock.PgxPoolIface
	tokens *auth.TokenService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)

	revoker := auth.NewMemoryRevoker()
	t.Cleanup(revoker.Close)

	tokens := auth.NewTokenService([]byte(strings.Repeat("k", 32)), time.Hour)
	e := newServer(serverDeps{
		cfg: &config.Config{
			Env:         "test",
			CORSOrigins: []string{"*"},
			BodyLimit:   "1K",
		},
		logger:     zerolog.Nop(),
		pool:       mock,
		tokens:     tokens,
		revoker:    revoker,
		simplifier: simplifier.Static,
	})
	return &testServer{e: e, mock: mock, tokens: tokens}
}

func (s *testServer) token(t *testing.T, email, role string) string {
	t.Helper()
	tok, _, err := s.tokens.Issue(email, role)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) do(method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on every response")
	}
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("expected HSTS outside development")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_ErrorCodes(t *testing.T) {
	s := newTestServer(t)
	patient := s.token(t, "p@x.com", auth.RolePatient)
	doctor := s.token(t, "d@x.com", auth.RoleDoctor)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound, "NOT_FOUND"},
		{"unknown api route", http.MethodGet, "/api/nope", "", "", http.StatusNotFound, "NOT_FOUND"},
		{"doctor route without token", http.MethodGet, "/api/doctor/records", "", "", http.StatusUnauthorized, "NO_TOKEN"},
		{"garbage token", http.MethodGet, "/api/doctor/records", "", "not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"patient on doctor route", http.MethodGet, "/api/doctor/records", "", patient, http.StatusForbidden, "NEED_DOCTOR"},
		{"patient route without token", http.MethodGet, "/api/patient/schedules", "", "", http.StatusUnauthorized, "NO_TOKEN"},
		{"schedules without patient", http.MethodGet, "/api/doctor/schedules", "", doctor, http.StatusBadRequest, "MISSING_PATIENT"},
		{"register missing fields", http.MethodPost, "/api/register", `{"email":"a@x.com"}`, "", http.StatusBadRequest, "MISSING_FIELDS"},
		{"login malformed json", http.MethodPost, "/api/login", `{"email":`, "", http.StatusBadRequest, "INVALID_BODY"},
		{"non numeric id", http.MethodDelete, "/api/doctor/medication/abc", "", doctor, http.StatusBadRequest, "INVALID_ID"},
		{"body too large", http.MethodPost, "/api/doctor", `{"email":"p@x.com","instruction":"` + strings.Repeat("a", 2048) + `"}`, doctor, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.target, tt.body, tt.token)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected %s, got %s", tt.wantCode, code)
			}
		})
	}
}

func TestServer_CreateSurgery(t *testing.T) {
	s := newTestServer(t)
	doctor := s.token(t, "d@x.com", auth.RoleDoctor)

	ts := time.Now()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO surgeries")).
		WithArgs("p@x.com", "d@x.com", "담낭절제", "2025-03-01", "", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "ts"}).AddRow(int64(7), ts))
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO tests")).
		WithArgs("p@x.com", "[수술] 담낭절제", "2025-03-01").
		WillReturnRows(pgxmock.NewRows([]string{"id", "ts"}).AddRow(int64(3), ts))
	s.mock.ExpectCommit()

	rec := s.do(http.MethodPost, "/api/doctor/surgery",
		`{"email":"p@x.com","title":"담낭절제","date":"2025-03-01"}`, doctor)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"title":"담낭절제"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
	if err := s.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestServer_CreateSurgery_StorageFailureIsOpaque(t *testing.T) {
	s := newTestServer(t)
	doctor := s.token(t, "d@x.com", auth.RoleDoctor)

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO surgeries")).
		WillReturnError(errors.New("null value in column \"legacy\" violates not-null constraint"))
	s.mock.ExpectRollback()

	rec := s.do(http.MethodPost, "/api/doctor/surgery",
		`{"email":"p@x.com","title":"t","date":"2025-03-01"}`, doctor)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"DB_ERROR"}` {
		t.Errorf("expected opaque DB_ERROR body, got %s", rec.Body.String())
	}
}

func TestServer_LogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	tok := s.token(t, "p@x.com", auth.RolePatient)

	if rec := s.do(http.MethodPost, "/api/logout", "", tok); rec.Code != http.StatusOK {
		t.Fatalf("expected logout 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodGet, "/api/patient/records", "", tok)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_TOKEN" {
		t.Errorf("expected revoked token to be rejected, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestSigningSecret(t *testing.T) {
	logger := zerolog.Nop()

	got, err := signingSecret(&config.Config{Env: "production", JWTSecret: "configured"}, logger)
	if err != nil || string(got) != "configured" {
		t.Errorf("expected configured secret, got %q, %v", got, err)
	}

	if _, err := signingSecret(&config.Config{Env: "production"}, logger); err == nil {
		t.Error("expected error for missing secret outside development")
	}

	a, err := signingSecret(&config.Config{Env: "development"}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := signingSecret(&config.Config{Env: "development"}, logger)
	if len(a) != config.MinJWTSecretLength || string(a) == string(b) {
		t.Error("expected a fresh random development secret")
	}
}

func TestWriteColumnsAreDeclared(t *testing.T) {
	declared := make(map[string]map[string]bool)
	for _, spec := range tableSpecs() {
		cols := make(map[string]bool)
		for _, name := range spec.ColumnNames() {
			cols[name] = true
		}
		declared[spec.Table] = cols
	}

	for _, table := range []string{"users", "doctor_records", "surgeries", "medications", "tests"} {
		if declared[table] == nil {
			t.Errorf("table %s has no spec", table)
		}
	}

	for table, cols := range writeColumns() {
		spec, ok := declared[table]
		if !ok {
			t.Errorf("write columns for undeclared table %s", table)
			continue
		}
		for _, c := range cols {
			if !spec[c] {
				t.Errorf("%s.%s is written but not reconciled", table, c)
			}
		}
	}
}
