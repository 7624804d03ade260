package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/golang-jwt/jwt/v5"

	"github.com/elicita/delphi-engine/pkg/audit"
)

// mockAuthService is a mock implementation of AuthService for testing.
type mockAuthService struct {
	claims            *Claims
	token             string
	validateErr       error
	requireSubjectErr error
	requireMasterErr  error
}

func (m *mockAuthService) ValidateRequest(r *http.Request) (*Claims, string, error) {
	if m.validateErr != nil {
		return nil, "", m.validateErr
	}
	return m.claims, m.token, nil
}

func (m *mockAuthService) RequireSubject(claims *Claims) error {
	return m.requireSubjectErr
}

func (m *mockAuthService) RequireMaster(claims *Claims) error {
	return m.requireMasterErr
}

func TestMiddleware_RequireAuth_Success(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
		Roles:            []string{"expert"},
	}
	authService := &mockAuthService{claims: claims, token: "test-token"}
	middleware := NewMiddleware(authService, nil, zap.NewNop())

	var handlerCalled bool
	var ctxClaims *Claims
	var ctxToken string

	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		ctxClaims, _ = GetClaims(r.Context())
		ctxToken, _ = GetToken(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if !handlerCalled {
		t.Error("expected handler to be called")
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	if ctxClaims == nil || ctxClaims.Subject != "user-123" {
		t.Error("expected claims to be set in context")
	}

	if ctxToken != "test-token" {
		t.Errorf("expected token 'test-token' in context, got %q", ctxToken)
	}
}

func TestMiddleware_RequireAuth_Unauthorized(t *testing.T) {
	authService := &mockAuthService{validateErr: ErrMissingAuthorization}
	middleware := NewMiddleware(authService, nil, zap.NewNop())

	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rec.Code)
	}
}

func TestMiddleware_RequireAuth_MissingSubject(t *testing.T) {
	authService := &mockAuthService{
		claims:            &Claims{},
		requireSubjectErr: ErrMissingSubject,
	}
	middleware := NewMiddleware(authService, nil, zap.NewNop())

	handler := middleware.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestMiddleware_RequireMaster_Success(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
		Roles:            []string{RoleMaster},
	}
	authService := &mockAuthService{claims: claims, token: "test-token"}
	middleware := NewMiddleware(authService, nil, zap.NewNop())

	var handlerCalled bool
	handler := middleware.RequireMaster(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cases", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if !handlerCalled {
		t.Error("expected handler to be called")
	}
}

func TestMiddleware_RequireMaster_Forbidden(t *testing.T) {
	authService := &mockAuthService{
		claims:           &Claims{Roles: []string{"expert"}},
		requireMasterErr: ErrNotMaster,
	}
	middleware := NewMiddleware(authService, nil, zap.NewNop())

	handler := middleware.RequireMaster(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cases", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}

func TestMiddleware_RequireMaster_AuditsDenial(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	auditor := audit.NewAuditor(zap.New(core))

	authService := &mockAuthService{
		claims:           &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"}, Roles: []string{"expert"}},
		requireMasterErr: ErrNotMaster,
	}
	middleware := NewMiddleware(authService, auditor, zap.NewNop())

	handler := middleware.RequireMaster(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/cases", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected 1 audit entry, got %d", logs.Len())
	}
}
