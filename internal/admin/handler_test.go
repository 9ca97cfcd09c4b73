package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/knwebagency/backend/internal/auth"
	"github.com/knwebagency/backend/internal/middleware"
	"github.com/knwebagency/backend/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ authService = (*authServiceMock)(nil)

type authServiceMock struct {
	principal  *auth.Principal
	token      string
	signInErr  error
	getErr     error
	signedOut  []string
	lastSignIn auth.Credentials
}

func (m *authServiceMock) SignIn(_ context.Context, creds auth.Credentials) (*auth.Principal, string, error) {
	m.lastSignIn = creds
	if m.signInErr != nil {
		return nil, "", m.signInErr
	}
	return m.principal, m.token, nil
}

func (m *authServiceMock) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return nil
}

func (m *authServiceMock) GetPrincipal(context.Context, string) (*auth.Principal, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.principal, nil
}

func adminSetup(t *testing.T, service *authServiceMock) (*metrics.Manager, *mux.Router) {
	t.Helper()
	allowList := auth.NewAllowList("admin@knwebagency.com", false)
	metricsManager := metrics.NewTestManager()
	handler := NewHandler(service, allowList, metricsManager, time.Hour, false)

	router := mux.NewRouter()
	handler.SetupRoutes(router.PathPrefix("/admin/api").Subrouter())
	return metricsManager, router
}

func adminPrincipal() *auth.Principal {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &auth.Principal{
		ID:        1,
		Email:     "admin@knwebagency.com",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func TestHandler_login(t *testing.T) {
	service := &authServiceMock{principal: adminPrincipal(), token: "tok-123"}
	_, router := adminSetup(t, service)

	body := `{"email":"admin@knwebagency.com","password":"testpass"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin@knwebagency.com", service.lastSignIn.Email)

	var resp struct {
		Success bool            `json:"success"`
		Token   string          `json:"token"`
		User    *auth.Principal `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "tok-123", resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "admin@knwebagency.com", resp.User.Email)

	// session cookie set for the browser
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
	assert.Equal(t, "tok-123", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestHandler_login_failures(t *testing.T) {
	for name, tc := range map[string]struct {
		signInErr  error
		body       string
		wantStatus int
		wantMsg    string
	}{
		"wrong credentials": {
			signInErr:  auth.ErrInvalidCredentials,
			body:       `{"email":"admin@knwebagency.com","password":"wrong"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    msgInvalidCredentials,
		},
		"account not confirmed": {
			signInErr:  auth.ErrAccountNotConfirmed,
			body:       `{"email":"new@knwebagency.com","password":"testpass"}`,
			wantStatus: http.StatusForbidden,
			wantMsg:    msgNotConfirmed,
		},
		"too many attempts": {
			signInErr:  auth.ErrTooManyRequests,
			body:       `{"email":"admin@knwebagency.com","password":"testpass"}`,
			wantStatus: http.StatusTooManyRequests,
			wantMsg:    msgTooManyAttempts,
		},
		"backend down": {
			signInErr:  errors.New("connection refused"),
			body:       `{"email":"admin@knwebagency.com","password":"testpass"}`,
			wantStatus: http.StatusInternalServerError,
			wantMsg:    msgLoginError,
		},
		"empty password": {
			body:       `{"email":"admin@knwebagency.com"}`,
			wantStatus: http.StatusBadRequest,
			wantMsg:    msgInvalidCredentials,
		},
	} {
		t.Run(name, func(t *testing.T) {
			service := &authServiceMock{signInErr: tc.signInErr}
			metricsManager, router := adminSetup(t, service)

			req := httptest.NewRequest(http.MethodPost, "/admin/api/login", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantMsg, strings.TrimSpace(rec.Body.String()))
			assert.Empty(t, rec.Result().Cookies())

			if tc.signInErr != nil {
				assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterLoginFailures))
			}
		})
	}
}

func TestHandler_logout(t *testing.T) {
	service := &authServiceMock{}
	_, router := adminSetup(t, service)

	req := httptest.NewRequest(http.MethodGet, "/admin/api/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "tok-123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tok-123"}, service.signedOut)

	// cookie cleared
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestHandler_logout_withoutSession(t *testing.T) {
	service := &authServiceMock{}
	_, router := adminSetup(t, service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/logout", nil))

	// still a success
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_me(t *testing.T) {
	type meResponse struct {
		User       *auth.Principal `json:"user"`
		Authorized bool            `json:"authorized"`
	}

	decode := func(t *testing.T, rec *httptest.ResponseRecorder) meResponse {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code)
		var resp meResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	t.Run("authorized admin", func(t *testing.T) {
		_, router := adminSetup(t, &authServiceMock{principal: adminPrincipal()})
		req := httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
		req.Header.Set(middleware.TokenHeader, "tok-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		resp := decode(t, rec)
		require.NotNil(t, resp.User)
		assert.Equal(t, "admin@knwebagency.com", resp.User.Email)
		assert.True(t, resp.Authorized)
	})

	t.Run("session outside allow list", func(t *testing.T) {
		principal := adminPrincipal()
		principal.Email = "intruder@example.com"
		_, router := adminSetup(t, &authServiceMock{principal: principal})
		req := httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
		req.Header.Set(middleware.TokenHeader, "tok-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		resp := decode(t, rec)
		require.NotNil(t, resp.User)
		assert.False(t, resp.Authorized)
	})

	t.Run("no session", func(t *testing.T) {
		_, router := adminSetup(t, &authServiceMock{})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/api/me", nil))

		resp := decode(t, rec)
		assert.Nil(t, resp.User)
		assert.False(t, resp.Authorized)
	})

	t.Run("store error means null user, never 500", func(t *testing.T) {
		_, router := adminSetup(t, &authServiceMock{getErr: errors.New("redis down")})
		req := httptest.NewRequest(http.MethodGet, "/admin/api/me", nil)
		req.Header.Set(middleware.TokenHeader, "tok-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		resp := decode(t, rec)
		assert.Nil(t, resp.User)
		assert.False(t, resp.Authorized)
	})
}
