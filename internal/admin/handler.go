package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/knwebagency/backend/internal/auth"
	"github.com/knwebagency/backend/internal/middleware"
	"github.com/knwebagency/backend/internal/telemetry/metrics"
	"github.com/knwebagency/backend/internal/telemetry/tracing"
	"github.com/knwebagency/backend/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Login error messages shown verbatim by the French admin UI.
const (
	msgInvalidCredentials = "Email ou mot de passe incorrect"
	msgNotConfirmed       = "Veuillez confirmer votre email avant de vous connecter"
	msgTooManyAttempts    = "Trop de tentatives. Veuillez réessayer plus tard"
	msgLoginError         = "Erreur de connexion. Veuillez réessayer"
)

type authService interface {
	SignIn(ctx context.Context, creds auth.Credentials) (*auth.Principal, string, error)
	SignOut(ctx context.Context, token string) error
	GetPrincipal(ctx context.Context, token string) (*auth.Principal, error)
}

// Handler owns the admin session endpoints: login, logout and the
// session-state probe the admin UI polls after client side navigation.
type Handler struct {
	signer       authService
	allowList    *auth.AllowList
	metrics      *metrics.Manager
	sessionTTL   time.Duration
	cookieSecure bool
}

func NewHandler(
	signer authService,
	allowList *auth.AllowList,
	metricsManager *metrics.Manager,
	sessionTTL time.Duration,
	cookieSecure bool,
) *Handler {
	return &Handler{
		signer:       signer,
		allowList:    allowList,
		metrics:      metricsManager,
		sessionTTL:   sessionTTL,
		cookieSecure: cookieSecure,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/login", handler.handleLogin).Methods("POST", "OPTIONS").Name("admin-login")
	router.HandleFunc("/logout", handler.handleLogout).Methods("GET", "POST", "OPTIONS").Name("admin-logout")
	router.HandleFunc("/me", handler.handleMe).Methods("GET", "OPTIONS").Name("admin-me")
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var creds auth.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		http.Error(w, msgLoginError, http.StatusBadRequest)
		return
	}

	if creds.Email == "" || creds.Password == "" {
		http.Error(w, msgInvalidCredentials, http.StatusBadRequest)
		return
	}

	principal, token, err := handler.signer.SignIn(ctx, creds)
	if err != nil {
		handler.metrics.CounterLoginFailures.Inc()
		span.SetAttributes(attribute.Bool("login.failed", true))
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			log.Tracef("failed login attempt for: %s", creds.Email)
			http.Error(w, msgInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, auth.ErrAccountNotConfirmed):
			http.Error(w, msgNotConfirmed, http.StatusForbidden)
		case errors.Is(err, auth.ErrTooManyRequests):
			http.Error(w, msgTooManyAttempts, http.StatusTooManyRequests)
		default:
			log.Errorf("login for %s: %s", creds.Email, err)
			span.RecordError(err)
			http.Error(w, msgLoginError, http.StatusInternalServerError)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(handler.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	principalJson, err := json.Marshal(principal)
	if err != nil {
		log.Errorf("login, marshal principal: %s", err)
		http.Error(w, msgLoginError, http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success for: %s", principal.Email)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"success": true, "token": %q, "user": %s}`, token, principalJson))
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	// sign out is idempotent, an empty or unknown token is still a success
	token := middleware.ReadSessionToken(r)
	if err := handler.signer.SignOut(ctx, token); err != nil {
		log.Errorf("logout: %s", err)
		span.RecordError(err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	pkg.WriteJSONResponseOK(w, `{"success": true}`)
}

// handleMe reports the session state without ever failing: the admin UI uses
// it to decide what to render, so "no session" and "store down" both come
// back as a null user with status 200.
func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "adminHandler.me")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	principal, err := handler.signer.GetPrincipal(ctx, middleware.ReadSessionToken(r))
	if err != nil {
		log.Errorf("session state check: %s", err)
		span.RecordError(err)
		principal = nil
	}

	if principal == nil {
		pkg.WriteJSONResponseOK(w, `{"user": null, "authorized": false}`)
		return
	}

	principalJson, err := json.Marshal(principal)
	if err != nil {
		log.Errorf("session state check, marshal principal: %s", err)
		pkg.WriteJSONResponseOK(w, `{"user": null, "authorized": false}`)
		return
	}

	authorized := handler.allowList.IsAuthorized(principal)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"user": %s, "authorized": %t}`, principalJson, authorized))
}
