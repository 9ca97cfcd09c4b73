package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/knwebagency/backend/internal/auth"
	"github.com/knwebagency/backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const (
	AdminPathPrefix  = "/admin"
	LoginPath        = "/admin/login"
	UnauthorizedPath = "/admin/unauthorized"
	DashboardPath    = "/admin/dashboard"

	SessionCookieName = "kn_session"
	TokenHeader       = "X-KN-TOKEN"
)

type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToDashboard
	RedirectToUnauthorized
)

// Decide is the single admin-gate policy, shared by the edge guard and the
// session-state endpoint so the two can never drift apart.
func Decide(path string, hasSession, authorized bool) Decision {
	if path == LoginPath {
		if hasSession {
			return RedirectToDashboard
		}
		return Allow
	}

	if !underAdminPrefix(path) || path == UnauthorizedPath {
		return Allow
	}

	if !hasSession {
		return RedirectToLogin
	}
	if !authorized {
		return RedirectToUnauthorized
	}
	return Allow
}

func underAdminPrefix(path string) bool {
	return path == AdminPathPrefix || strings.HasPrefix(path, AdminPathPrefix+"/")
}

// ReadSessionToken pulls the session token out of the request: cookie
// first (browser navigations), then the header used by the admin SPA.
func ReadSessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get(TokenHeader)
}

// AdminGuard gates every request under the admin path prefix before it
// reaches page logic. A session-store failure degrades to Allow, so a
// transient identity outage does not lock the whole site out.
type AdminGuard struct {
	sessions     auth.SessionReader
	allowList    *auth.AllowList
	allowedPaths map[string]bool
}

func NewAdminGuard(
	sessions auth.SessionReader,
	allowList *auth.AllowList,
) *AdminGuard {
	return &AdminGuard{
		sessions:  sessions,
		allowList: allowList,
		allowedPaths: map[string]bool{
			// auth endpoints must stay reachable without a session
			"/admin/api/login":  true,
			"/admin/api/logout": true,
			"/admin/api/me":     true,
		},
	}
}

func (g *AdminGuard) Gate() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.adminGuard")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			path := r.URL.Path
			if !underAdminPrefix(path) || g.allowedPaths[path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			hasSession := false
			authorized := false

			principal, err := g.sessions.GetPrincipal(ctx, ReadSessionToken(r))
			if err != nil {
				// fail open: a session store outage must not take down
				// every admin-prefixed asset with it
				log.Errorf("admin guard, principal lookup for %s: %s", path, err)
				span.SetStatus(codes.Error, "principal-lookup-err")
				span.RecordError(err)
				next.ServeHTTP(w, r)
				return
			}
			if principal != nil {
				hasSession = true
				authorized = g.allowList.IsAuthorized(principal)
				ctx = ContextWithPrincipal(ctx, principal)
				r = r.WithContext(ctx)
			}

			switch Decide(path, hasSession, authorized) {
			case RedirectToLogin:
				log.Tracef("admin guard: no session => %s", path)
				span.SetStatus(codes.Ok, "redirect-login")
				http.Redirect(w, r, LoginPath+"?returnUrl="+url.QueryEscape(path), http.StatusFound)
			case RedirectToDashboard:
				span.SetStatus(codes.Ok, "redirect-dashboard")
				http.Redirect(w, r, safeReturnURL(r.URL.Query().Get("returnUrl")), http.StatusFound)
			case RedirectToUnauthorized:
				log.Warnf("admin guard: access denied for %s => %s", principal.Email, path)
				span.SetStatus(codes.Ok, "redirect-unauthorized")
				http.Redirect(w, r, UnauthorizedPath, http.StatusFound)
			default:
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
			}
		})
	}
}

type contextKey string

const principalContextKey contextKey = "admin-principal"

func ContextWithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext returns the admin behind the request, nil when the
// request did not carry an authorized session.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalContextKey).(*auth.Principal)
	return p
}

// safeReturnURL keeps post-login redirects on-site.
func safeReturnURL(returnURL string) string {
	if returnURL == "" || !strings.HasPrefix(returnURL, "/") || strings.HasPrefix(returnURL, "//") {
		return DashboardPath
	}
	return returnURL
}
