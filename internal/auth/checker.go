package auth

import "context"

var _ SessionReader = (*Service)(nil)

// SessionReader is what the route guard and the admin handlers need from
// the auth service: resolve an opaque token to a session / principal.
type SessionReader interface {
	GetSession(ctx context.Context, token string) (*Session, error)
	GetPrincipal(ctx context.Context, token string) (*Principal, error)
}
