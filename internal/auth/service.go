package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knwebagency/backend/pkg"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSessionTTL = 24 * 7 * time.Hour
	sessionKeyPrefix  = "kn-service-session||"
	tokensSetKey      = "kn-service-sessions"
	// fallback per-account cap when the config carries none
	defaultLoginAttemptsPerMin = 5
)

type usersRepo interface {
	GetByEmail(ctx context.Context, email string) (*AdminUser, error)
}

type loginRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// Service performs credential sign-in / sign-out against the admin_users
// table and keeps the resulting sessions in redis. Reads go through the
// injected SessionCache.
type Service struct {
	redisClient    *redis.Client
	users          usersRepo
	cache          *SessionCache
	ttl            time.Duration
	limiter        loginRateLimiter
	attemptsPerMin int
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	// NowFunc is injectable for TTL tests
	NowFunc func() time.Time
}

func NewService(
	users usersRepo,
	cache *SessionCache,
	ttl time.Duration,
	redisClient *redis.Client,
	attemptsPerMin int,
) *Service {
	if attemptsPerMin <= 0 {
		attemptsPerMin = defaultLoginAttemptsPerMin
	}
	return &Service{
		redisClient:    redisClient,
		users:          users,
		cache:          cache,
		ttl:            ttl,
		limiter:        redis_rate.NewLimiter(redisClient),
		attemptsPerMin: attemptsPerMin,
		RandStringFunc: pkg.GenerateRandomString,
		NowFunc:        time.Now,
	}
}

// SignIn verifies the credentials and creates a new session. The returned
// errors are classified: ErrInvalidCredentials, ErrAccountNotConfirmed,
// ErrTooManyRequests, or a wrapped generic failure.
func (as *Service) SignIn(ctx context.Context, creds Credentials) (*Principal, string, error) {
	limitKey := "login::" + strings.ToLower(strings.TrimSpace(creds.Email))
	res, err := as.limiter.Allow(ctx, limitKey, redis_rate.PerMinute(as.attemptsPerMin))
	if err != nil {
		// degraded throttle beats a locked-out admin
		log.Errorf("login rate limit for %s: %s", creds.Email, err)
	} else if res.Allowed == 0 {
		log.Tracef("login attempts exhausted for: %s", creds.Email)
		return nil, "", ErrTooManyRequests
	}

	user, err := as.users.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		log.Tracef("failed login attempt for: %s", user.Email)
		return nil, "", ErrInvalidCredentials
	}

	if !user.Confirmed {
		return nil, "", ErrAccountNotConfirmed
	}

	token, err := as.RandStringFunc(35)
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := as.NowFunc()
	session := &Session{
		Token:     token,
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(as.ttl),
	}

	raw, err := json.Marshal(session)
	if err != nil {
		return nil, "", fmt.Errorf("marshal session: %w", err)
	}

	if err := as.redisClient.Set(ctx, sessionKeyPrefix+token, raw, 0).Err(); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	// token also goes to the set of all sessions, for the cleanup sweep
	if err := as.redisClient.SAdd(ctx, tokensSetKey, token).Err(); err != nil {
		return nil, "", fmt.Errorf("register session token: %w", err)
	}

	as.cache.Invalidate(token)

	return session.Principal(), token, nil
}

// SignOut revokes the session. Idempotent: a missing or already revoked
// session is not an error.
func (as *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
		return fmt.Errorf("deregister session token: %w", err)
	}

	as.cache.Invalidate(token)

	return nil
}

// GetSession returns the session behind the token, or nil when there is
// none (expired included). An error means the session store itself failed.
func (as *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	now := as.NowFunc()

	if s, ok := as.cache.GetSession(token); ok {
		if s.Expired(now) {
			return nil, nil
		}
		return s, nil
	}

	cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(cmd.Val()), &s); err != nil {
		log.Errorf("unmarshal stored session: %s", err)
		return nil, nil
	}

	if s.Expired(now) {
		// lazy cleanup, the sweep will catch stragglers anyway
		if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Errorf("delete expired session: %s", err)
		}
		return nil, nil
	}

	as.cache.SetSession(token, &s)

	return &s, nil
}

// GetPrincipal is the single source of truth for "who is this token",
// used by the route guard and the admin session-state endpoint.
func (as *Service) GetPrincipal(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, nil
	}

	if p, ok := as.cache.GetPrincipal(token); ok {
		return p, nil
	}

	s, err := as.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}

	p := s.Principal()
	as.cache.SetPrincipal(token, p)

	return p, nil
}

// ScanAndClean will run through all sessions, check the expiry, and remove the old ones
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionTokens := cmd.Val()
	if len(sessionTokens) == 0 {
		log.Warnln("=> auth service, scan and clean abort, no sessions")
		return
	}

	log.Warnf("=> auth service, scan and clean [%d sessions] start ...", len(sessionTokens))
	now := as.NowFunc()
	var toRemove []string
	for _, token := range sessionTokens {
		cmd := as.redisClient.Get(ctx, sessionKeyPrefix+token)
		if err := cmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				// record gone, token forgotten in the set
				toRemove = append(toRemove, token)
				continue
			}
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			continue
		}

		var s Session
		if err := json.Unmarshal([]byte(cmd.Val()), &s); err != nil {
			log.Errorf("=> auth service, scan and clean token %s: %s", token, err)
			toRemove = append(toRemove, token)
			continue
		}

		if s.Expired(now) {
			log.Warnf("=>\twill clean the session with token: %s", token)
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		if err := as.redisClient.Del(ctx, sessionKeyPrefix+token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
		if err := as.redisClient.SRem(ctx, tokensSetKey, token).Err(); err != nil {
			log.Errorf("=> auth service, clean token %s: %s", token, err)
			continue
		}
		as.cache.Invalidate(token)
	}
}
