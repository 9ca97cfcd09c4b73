package auth

import (
	"encoding/json"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

// DefaultCacheTTL bounds how long a principal/session lookup result is
// served without consulting the session store again.
const DefaultCacheTTL = 60 * time.Second

const sessionCacheSize = 2 * 1024 * 1024 // 2 MB, plenty for session records

// SessionCache is a small TTL cache in front of "who is this token"
// lookups. Principal and session entries live in independent slots.
// Entries are fail-closed: anything that cannot be decoded is a miss.
type SessionCache struct {
	cache *freecache.Cache
	ttl   time.Duration
}

func NewSessionCache(ttl time.Duration) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &SessionCache{
		cache: freecache.NewCache(sessionCacheSize),
		ttl:   ttl,
	}
}

func principalKey(token string) []byte { return []byte("p||" + token) }
func sessionKey(token string) []byte   { return []byte("s||" + token) }

func (sc *SessionCache) GetPrincipal(token string) (*Principal, bool) {
	raw, err := sc.cache.Get(principalKey(token))
	if err != nil {
		// freecache returns ErrNotFound for both missing and expired
		return nil, false
	}

	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Errorf("session cache: unmarshal cached principal: %s", err)
		return nil, false
	}
	return &p, true
}

func (sc *SessionCache) SetPrincipal(token string, p *Principal) {
	raw, err := json.Marshal(p)
	if err != nil {
		log.Errorf("session cache: marshal principal: %s", err)
		return
	}
	if err := sc.cache.Set(principalKey(token), raw, int(sc.ttl.Seconds())); err != nil {
		log.Errorf("session cache: set principal: %s", err)
	}
}

func (sc *SessionCache) GetSession(token string) (*Session, bool) {
	raw, err := sc.cache.Get(sessionKey(token))
	if err != nil {
		return nil, false
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Errorf("session cache: unmarshal cached session: %s", err)
		return nil, false
	}
	return &s, true
}

func (sc *SessionCache) SetSession(token string, s *Session) {
	raw, err := json.Marshal(s)
	if err != nil {
		log.Errorf("session cache: marshal session: %s", err)
		return
	}
	if err := sc.cache.Set(sessionKey(token), raw, int(sc.ttl.Seconds())); err != nil {
		log.Errorf("session cache: set session: %s", err)
	}
}

// Invalidate clears both slots for the token. Called after sign-in and
// sign-out so stale identity data is never served.
func (sc *SessionCache) Invalidate(token string) {
	sc.cache.Del(principalKey(token))
	sc.cache.Del(sessionKey(token))
}
