package auth

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// AllowList is the static set of admin email addresses, loaded once at
// process start and immutable afterwards. Matching is case-insensitive.
//
// An empty list denies everyone unless allowAllWhenEmpty was explicitly
// set; that opt-in exists for first deployments only and every
// authorization it grants is logged as a warning.
type AllowList struct {
	emails            map[string]struct{}
	allowAllWhenEmpty bool
}

func NewAllowList(commaSeparated string, allowAllWhenEmpty bool) *AllowList {
	emails := make(map[string]struct{})
	for _, e := range strings.Split(commaSeparated, ",") {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		emails[e] = struct{}{}
	}

	if len(emails) == 0 {
		if allowAllWhenEmpty {
			log.Warnln("admin allow-list is empty and allow_all_when_empty_allow_list is set: ALL authenticated users will be treated as admins")
		} else {
			log.Errorln("admin allow-list is empty: nobody will pass admin authorization (set KN_ADMIN_EMAILS, or opt in with allow_all_when_empty_allow_list)")
		}
	}

	return &AllowList{
		emails:            emails,
		allowAllWhenEmpty: allowAllWhenEmpty,
	}
}

func (al *AllowList) Size() int {
	return len(al.emails)
}

func (al *AllowList) IsAuthorized(p *Principal) bool {
	if p == nil {
		return false
	}

	if len(al.emails) == 0 {
		if al.allowAllWhenEmpty {
			log.Warnf("empty allow-list fail-open exercised: authorizing %s", p.Email)
			return true
		}
		return false
	}

	_, ok := al.emails[strings.ToLower(p.Email)]
	return ok
}
