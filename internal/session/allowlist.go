package session

import "strings"

// Allowlist is the set of emails permitted into the admin surface. The zero
// value denies everyone.
type Allowlist struct {
	emails map[string]struct{}
}

// ParseAllowlist splits a comma-separated list, trimming and lowercasing
// each entry and dropping empties.
func ParseAllowlist(s string) Allowlist {
	a := Allowlist{emails: make(map[string]struct{})}
	for _, e := range strings.Split(s, ",") {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	return a
}

func (a Allowlist) Allowed(email string) bool {
	if len(a.emails) == 0 {
		return false
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := a.emails[email]
	return ok
}

func (a Allowlist) Len() int { return len(a.emails) }
