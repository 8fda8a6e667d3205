package models

import "time"

// Role は画面の出し分けに使うロール
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleDictator Role = "Dictator"
	RoleSponsor  Role = "Sponsor"
)

// Roles lists every recognized role.
var Roles = []Role{RoleAdmin, RoleDictator, RoleSponsor}

// ParseRole returns the role named by s and whether it is recognized.
// Matching is exact, the game API issues capitalized role names.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Path returns the lower-case URL prefix used by the role's pages and API routes.
func (r Role) Path() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleDictator:
		return "dictator"
	case RoleSponsor:
		return "sponsor"
	}
	return ""
}

// Session is the identity decoded from a game API token. It is never
// mutated; login replaces it and logout or expiry destroys it.
type Session struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Username  string     `json:"username"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	// SID is the browser session id the token is stored under.
	SID   string `json:"-"`
	Token string `json:"-"`
}

// Expired reports whether the session carries an expiry that has passed.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}
