package auth

import (
	"errors"

	"github.com/fekuna/omnipos-stock-verifier/internal/model"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrForbidden   = errors.New("forbidden for role")
)

// CanGovern reports whether the role may approve variances, resolve conflicts
// and assign recounts.
func CanGovern(r model.Role) bool {
	return r == model.RoleSupervisor || r == model.RoleAdmin
}

// RequireGovernance returns ErrNotLoggedIn for a nil user and ErrForbidden for staff.
func RequireGovernance(u *model.User) error {
	if u == nil {
		return ErrNotLoggedIn
	}
	if !CanGovern(u.Role) {
		return ErrForbidden
	}
	return nil
}

// DisplayName is the name stamped into audit fields.
func DisplayName(u *model.User) string {
	if u == nil || u.Name == "" {
		return "unknown"
	}
	return u.Name
}
