package domain

import "fmt"

type Role string

const (
	RoleTracker Role = "tracker" // produces map updates
	RoleTracked Role = "tracked" // follows the tracker
)

func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleTracker, RoleTracked:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

func (r Role) Valid() bool {
	return r == RoleTracker || r == RoleTracked
}

func (r Role) String() string {
	return string(r)
}
