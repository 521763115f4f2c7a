package domain

import (
	"fmt"
	"strings"
)

// Role is the tagged variant of user kinds recognised by the frontend.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleTeacher
	RoleGuardian
)

// Wire values used by the API in the user profile.
const (
	roleAdminValue    = "admin"
	roleTeacherValue  = "professor"
	roleGuardianValue = "responsavel"
)

// ParseRole converts the API role value into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case roleAdminValue, "administrador":
		return RoleAdmin, nil
	case roleTeacherValue:
		return RoleTeacher, nil
	case roleGuardianValue:
		return RoleGuardian, nil
	default:
		return RoleUnknown, fmt.Errorf("unknown role %q", s)
	}
}

// String returns the API wire value of the role.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return roleAdminValue
	case RoleTeacher:
		return roleTeacherValue
	case RoleGuardian:
		return roleGuardianValue
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if r == RoleUnknown {
		return nil, fmt.Errorf("cannot marshal unknown role")
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
