package authz

import (
	"fmt"
	"strings"
)

// Check - одно правило доступа.
type Check interface {
	Allow(c *Context) bool
	String() string
}

type HasRole struct {
	Code string
}

func (h HasRole) Allow(c *Context) bool {
	u := c.Actor()
	return u != nil && u.IsActive && strings.EqualFold(u.RoleCode, h.Code)
}

func (h HasRole) String() string { return fmt.Sprintf("role(%s)", h.Code) }

type IsSuperuser struct{}

func (IsSuperuser) Allow(c *Context) bool {
	u := c.Actor()
	if u == nil || !u.IsActive {
		return false
	}
	return u.IsSuperuser || c.HasPermission(Superuser)
}

func (IsSuperuser) String() string { return "superuser" }

type IsEmergencyAdmin struct{}

func (IsEmergencyAdmin) Allow(c *Context) bool {
	_, ok := c.Mode.(EmergencyFallbackMode)
	return ok
}

func (IsEmergencyAdmin) String() string { return "emergency-admin" }

type HasPermission struct {
	Name string
}

func (h HasPermission) Allow(c *Context) bool {
	u := c.Actor()
	return u != nil && u.IsActive && c.HasPermission(h.Name)
}

func (h HasPermission) String() string { return "perm(" + h.Name + ")" }

type AnyOf []Check

func (a AnyOf) Allow(c *Context) bool {
	for _, check := range a {
		if check != nil && check.Allow(c) {
			return true
		}
	}
	return false
}

func (a AnyOf) String() string {
	parts := make([]string, 0, len(a))
	for _, check := range a {
		parts = append(parts, check.String())
	}
	return "any(" + strings.Join(parts, ", ") + ")"
}

// AdminOr - суперпользователь, аварийный администратор или право permission.
func AdminOr(permission string) Check {
	return AnyOf{IsSuperuser{}, IsEmergencyAdmin{}, HasPermission{Name: permission}}
}
