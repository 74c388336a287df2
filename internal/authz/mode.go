package authz

import (
	"context"
	"sort"

	"warehouse-system/internal/entities"
	"warehouse-system/pkg/contextkeys"
)

// AuthenticationMode - как аутентифицирован запрос: NormalMode или EmergencyFallbackMode.
type AuthenticationMode interface {
	isAuthenticationMode()
}

// NormalMode - пользователь из базы, проверенный по токену.
type NormalMode struct {
	User *entities.User
}

// EmergencyFallbackMode - база недоступна, включён аварийный администратор.
type EmergencyFallbackMode struct{}

func (NormalMode) isAuthenticationMode()            {}
func (EmergencyFallbackMode) isAuthenticationMode() {}

// Context - всё, что нужно для проверки прав в обработчике.
type Context struct {
	Mode        AuthenticationMode
	Permissions map[string]bool
}

func NewNormalContext(user *entities.User, permissions []string) *Context {
	perms := make(map[string]bool, len(permissions))
	for _, p := range permissions {
		perms[p] = true
	}
	return &Context{Mode: NormalMode{User: user}, Permissions: perms}
}

func NewEmergencyContext() *Context {
	return &Context{Mode: EmergencyFallbackMode{}, Permissions: map[string]bool{}}
}

// Actor - пользователь запроса, nil в аварийном режиме.
func (c *Context) Actor() *entities.User {
	if m, ok := c.Mode.(NormalMode); ok {
		return m.User
	}
	return nil
}

// Username - имя для журнала загрузок.
func (c *Context) Username() string {
	switch m := c.Mode.(type) {
	case NormalMode:
		if m.User != nil {
			return m.User.Username
		}
	case EmergencyFallbackMode:
		return EmergencyUID
	}
	return ""
}

func (c *Context) HasPermission(permission string) bool {
	return c.Permissions[permission]
}

func (c *Context) PermissionList() []string {
	out := make([]string, 0, len(c.Permissions))
	for p, ok := range c.Permissions {
		if ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Can проверяет одно правило.
func (c *Context) Can(check Check) bool {
	if c == nil || check == nil {
		return false
	}
	return check.Allow(c)
}

func WithContext(ctx context.Context, ac *Context) context.Context {
	return context.WithValue(ctx, contextkeys.AuthContextKey, ac)
}

func FromContext(ctx context.Context) (*Context, bool) {
	ac, ok := ctx.Value(contextkeys.AuthContextKey).(*Context)
	return ac, ok && ac != nil
}
