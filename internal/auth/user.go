package auth

import (
	"context"
	"fmt"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
)

var roleLevels = map[Role]int{
	RoleEmployee: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

// Level places the role in the Employee < Manager < Admin hierarchy. Unknown roles are 0.
func (r Role) Level() int {
	return roleLevels[r]
}

func (r Role) Valid() bool {
	return r.Level() > 0
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func Roles() []string {
	return []string{string(RoleAdmin), string(RoleManager), string(RoleEmployee)}
}

// Principal is an authenticated employee with its resolved role and permissions.
type Principal struct {
	ID          string          `json:"id"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Role        Role            `json:"role"`
	Department  string          `json:"department,omitempty"`
	Status      string          `json:"status"`
	Permissions map[string]bool `json:"permissions"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Principal) IsManager() bool {
	return p != nil && p.Role == RoleManager
}

func (p *Principal) IsEmployee() bool {
	return p != nil && p.Role == RoleEmployee
}

type ctxKey string

const ContextPrincipalKey ctxKey = "principal"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextPrincipalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ContextPrincipalKey).(*Principal)
	return p, ok && p != nil
}
