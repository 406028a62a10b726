package rbac

import (
	"errors"
	"fmt"
)

// ErrForbidden — у пользователя нет ни одной из требуемых ролей.
var ErrForbidden = errors.New("недостаточно прав")

// Principal — аутентифицированный пользователь текущего запроса.
// Неизменяем после создания.
type Principal struct {
	identifier string
	roles      RoleSet
	token      string
}

// NewPrincipal создаёт пользователя запроса.
// identifier — значение identity claim (NAVident или pid).
func NewPrincipal(identifier string, roles RoleSet, token string) *Principal {
	copied := make(RoleSet, len(roles))
	for r := range roles {
		copied[r] = struct{}{}
	}
	return &Principal{
		identifier: identifier,
		roles:      copied,
		token:      token,
	}
}

// Identifier возвращает идентификатор пользователя.
func (p *Principal) Identifier() string {
	return p.identifier
}

// Roles возвращает роли пользователя в отсортированном виде.
func (p *Principal) Roles() []Role {
	return p.roles.Sorted()
}

// Token возвращает исходный bearer-токен (для вызовов от имени пользователя).
func (p *Principal) Token() string {
	return p.token
}

// RequireAnyOf возвращает ErrForbidden, если у пользователя нет ни одной
// из указанных ролей. Роль UTVIKLER разрешена всегда.
func (p *Principal) RequireAnyOf(allowed ...Role) error {
	if p.roles.Has(RoleUtvikler) || p.roles.HasAny(allowed...) {
		return nil
	}
	return fmt.Errorf("%w: требуется одна из ролей %v или %s", ErrForbidden, allowed, RoleUtvikler)
}
