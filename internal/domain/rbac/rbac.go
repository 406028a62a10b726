// Пакет rbac — роли пользователей и их определение по группам IdP.
// Роль выдаётся за членство в группе, UUID которой задан в конфигурации.
// Роль UTVIKLER (разработчик) проходит любую проверку ролей.
package rbac

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
)

// Role — роль пользователя.
type Role string

// Роли, известные сервису.
const (
	RoleArbeidsgiverrettet   Role = "ARBEIDSGIVER_RETTET"
	RoleJobbsokerrettet      Role = "JOBBSOKER_RETTET"
	RoleUtvikler             Role = "UTVIKLER"
	RoleModiaOppfolging      Role = "MODIA_OPPFOLGING"
	RoleModiaGenerellTilgang Role = "MODIA_GENERELL_TILGANG"
)

// AllRoles возвращает все роли в фиксированном порядке.
func AllRoles() []Role {
	return []Role{
		RoleArbeidsgiverrettet,
		RoleJobbsokerrettet,
		RoleUtvikler,
		RoleModiaOppfolging,
		RoleModiaGenerellTilgang,
	}
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return slices.Contains(AllRoles(), Role(role))
}

// RoleSet — множество ролей.
type RoleSet map[Role]struct{}

// NewRoleSet создаёт множество из перечисленных ролей.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Has проверяет наличие роли.
func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

// HasAny проверяет, пересекается ли множество с перечисленными ролями.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Sorted возвращает роли в отсортированном виде (для логов и ответов).
func (s RoleSet) Sorted() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	slices.Sort(out)
	return out
}

// RoleSpec — неизменяемая таблица UUID группы → роль.
// Строится один раз при старте и безопасна для конкурентного чтения.
type RoleSpec struct {
	byGroup map[uuid.UUID]Role
	logger  *slog.Logger
}

// NewRoleSpec создаёт таблицу ролей.
// Одна и та же группа не может давать две разные роли.
func NewRoleSpec(groups map[Role]uuid.UUID, logger *slog.Logger) (*RoleSpec, error) {
	byGroup := make(map[uuid.UUID]Role, len(groups))
	for role, id := range groups {
		if !IsValidRole(string(role)) {
			return nil, fmt.Errorf("неизвестная роль %q", role)
		}
		if id == uuid.Nil {
			return nil, fmt.Errorf("роль %s: пустой UUID группы", role)
		}
		if prev, ok := byGroup[id]; ok && prev != role {
			return nil, fmt.Errorf("группа %s привязана к двум ролям: %s и %s", id, prev, role)
		}
		byGroup[id] = role
	}

	return &RoleSpec{
		byGroup: byGroup,
		logger:  logger.With(slog.String("component", "rbac")),
	}, nil
}

// Resolve определяет роли по списку UUID групп.
// Группы, не привязанные ни к одной роли, пропускаются с предупреждением.
func (s *RoleSpec) Resolve(groups []uuid.UUID) RoleSet {
	roles := make(RoleSet, len(groups))
	for _, g := range groups {
		role, ok := s.byGroup[g]
		if !ok {
			s.logger.Warn("Группа не соответствует ни одной роли",
				slog.String("group", g.String()),
			)
			continue
		}
		roles[role] = struct{}{}
	}
	return roles
}
