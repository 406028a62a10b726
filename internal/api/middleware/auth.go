// auth.go — middleware доступа к маршрутам bruker-api.
// Каждый маршрут объявляется ровно с одним уровнем доступа: PUBLIC или PROTECTED.
// Для PROTECTED токен из заголовка Authorization проверяется цепочкой
// стратегий, группы из claim groups маппятся в роли, а Principal
// кладётся в контекст запроса.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	apierrors "github.com/bigkaa/bruker-api/internal/api/errors"
	"github.com/bigkaa/bruker-api/internal/domain/rbac"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

// contextKeyPrincipal — аутентифицированный Principal в контексте запроса.
const contextKeyPrincipal contextKey = "principal"

// Access — уровень доступа маршрута.
type Access int

const (
	// AccessPublic — маршрут без аутентификации.
	AccessPublic Access = iota + 1
	// AccessProtected — маршрут требует валидный bearer-токен.
	AccessProtected
)

// String возвращает название уровня доступа.
func (a Access) String() string {
	switch a {
	case AccessPublic:
		return "PUBLIC"
	case AccessProtected:
		return "PROTECTED"
	default:
		return fmt.Sprintf("Access(%d)", int(a))
	}
}

// ErrInvalidAccess — объявление доступа маршрута некорректно.
var ErrInvalidAccess = errors.New("некорректное объявление доступа")

// Guard — проверка доступа к маршрутам.
type Guard struct {
	verifier TokenVerifier
	roles    *rbac.RoleSpec
	logger   *slog.Logger
}

// NewGuard создаёт Guard.
// verifier — цепочка стратегий проверки токена, roles — маппинг групп в роли.
func NewGuard(verifier TokenVerifier, roles *rbac.RoleSpec, logger *slog.Logger) *Guard {
	return &Guard{
		verifier: verifier,
		roles:    roles,
		logger:   logger.With(slog.String("component", "access_guard")),
	}
}

// Require возвращает middleware для объявленного доступа маршрута.
// Список должен содержать ровно один из AccessPublic, AccessProtected.
func (g *Guard) Require(access ...Access) (func(http.Handler) http.Handler, error) {
	if len(access) != 1 {
		return nil, fmt.Errorf("%w: ожидался ровно один уровень доступа, получено %d",
			ErrInvalidAccess, len(access))
	}

	switch access[0] {
	case AccessPublic:
		return func(next http.Handler) http.Handler { return next }, nil
	case AccessProtected:
		return g.protect, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccess, access[0])
	}
}

// protect — middleware для PROTECTED маршрутов.
func (g *Guard) protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := bearerToken(r.Header.Get("Authorization"))
		if rawToken == "" {
			apierrors.Unauthorized(w, "Отсутствует токен авторизации")
			return
		}

		verified, err := g.verifier.Verify(r.Context(), rawToken)
		if err != nil {
			apierrors.Unauthorized(w, "Невалидный токен")
			return
		}

		roles := g.roles.Resolve(g.groupUUIDs(verified.Groups))
		principal := rbac.NewPrincipal(verified.Identifier, roles, rawToken)
		annotateRequest(r.Context(), verified.Realm, verified.Identifier)

		g.logger.Debug("Запрос аутентифицирован",
			slog.String("realm", verified.Realm),
			slog.String("claim", verified.IdentityClaim),
			slog.Any("roles", principal.Roles()),
		)

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// groupUUIDs разбирает значения claim groups. Значения, не являющиеся
// UUID, пропускаются с предупреждением.
func (g *Guard) groupUUIDs(groups []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(groups))
	for _, raw := range groups {
		id, err := uuid.Parse(raw)
		if err != nil {
			g.logger.Warn("Группа в токене не является UUID, пропускаем",
				slog.String("group", raw),
			)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// bearerToken извлекает токен из значения заголовка Authorization.
func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// WithPrincipal возвращает контекст с Principal.
func WithPrincipal(ctx context.Context, p *rbac.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext извлекает Principal из контекста запроса.
// Возвращает nil, если запрос не прошёл PROTECTED middleware.
func PrincipalFromContext(ctx context.Context) *rbac.Principal {
	p, _ := ctx.Value(contextKeyPrincipal).(*rbac.Principal)
	return p
}
