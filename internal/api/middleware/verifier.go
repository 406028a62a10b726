// verifier.go — проверка bearer-токенов набором стратегий.
// Каждый realm даёт две стратегии, по одной на identity claim
// (NAVident для сотрудников, pid для граждан). Стратегии пробуются
// по порядку, первая успешная побеждает.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity claims в порядке проверки.
const (
	ClaimNAVident = "NAVident"
	ClaimPID      = "pid"
)

// claimGroups — claim со списком UUID групп пользователя.
const claimGroups = "groups"

// ErrUnauthorized — токен отсутствует или не прошёл ни одну проверку.
var ErrUnauthorized = errors.New("не авторизован")

// VerifiedToken — результат успешной проверки токена.
type VerifiedToken struct {
	// Realm — имя realm, чья стратегия приняла токен
	Realm string
	// IdentityClaim — имя identity claim стратегии (NAVident или pid)
	IdentityClaim string
	// Identifier — значение identity claim
	Identifier string
	// Groups — значения claim groups как есть
	Groups []string
}

// TokenVerifier — стратегия проверки токена.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*VerifiedToken, error)
}

// claimVerifier проверяет подпись RS256, issuer, audience, exp
// и наличие одного identity claim.
type claimVerifier struct {
	realm  string
	claim  string
	keys   KeySource
	parser *jwt.Parser
}

// NewRealmVerifiers создаёт стратегии realm: сначала NAVident, затем pid.
func NewRealmVerifiers(realm, issuer, audience string, keys KeySource, leeway time.Duration) []TokenVerifier {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)

	verifiers := make([]TokenVerifier, 0, 2)
	for _, claim := range []string{ClaimNAVident, ClaimPID} {
		verifiers = append(verifiers, &claimVerifier{
			realm:  realm,
			claim:  claim,
			keys:   keys,
			parser: parser,
		})
	}
	return verifiers
}

func (v *claimVerifier) Verify(ctx context.Context, rawToken string) (*VerifiedToken, error) {
	claims := jwt.MapClaims{}
	token, err := v.parser.ParseWithClaims(rawToken, claims, v.keys.KeyfuncCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("realm %s, claim %s: %w", v.realm, v.claim, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("realm %s, claim %s: невалидный токен", v.realm, v.claim)
	}

	identifier, ok := claims[v.claim].(string)
	if !ok || identifier == "" {
		return nil, fmt.Errorf("realm %s: отсутствует claim %s", v.realm, v.claim)
	}

	return &VerifiedToken{
		Realm:         v.realm,
		IdentityClaim: v.claim,
		Identifier:    identifier,
		Groups:        stringList(claims[claimGroups]),
	}, nil
}

// stringList приводит значение claim к списку строк.
// Нестроковые элементы пропускаются.
func stringList(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{val}
	default:
		return nil
	}
}

// VerifierChain — упорядоченный список стратегий.
// Первая успешная стратегия побеждает, повторных попыток нет.
type VerifierChain struct {
	verifiers []TokenVerifier
	logger    *slog.Logger
}

// NewVerifierChain создаёт цепочку стратегий в заданном порядке.
func NewVerifierChain(logger *slog.Logger, verifiers ...TokenVerifier) *VerifierChain {
	return &VerifierChain{
		verifiers: verifiers,
		logger:    logger.With(slog.String("component", "token_verifier")),
	}
}

// Len возвращает количество стратегий.
func (c *VerifierChain) Len() int {
	return len(c.verifiers)
}

// Verify проверяет токен всеми стратегиями по порядку.
// Если ни одна не приняла токен, пишет одну запись ERROR без содержимого
// токена и возвращает ErrUnauthorized.
func (c *VerifierChain) Verify(ctx context.Context, rawToken string) (*VerifiedToken, error) {
	errs := make([]error, 0, len(c.verifiers))
	for _, v := range c.verifiers {
		verified, err := v.Verify(ctx, rawToken)
		if err == nil {
			return verified, nil
		}
		errs = append(errs, err)
	}

	joined := errors.Join(errs...)
	attrs := []any{slog.Int("strategies", len(c.verifiers))}
	if joined != nil {
		attrs = append(attrs, slog.String("error", joined.Error()))
	}
	c.logger.Error("Токен не прошёл ни одну проверку", attrs...)

	return nil, fmt.Errorf("%w: токен не прошёл проверку", ErrUnauthorized)
}
