// keys.go — источники публичных ключей JWT для доверенных realm.
// Ключи загружаются из JWKS (jwkset + keyfunc), найденный по kid ключ
// кэшируется в LRU с ограниченным временем жизни.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// KeySource — источник ключей проверки подписи JWT.
// Реализуется keyfunc.Keyfunc и CachedKeySource.
type KeySource interface {
	KeyfuncCtx(ctx context.Context) jwt.Keyfunc
}

// JWKSOptions — параметры загрузки JWKS.
type JWKSOptions struct {
	// ClientTimeout — таймаут HTTP-клиента JWKS
	ClientTimeout time.Duration
	// RefreshInterval — интервал фонового обновления JWKS
	RefreshInterval time.Duration
	// CACertPath — опциональный путь к CA-сертификату
	CACertPath string
	// CacheSize — количество ключей в LRU-кэше
	CacheSize int
	// CacheTTL — время жизни ключа в кэше
	CacheTTL time.Duration
}

// NewJWKSKeySource создаёт источник ключей для JWKS URL с фоновым
// обновлением и LRU-кэшем ключей по kid.
func NewJWKSKeySource(jwksURL string, opts JWKSOptions, logger *slog.Logger) (*CachedKeySource, error) {
	httpClient, err := jwksHTTPClient(opts.CACertPath, opts.ClientTimeout)
	if err != nil {
		return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", opts.CACertPath, err)
	}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           opts.RefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewCachedKeySource(k, opts.CacheSize, opts.CacheTTL), nil
}

// jwksHTTPClient создаёт HTTP-клиент для JWKS, при необходимости
// с дополнительным CA-сертификатом.
func jwksHTTPClient(caCertPath string, timeout time.Duration) (*http.Client, error) {
	if caCertPath == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("файл не содержит PEM-сертификатов")
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}

// CachedKeySource — KeySource с LRU-кэшем найденных ключей по kid.
// За время жизни записи ключ с одним kid запрашивается у JWKS не более одного раза.
type CachedKeySource struct {
	inner KeySource
	cache *expirable.LRU[string, any]
}

// NewCachedKeySource оборачивает источник ключей LRU-кэшем.
func NewCachedKeySource(inner KeySource, size int, ttl time.Duration) *CachedKeySource {
	return &CachedKeySource{
		inner: inner,
		cache: expirable.NewLRU[string, any](size, nil, ttl),
	}
}

// KeyfuncCtx возвращает jwt.Keyfunc, сначала проверяющую кэш по kid.
func (c *CachedKeySource) KeyfuncCtx(ctx context.Context) jwt.Keyfunc {
	innerFn := c.inner.KeyfuncCtx(ctx)
	return func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid != "" {
			if key, ok := c.cache.Get(kid); ok {
				return key, nil
			}
		}

		key, err := innerFn(token)
		if err != nil {
			return nil, err
		}
		if kid != "" {
			c.cache.Add(kid, key)
		}
		return key, nil
	}
}

// Len возвращает количество ключей в кэше.
func (c *CachedKeySource) Len() int {
	return c.cache.Len()
}

// --- ReadinessChecker для JWKS ---

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// JWKSReadinessChecker — проверка доступности JWKS endpoint realm.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS.
func NewJWKSReadinessChecker(jwksURL, caCertPath string, timeout time.Duration) (*JWKSReadinessChecker, error) {
	client, err := jwksHTTPClient(caCertPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("загрузка CA для readiness checker: %w", err)
	}

	return &JWKSReadinessChecker{
		jwksURL: jwksURL,
		client:  client,
	}, nil
}

// CheckReady проверяет, что JWKS отвечает 200 и содержит хотя бы один ключ.
func (k *JWKSReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), k.client.Timeout+time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // URL из конфигурации realm
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return statusDegraded, fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return statusDegraded, "JWKS: нет ключей"
	}

	return statusOK, fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
