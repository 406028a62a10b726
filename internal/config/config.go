// Пакет config — загрузка и валидация конфигурации bruker-api
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Realm — одна доверенная связка issuer + audience + JWKS.
type Realm struct {
	// Name — имя realm (используется в логах и именах зависимостей)
	Name string
	// Issuer — ожидаемый iss в токене
	Issuer string
	// Audience — ожидаемый aud в токене
	Audience string
	// JWKSURL — URL набора публичных ключей
	JWKSURL string
}

// RoleGroups — UUID групп IdP, дающих соответствующие роли.
type RoleGroups struct {
	Arbeidsgiverrettet   uuid.UUID
	Jobbsokerrettet      uuid.UUID
	Utvikler             uuid.UUID
	ModiaOppfolging      uuid.UUID
	ModiaGenerellTilgang uuid.UUID
}

// Config содержит все параметры конфигурации bruker-api.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	// URL базы данных без учётных данных (postgres://host:port/db?sslmode=...)
	DBURL string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Максимальный размер пула соединений
	DBMaxConns int32
	// Минимальное количество простаивающих соединений
	DBMinConns int32

	// --- Аутентификация ---

	// Realms — доверенные realm в порядке проверки
	Realms []Realm
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал фонового обновления JWKS
	JWKSRefreshInterval time.Duration
	// Количество ключей в LRU-кэше на один realm
	JWKSKeyCacheSize int
	// Время жизни ключа в кэше
	JWKSKeyCacheTTL time.Duration
	// Путь к CA-сертификату для JWKS (опционально)
	JWKSCACertPath string
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Маппинг групп → ролей ---

	RoleGroups RoleGroups

	// --- Обратная связь ---

	// Размер страницы списка обратной связи
	FeedbackPageSize int

	// --- topologymetrics ---

	DephealthEnabled       bool
	DephealthGroup         string
	DephealthCheckInterval time.Duration
	// Сервис — точка входа в графе зависимостей
	DephealthIsEntry bool

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// BA_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("BA_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("BA_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("BA_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("BA_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("BA_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("BA_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("BA_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("BA_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("BA_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("BA_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// BA_DB_URL — обязательный
	cfg.DBURL, err = getEnvRequired("BA_DB_URL")
	if err != nil {
		return nil, err
	}
	if _, err := url.Parse(cfg.DBURL); err != nil {
		return nil, fmt.Errorf("BA_DB_URL: некорректный URL: %w", err)
	}

	cfg.DBUser, err = getEnvRequired("BA_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("BA_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	maxConns, err := getEnvInt("BA_DB_MAX_CONNS", 4)
	if err != nil {
		return nil, fmt.Errorf("BA_DB_MAX_CONNS: %w", err)
	}
	minConns, err := getEnvInt("BA_DB_MIN_CONNS", 1)
	if err != nil {
		return nil, fmt.Errorf("BA_DB_MIN_CONNS: %w", err)
	}
	if maxConns < 1 || minConns < 0 || minConns > maxConns {
		return nil, fmt.Errorf("BA_DB_MIN_CONNS/BA_DB_MAX_CONNS: недопустимая комбинация %d/%d", minConns, maxConns)
	}
	cfg.DBMaxConns = int32(maxConns) //nolint:gosec // диапазон проверен выше
	cfg.DBMinConns = int32(minConns) //nolint:gosec // диапазон проверен выше

	// --- Аутентификация ---

	cfg.Realms, err = loadRealms(parseCSV(getEnvDefault("BA_AUTH_REALMS", "azuread")))
	if err != nil {
		return nil, err
	}

	cfg.JWKSClientTimeout, err = getEnvDuration("BA_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("BA_JWKS_REFRESH_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("BA_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSKeyCacheSize, err = getEnvInt("BA_JWKS_KEY_CACHE_SIZE", 10)
	if err != nil {
		return nil, fmt.Errorf("BA_JWKS_KEY_CACHE_SIZE: %w", err)
	}
	if cfg.JWKSKeyCacheSize < 1 {
		return nil, fmt.Errorf("BA_JWKS_KEY_CACHE_SIZE: значение должно быть > 0")
	}
	cfg.JWKSKeyCacheTTL, err = getEnvDuration("BA_JWKS_KEY_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("BA_JWKS_KEY_CACHE_TTL: %w", err)
	}
	cfg.JWKSCACertPath = getEnvDefault("BA_JWKS_CA_CERT_PATH", "")
	cfg.JWTLeeway, err = getEnvDuration("BA_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_JWT_LEEWAY: %w", err)
	}

	// --- Маппинг групп → ролей ---

	groups := []struct {
		key  string
		dest *uuid.UUID
	}{
		{"BA_ROLE_ARBEIDSGIVERRETTET_GROUP", &cfg.RoleGroups.Arbeidsgiverrettet},
		{"BA_ROLE_JOBBSOKERRETTET_GROUP", &cfg.RoleGroups.Jobbsokerrettet},
		{"BA_ROLE_UTVIKLER_GROUP", &cfg.RoleGroups.Utvikler},
		{"BA_ROLE_MODIA_OPPFOLGING_GROUP", &cfg.RoleGroups.ModiaOppfolging},
		{"BA_ROLE_MODIA_GENERELL_GROUP", &cfg.RoleGroups.ModiaGenerellTilgang},
	}
	for _, g := range groups {
		*g.dest, err = getEnvUUID(g.key)
		if err != nil {
			return nil, err
		}
	}

	// --- Обратная связь ---

	cfg.FeedbackPageSize, err = getEnvInt("BA_FEEDBACK_PAGE_SIZE", 25)
	if err != nil {
		return nil, fmt.Errorf("BA_FEEDBACK_PAGE_SIZE: %w", err)
	}
	if cfg.FeedbackPageSize < 1 || cfg.FeedbackPageSize > 1000 {
		return nil, fmt.Errorf("BA_FEEDBACK_PAGE_SIZE: значение %d вне допустимого диапазона 1-1000", cfg.FeedbackPageSize)
	}

	// --- topologymetrics ---

	cfg.DephealthEnabled, err = getEnvBool("BA_DEPHEALTH_ENABLED", false)
	if err != nil {
		return nil, fmt.Errorf("BA_DEPHEALTH_ENABLED: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("BA_DEPHEALTH_GROUP", "rekrutteringsbistand")
	cfg.DephealthCheckInterval, err = getEnvDuration("BA_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("BA_DEPHEALTH_ISENTRY", true)
	if err != nil {
		return nil, fmt.Errorf("BA_DEPHEALTH_ISENTRY: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("BA_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("BA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadRealms читает BA_AUTH_<NAME>_{ISSUER,AUDIENCE,JWKS_URL} для каждого realm.
func loadRealms(names []string) ([]Realm, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("BA_AUTH_REALMS: необходимо указать хотя бы один realm")
	}

	seen := make(map[string]bool, len(names))
	realms := make([]Realm, 0, len(names))
	for _, name := range names {
		prefix := "BA_AUTH_" + envName(name)
		if seen[prefix] {
			return nil, fmt.Errorf("BA_AUTH_REALMS: realm %q указан дважды", name)
		}
		seen[prefix] = true

		realm := Realm{Name: strings.ToLower(name)}
		var err error
		if realm.Issuer, err = getEnvRequired(prefix + "_ISSUER"); err != nil {
			return nil, err
		}
		if realm.Audience, err = getEnvRequired(prefix + "_AUDIENCE"); err != nil {
			return nil, err
		}
		if realm.JWKSURL, err = getEnvRequired(prefix + "_JWKS_URL"); err != nil {
			return nil, err
		}
		realms = append(realms, realm)
	}
	return realms, nil
}

// DatabaseURL возвращает URL подключения к PostgreSQL с учётными данными.
func (c *Config) DatabaseURL() string {
	u, err := url.Parse(c.DBURL)
	if err != nil {
		return c.DBURL
	}
	u.User = url.UserPassword(c.DBUser, c.DBPassword)
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// getEnvUUID возвращает обязательный UUID из переменной окружения.
func getEnvUUID(key string) (uuid.UUID, error) {
	val, err := getEnvRequired(key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: некорректный UUID: %q", key, val)
	}
	return id, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// envName приводит имя realm к виду, пригодному для имени переменной окружения.
// azure-ad → AZURE_AD
func envName(name string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(name))
}
