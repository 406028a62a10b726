// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// bruker-api мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - JWKS каждого realm — HTTP checker (critical)
//
// Метрики доступны на /internal/prometheus вместе с остальными метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker для JWKS
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"     // PostgreSQL checker (pool mode)
	"github.com/prometheus/client_golang/prometheus"
)

// maxDepNameLen — ограничение длины имени зависимости (как у DNS-метки).
const maxDepNameLen = 63

// JWKSDependency — JWKS endpoint одного realm.
type JWKSDependency struct {
	// Realm — имя realm, из него строится имя зависимости
	Realm string
	// URL — адрес JWKS
	URL string
}

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (BA_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool()
	DB *sql.DB
	// PGConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PGConnURL string
	// JWKS — JWKS endpoints всех realm
	JWKS []JWKSDependency
	// CheckInterval — интервал проверки (BA_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// IsEntry — сервис является точкой входа (метка isentry=yes)
	IsEntry bool
	// Registerer — Prometheus registerer для метрик dephealth
	Registerer prometheus.Registerer
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в cfg.Registerer, а если он не задан —
// в глобальном Prometheus registry.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	pgDepOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.PGConnURL),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}
	if cfg.IsEntry {
		pgDepOpts = append(pgDepOpts, dephealth.WithLabel("isentry", "yes"))
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool.
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(cfg.DB)), pgDepOpts...),
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	seen := make(map[string]bool, len(cfg.JWKS))
	for _, j := range cfg.JWKS {
		name := JWKSDepName(j.Realm)
		if seen[name] {
			return nil, fmt.Errorf("dephealth: повторное имя зависимости %q", name)
		}
		seen[name] = true

		// Проверяем path самого JWKS URL — у IdP обычно нет /health.
		depOpts := []dephealth.DependencyOption{
			dephealth.FromURL(j.URL),
			dephealth.WithHTTPHealthPath(jwksHealthPath(j.URL)),
			dephealth.CheckInterval(cfg.CheckInterval),
			dephealth.Critical(true),
		}
		if cfg.IsEntry {
			depOpts = append(depOpts, dephealth.WithLabel("isentry", "yes"))
		}
		opts = append(opts, dephealth.HTTP(name, depOpts...))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL + JWKS)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// JWKSDepName строит имя зависимости для JWKS realm: lowercase,
// только [a-z0-9-], начинается с буквы, не длиннее 63 символов.
func JWKSDepName(realm string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(realm) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "jwks"
	}
	name += "-jwks"
	if name[0] >= '0' && name[0] <= '9' {
		name = "realm-" + name
	}
	if len(name) > maxDepNameLen {
		name = strings.TrimRight(name[:maxDepNameLen], "-")
	}
	return name
}

// jwksHealthPath извлекает path из JWKS URL; по умолчанию /health.
func jwksHealthPath(jwksURL string) string {
	if parsed, err := url.Parse(jwksURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return "/health"
}
