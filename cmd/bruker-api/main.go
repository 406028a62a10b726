// Точка входа bruker-api — новости и обратная связь для сотрудников.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт стратегии проверки токенов для каждого realm, маппинг групп в роли,
// сервисный слой и API handlers, запускает HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bigkaa/bruker-api/internal/api/handlers"
	"github.com/bigkaa/bruker-api/internal/api/middleware"
	"github.com/bigkaa/bruker-api/internal/api/openapi"
	"github.com/bigkaa/bruker-api/internal/config"
	"github.com/bigkaa/bruker-api/internal/database"
	"github.com/bigkaa/bruker-api/internal/domain/rbac"
	"github.com/bigkaa/bruker-api/internal/repository"
	"github.com/bigkaa/bruker-api/internal/server"
	"github.com/bigkaa/bruker-api/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("bruker-api запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.Int("realms", len(cfg.Realms)),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Prometheus registry передаётся во все компоненты с метриками
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 6. Стратегии проверки токенов: realm × (NAVident, pid)
	jwksOpts := middleware.JWKSOptions{
		ClientTimeout:   cfg.JWKSClientTimeout,
		RefreshInterval: cfg.JWKSRefreshInterval,
		CACertPath:      cfg.JWKSCACertPath,
		CacheSize:       cfg.JWKSKeyCacheSize,
		CacheTTL:        cfg.JWKSKeyCacheTTL,
	}
	var verifiers []middleware.TokenVerifier
	var jwksCheckers []handlers.NamedChecker
	for _, realm := range cfg.Realms {
		keys, err := middleware.NewJWKSKeySource(realm.JWKSURL, jwksOpts, logger)
		if err != nil {
			logger.Error("Ошибка создания источника ключей JWKS",
				slog.String("realm", realm.Name),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		verifiers = append(verifiers,
			middleware.NewRealmVerifiers(realm.Name, realm.Issuer, realm.Audience, keys, cfg.JWTLeeway)...)

		checker, err := middleware.NewJWKSReadinessChecker(realm.JWKSURL, cfg.JWKSCACertPath, cfg.JWKSClientTimeout)
		if err != nil {
			logger.Error("Ошибка создания JWKS readiness checker",
				slog.String("realm", realm.Name),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		jwksCheckers = append(jwksCheckers, handlers.NamedChecker{
			Name:    "jwks_" + realm.Name,
			Checker: checker,
		})

		logger.Info("Realm подключён",
			slog.String("realm", realm.Name),
			slog.String("issuer", realm.Issuer),
			slog.String("jwks_url", realm.JWKSURL),
		)
	}
	verifierChain := middleware.NewVerifierChain(logger, verifiers...)

	// 7. Маппинг групп → ролей
	roleSpec, err := rbac.NewRoleSpec(map[rbac.Role]uuid.UUID{
		rbac.RoleArbeidsgiverrettet:   cfg.RoleGroups.Arbeidsgiverrettet,
		rbac.RoleJobbsokerrettet:      cfg.RoleGroups.Jobbsokerrettet,
		rbac.RoleUtvikler:             cfg.RoleGroups.Utvikler,
		rbac.RoleModiaOppfolging:      cfg.RoleGroups.ModiaOppfolging,
		rbac.RoleModiaGenerellTilgang: cfg.RoleGroups.ModiaGenerellTilgang,
	}, logger)
	if err != nil {
		logger.Error("Ошибка маппинга групп в роли", slog.String("error", err.Error()))
		os.Exit(1)
	}
	guard := middleware.NewGuard(verifierChain, roleSpec, logger)

	// 8. Repositories
	newsRepo := repository.NewNewsRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)

	// 9. Services
	newsSvc := service.NewNewsService(newsRepo, logger)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, cfg.FeedbackPageSize, logger)

	// 10. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), registry, jwksCheckers...)
	apiHandler := handlers.NewAPIHandler(healthHandler, newsSvc, feedbackSvc, logger)

	// 11. Валидация запросов по OpenAPI контракту
	validator, err := middleware.NewRequestValidator(openapi.Spec, logger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL + JWKS)
	if cfg.DephealthEnabled {
		// Адаптер pgxpool → *sql.DB: проверка идёт через существующий пул.
		pgDB := stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()

		jwksDeps := make([]service.JWKSDependency, 0, len(cfg.Realms))
		for _, realm := range cfg.Realms {
			jwksDeps = append(jwksDeps, service.JWKSDependency{Realm: realm.Name, URL: realm.JWKSURL})
		}

		dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     "bruker-api",
			Group:         cfg.DephealthGroup,
			DB:            pgDB,
			PGConnURL:     cfg.DatabaseURL(),
			JWKS:          jwksDeps,
			CheckInterval: cfg.DephealthCheckInterval,
			IsEntry:       cfg.DephealthIsEntry,
			Registerer:    registry,
		}, logger)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			defer dephealthSvc.Stop()
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 13. HTTP-сервер
	srv, err := server.New(cfg, logger, apiHandler, guard, validator, middleware.NewMetrics(registry))
	if err != nil {
		logger.Error("Ошибка регистрации маршрутов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("bruker-api остановлен")
}
