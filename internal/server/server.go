// Пакет server — HTTP-сервер bruker-api с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на ingress.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/bruker-api/internal/api/errors"
	"github.com/bigkaa/bruker-api/internal/api/handlers"
	"github.com/bigkaa/bruker-api/internal/api/middleware"
	"github.com/bigkaa/bruker-api/internal/config"
)

// route — маршрут с объявленным уровнем доступа.
type route struct {
	method  string
	pattern string
	access  []middleware.Access
	handler http.HandlerFunc
}

// routes возвращает таблицу маршрутов API.
func routes(h *handlers.APIHandler) []route {
	public := []middleware.Access{middleware.AccessPublic}
	protected := []middleware.Access{middleware.AccessProtected}

	return []route{
		{http.MethodGet, "/internal/isAlive", public, h.HealthLive},
		{http.MethodGet, "/internal/isReady", public, h.HealthReady},
		{http.MethodGet, "/internal/prometheus", public, h.GetMetrics},

		{http.MethodGet, "/api/nyheter", protected, h.ListNews},
		{http.MethodGet, "/api/nyheter/{id}", protected, h.GetNews},
		{http.MethodPost, "/api/nyheter", protected, h.CreateNews},
		{http.MethodPut, "/api/nyheter/{id}", protected, h.UpdateNews},
		{http.MethodPut, "/api/nyheter/slett/{id}", protected, h.DeleteNews},

		{http.MethodGet, "/api/tilbakemeldinger", protected, h.ListFeedback},
		{http.MethodPost, "/api/tilbakemeldinger", protected, h.CreateFeedback},
		{http.MethodPut, "/api/tilbakemeldinger/{id}", protected, h.UpdateFeedback},
		{http.MethodDelete, "/api/tilbakemeldinger/{id}", protected, h.DeleteFeedback},
	}
}

// Server — HTTP-сервер bruker-api.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными маршрутами и middleware.
// validator может быть nil (без валидации по OpenAPI).
// Ошибка в объявлении доступа любого маршрута возвращается как ошибка.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	handler *handlers.APIHandler,
	guard *middleware.Guard,
	validator *middleware.RequestValidator,
	metrics *middleware.Metrics,
) (*Server, error) {
	router, err := newRouter(logger, routes(handler), guard, validator, metrics)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      normalizeSlashes(router),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// Handler возвращает корневой HTTP handler сервера.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// newRouter регистрирует маршруты. Для каждого маршрута middleware
// применяются в порядке: Guard, валидация запроса, обработчик.
func newRouter(
	logger *slog.Logger,
	table []route,
	guard *middleware.Guard,
	validator *middleware.RequestValidator,
	metrics *middleware.Metrics,
) (chi.Router, error) {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	if metrics != nil {
		router.Use(metrics.Middleware())
	}
	router.Use(middleware.RequestLogger(logger))

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		apierrors.MethodNotAllowed(w, "Метод не поддерживается")
	})

	for _, rt := range table {
		access, err := guard.Require(rt.access...)
		if err != nil {
			return nil, fmt.Errorf("маршрут %s %s: %w", rt.method, rt.pattern, err)
		}

		chain := []func(http.Handler) http.Handler{access}
		if validator != nil {
			chain = append(chain, validator.Middleware())
		}
		router.With(chain...).Method(rt.method, rt.pattern, rt.handler)
	}

	return router, nil
}

// normalizeSlashes до маршрутизации схлопывает повторные "/" и убирает
// завершающий, так что //api//nyheter/ обрабатывается как /api/nyheter.
func normalizeSlashes(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := cleanSlashes(r.URL.Path); p != r.URL.Path {
			r.URL.Path = p
			r.URL.RawPath = ""
		}
		next.ServeHTTP(w, r)
	})
}

// cleanSlashes не трогает "." и "..", в отличие от path.Clean.
func cleanSlashes(p string) string {
	if !strings.Contains(p, "//") && (len(p) <= 1 || !strings.HasSuffix(p, "/")) {
		return p
	}

	var b strings.Builder
	b.Grow(len(p))
	prevSlash := false
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' && prevSlash {
			continue
		}
		prevSlash = c == '/'
		b.WriteByte(c)
	}

	out := b.String()
	if len(out) > 1 {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
