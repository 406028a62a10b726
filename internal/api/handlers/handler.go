// handler.go — основной обработчик API bruker-api.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
// Каждая операция сама объявляет допустимые роли и проверяет их до вызова сервиса.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/bruker-api/internal/api/errors"
	"github.com/bigkaa/bruker-api/internal/api/middleware"
	"github.com/bigkaa/bruker-api/internal/domain/model"
	"github.com/bigkaa/bruker-api/internal/domain/rbac"
	"github.com/bigkaa/bruker-api/internal/service"
)

// NewsService — операции над новостями, используемые обработчиками.
type NewsService interface {
	List(ctx context.Context) ([]*model.News, error)
	Get(ctx context.Context, id string) (*model.News, error)
	Save(ctx context.Context, in service.SaveNewsInput, author string) (*model.News, error)
	Delete(ctx context.Context, id, author string) (*model.News, error)
}

// FeedbackService — операции над обратной связью, используемые обработчиками.
type FeedbackService interface {
	Create(ctx context.Context, in service.CreateFeedbackInput) (*model.Feedback, error)
	ListPage(ctx context.Context, page int) (*model.FeedbackPage, error)
	Update(ctx context.Context, id string, in service.UpdateFeedbackInput) (*model.Feedback, error)
	Delete(ctx context.Context, id string) error
}

// APIHandler — основной обработчик API bruker-api.
type APIHandler struct {
	health   *HealthHandler
	news     NewsService
	feedback FeedbackService
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	news NewsService,
	feedback FeedbackService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		news:     news,
		feedback: feedback,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// authorize проверяет, что у Principal запроса есть одна из ролей allowed.
// При отказе пишет ответ 401/403 и возвращает false.
func (h *APIHandler) authorize(w http.ResponseWriter, r *http.Request, allowed ...rbac.Role) (*rbac.Principal, bool) {
	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return nil, false
	}
	if err := principal.RequireAnyOf(allowed...); err != nil {
		apierrors.Forbidden(w, err.Error())
		return nil, false
	}
	return principal, true
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Ошибки валидации — 400, всё остальное — 500.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrValidation) {
		apierrors.ValidationError(w, err.Error())
		return
	}

	h.logger.Error("Ошибка обработки запроса",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, err.Error())
}

// pathID извлекает UUID из path-параметра id.
func pathID(r *http.Request) (string, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// decodeJSON разбирает тело запроса в dst.
// При ошибке пишет ответ 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
