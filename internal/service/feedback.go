// feedback.go — сервис обратной связи: приём, постраничный просмотр, обработка.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/bruker-api/internal/domain/model"
	"github.com/bigkaa/bruker-api/internal/repository"
)

// DefaultFeedbackPageSize — размер страницы по умолчанию.
const DefaultFeedbackPageSize = 25

// CreateFeedbackInput — данные новой записи обратной связи.
type CreateFeedbackInput struct {
	Name      *string
	Body      string
	Category  string
	SourceURL *string
}

// UpdateFeedbackInput — изменяемые поля записи обратной связи.
type UpdateFeedbackInput struct {
	Category     string
	TrackingLink *string
	Status       string
}

// FeedbackService — сервис обратной связи.
type FeedbackService struct {
	repo     repository.FeedbackRepository
	pageSize int
	now      func() time.Time
	logger   *slog.Logger
}

// NewFeedbackService создаёт сервис обратной связи.
// pageSize <= 0 заменяется на DefaultFeedbackPageSize.
func NewFeedbackService(repo repository.FeedbackRepository, pageSize int, logger *slog.Logger) *FeedbackService {
	if pageSize <= 0 {
		pageSize = DefaultFeedbackPageSize
	}
	return &FeedbackService{
		repo:     repo,
		pageSize: pageSize,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "feedback_service")),
	}
}

// Create сохраняет новую запись со статусом NY.
// Неизвестная категория сохраняется как ANNET.
func (s *FeedbackService) Create(ctx context.Context, in CreateFeedbackInput) (*model.Feedback, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: текст обратной связи обязателен", ErrValidation)
	}

	f := &model.Feedback{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Body:        in.Body,
		SubmittedAt: s.now().UTC().Truncate(time.Microsecond),
		Status:      model.FeedbackStatusNew,
		Category:    model.ParseCategory(in.Category),
		SourceURL:   in.SourceURL,
	}

	created, err := s.repo.Create(ctx, f)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Получена обратная связь",
		slog.String("id", created.ID),
		slog.String("category", string(created.Category)),
	)
	return created, nil
}

// ListPage возвращает страницу записей. Номер страницы меньше 1 считается первой.
// Страница за последней возвращается пустой, без запроса к БД.
func (s *FeedbackService) ListPage(ctx context.Context, page int) (*model.FeedbackPage, error) {
	if page < 1 {
		page = 1
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.FeedbackPage{
		Items:      []model.Feedback{},
		Page:       page,
		TotalPages: TotalPages(total, s.pageSize),
		Total:      total,
	}
	// offset считается только для page <= TotalPages, переполнения нет
	if page > result.TotalPages {
		return result, nil
	}

	items, err := s.repo.ListPage(ctx, s.pageSize, (page-1)*s.pageSize)
	if err != nil {
		return nil, err
	}

	result.Items = make([]model.Feedback, 0, len(items))
	for _, f := range items {
		result.Items = append(result.Items, *f)
	}
	return result, nil
}

// Update меняет категорию, ссылку на трекер и статус записи.
func (s *FeedbackService) Update(ctx context.Context, id string, in UpdateFeedbackInput) (*model.Feedback, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: некорректный ID записи %q", ErrValidation, id)
	}
	status, err := model.ParseFeedbackStatus(in.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	updated, err := s.repo.Update(ctx, id, model.ParseCategory(in.Category), in.TrackingLink, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Обратная связь обновлена",
		slog.String("id", updated.ID),
		slog.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Delete удаляет запись без возможности восстановления.
// Удаление несуществующей записи не является ошибкой.
func (s *FeedbackService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: некорректный ID записи %q", ErrValidation, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Обратная связь удалена", slog.String("id", id))
	return nil
}

// TotalPages возвращает количество страниц; для пустого списка — 1.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return (total + pageSize - 1) / pageSize
}

// ParsePageNumber разбирает номер страницы из строки запроса.
// Отсутствующее, нечисловое или меньшее 1 значение даёт 1.
func ParsePageNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
