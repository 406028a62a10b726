// news.go — сервис новостей: создание, обновление, мягкое удаление.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/bruker-api/internal/domain/model"
	"github.com/bigkaa/bruker-api/internal/repository"
)

// SaveNewsInput — данные для создания или обновления новости.
type SaveNewsInput struct {
	// ID — UUID существующей новости; пустой для новой
	ID    string
	Title string
	Body  string
}

// NewsService — сервис новостей.
type NewsService struct {
	repo   repository.NewsRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewNewsService создаёт сервис новостей.
func NewNewsService(repo repository.NewsRepository, logger *slog.Logger) *NewsService {
	return &NewsService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With(slog.String("component", "news_service")),
	}
}

// List возвращает активные новости, новые первыми.
func (s *NewsService) List(ctx context.Context) ([]*model.News, error) {
	return s.repo.List(ctx)
}

// Get возвращает новость по ID, включая удалённые.
func (s *NewsService) Get(ctx context.Context, id string) (*model.News, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: некорректный ID новости %q", ErrValidation, id)
	}
	return s.repo.GetByID(ctx, id)
}

// Save создаёт новость, а при известном ID обновляет заголовок и текст.
// Автор и время создания существующей новости не меняются.
func (s *NewsService) Save(ctx context.Context, in SaveNewsInput, author string) (*model.News, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: заголовок обязателен", ErrValidation)
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: текст новости обязателен", ErrValidation)
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: некорректный ID новости %q", ErrValidation, id)
	}

	// Одна отметка времени: у новой новости создание и изменение совпадают.
	// PostgreSQL хранит микросекунды.
	now := s.now().UTC().Truncate(time.Microsecond)
	n := &model.News{
		ID:             id,
		Title:          in.Title,
		Body:           in.Body,
		CreatedAt:      now,
		CreatedBy:      author,
		LastModifiedAt: now,
		LastModifiedBy: author,
		Status:         model.NewsStatusActive,
	}

	saved, err := s.repo.Save(ctx, n)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Новость сохранена",
		slog.String("id", saved.ID),
		slog.String("author", author),
		slog.Bool("created", saved.CreatedAt.Equal(saved.LastModifiedAt)),
	)
	return saved, nil
}

// Delete мягко удаляет новость: запись остаётся со статусом SLETTET.
func (s *NewsService) Delete(ctx context.Context, id, author string) (*model.News, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: некорректный ID новости %q", ErrValidation, id)
	}

	n, err := s.repo.MarkDeleted(ctx, id, author, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Новость удалена",
		slog.String("id", n.ID),
		slog.String("author", author),
	)
	return n, nil
}
