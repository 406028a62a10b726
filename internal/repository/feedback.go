package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/bruker-api/internal/domain/model"
)

// feedbackColumns — список колонок tilbakemeldinger в порядке сканирования.
const feedbackColumns = `id, navn, tilbakemelding, dato, status, trello_lenke, kategori, url`

// FeedbackRepository — интерфейс доступа к таблице tilbakemeldinger.
type FeedbackRepository interface {
	// Create сохраняет новую запись обратной связи.
	Create(ctx context.Context, f *model.Feedback) (*model.Feedback, error)
	// ListPage возвращает страницу записей, новые первыми.
	ListPage(ctx context.Context, limit, offset int) ([]*model.Feedback, error)
	// Count возвращает общее количество записей.
	Count(ctx context.Context) (int, error)
	// Update меняет категорию, ссылку на трекер и статус.
	Update(ctx context.Context, id string, category model.FeedbackCategory, link *string, status model.FeedbackStatus) (*model.Feedback, error)
	// Delete удаляет запись. Отсутствие записи не считается ошибкой.
	Delete(ctx context.Context, id string) error
}

// feedbackRepo — реализация FeedbackRepository.
type feedbackRepo struct {
	db DBTX
}

// NewFeedbackRepository создаёт репозиторий обратной связи.
func NewFeedbackRepository(db DBTX) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) Create(ctx context.Context, f *model.Feedback) (*model.Feedback, error) {
	query := `
		INSERT INTO tilbakemeldinger (` + feedbackColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + feedbackColumns

	created, err := scanFeedback(r.db.QueryRow(ctx, query,
		f.ID, f.Name, f.Body, f.SubmittedAt, f.Status,
		f.TrackingLink, f.Category, f.SourceURL,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: запись %s: %w", ErrPersistence, f.ID, ErrConflict)
		}
		return nil, fmt.Errorf("%w: создание записи обратной связи: %w", ErrPersistence, err)
	}
	return created, nil
}

func (r *feedbackRepo) ListPage(ctx context.Context, limit, offset int) ([]*model.Feedback, error) {
	query := `
		SELECT ` + feedbackColumns + `
		FROM tilbakemeldinger
		ORDER BY dato DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: получение страницы обратной связи: %w", ErrPersistence, err)
	}
	defer rows.Close()

	result := make([]*model.Feedback, 0, limit)
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: сканирование записи обратной связи: %w", ErrPersistence, err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: чтение страницы обратной связи: %w", ErrPersistence, err)
	}
	return result, nil
}

func (r *feedbackRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tilbakemeldinger`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: подсчёт записей обратной связи: %w", ErrPersistence, err)
	}
	return count, nil
}

func (r *feedbackRepo) Update(
	ctx context.Context,
	id string,
	category model.FeedbackCategory,
	link *string,
	status model.FeedbackStatus,
) (*model.Feedback, error) {
	query := `
		UPDATE tilbakemeldinger
		SET kategori = $2, trello_lenke = $3, status = $4
		WHERE id = $1
		RETURNING ` + feedbackColumns

	f, err := scanFeedback(r.db.QueryRow(ctx, query, id, category, link, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: обновление записи %s: %w", ErrPersistence, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: обновление записи %s: %w", ErrPersistence, id, err)
	}
	return f, nil
}

func (r *feedbackRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM tilbakemeldinger WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: удаление записи %s: %w", ErrPersistence, id, err)
	}
	return nil
}

// scanFeedback читает одну строку tilbakemeldinger в порядке feedbackColumns.
// Нераспознанная категория из БД становится ANNET.
func scanFeedback(row pgx.Row) (*model.Feedback, error) {
	f := &model.Feedback{}
	var category string
	err := row.Scan(
		&f.ID, &f.Name, &f.Body, &f.SubmittedAt, &f.Status,
		&f.TrackingLink, &category, &f.SourceURL,
	)
	if err != nil {
		return nil, err
	}
	f.Category = model.ParseCategory(category)
	return f, nil
}
