package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/bruker-api/internal/domain/model"
)

// newsColumns — список колонок nyheter в порядке сканирования.
const newsColumns = `nyhet_id, tittel, innhold, opprettet_dato, opprettet_av,
	sist_endret_dato, sist_endret_av, status`

// NewsRepository — интерфейс доступа к таблице nyheter.
type NewsRepository interface {
	// Save создаёт новость или обновляет существующую с тем же ID.
	// При обновлении меняются только заголовок, текст и поля последнего изменения.
	Save(ctx context.Context, n *model.News) (*model.News, error)
	// List возвращает активные новости, новые первыми.
	List(ctx context.Context) ([]*model.News, error)
	// GetByID возвращает новость по ID независимо от статуса.
	GetByID(ctx context.Context, id string) (*model.News, error)
	// MarkDeleted переводит новость в статус SLETTET.
	MarkDeleted(ctx context.Context, id, modifiedBy string, at time.Time) (*model.News, error)
}

// newsRepo — реализация NewsRepository.
type newsRepo struct {
	db DBTX
}

// NewNewsRepository создаёт репозиторий новостей.
func NewNewsRepository(db DBTX) NewsRepository {
	return &newsRepo{db: db}
}

func (r *newsRepo) Save(ctx context.Context, n *model.News) (*model.News, error) {
	query := `
		INSERT INTO nyheter (` + newsColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (nyhet_id) DO UPDATE
		SET tittel = EXCLUDED.tittel,
			innhold = EXCLUDED.innhold,
			sist_endret_dato = EXCLUDED.sist_endret_dato,
			sist_endret_av = EXCLUDED.sist_endret_av
		RETURNING ` + newsColumns

	saved, err := scanNews(r.db.QueryRow(ctx, query,
		n.ID, n.Title, n.Body, n.CreatedAt, n.CreatedBy,
		n.LastModifiedAt, n.LastModifiedBy, n.Status,
	))
	if err != nil {
		return nil, fmt.Errorf("%w: сохранение новости %s: %w", ErrPersistence, n.ID, err)
	}
	return saved, nil
}

func (r *newsRepo) List(ctx context.Context) ([]*model.News, error) {
	query := `
		SELECT ` + newsColumns + `
		FROM nyheter
		WHERE status <> $1
		ORDER BY opprettet_dato DESC`

	rows, err := r.db.Query(ctx, query, model.NewsStatusDeleted)
	if err != nil {
		return nil, fmt.Errorf("%w: получение списка новостей: %w", ErrPersistence, err)
	}
	defer rows.Close()

	result := make([]*model.News, 0)
	for rows.Next() {
		n, err := scanNews(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: сканирование новости: %w", ErrPersistence, err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: чтение списка новостей: %w", ErrPersistence, err)
	}
	return result, nil
}

func (r *newsRepo) GetByID(ctx context.Context, id string) (*model.News, error) {
	query := `SELECT ` + newsColumns + ` FROM nyheter WHERE nyhet_id = $1`

	n, err := scanNews(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: новость %s: %w", ErrPersistence, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: получение новости %s: %w", ErrPersistence, id, err)
	}
	return n, nil
}

func (r *newsRepo) MarkDeleted(ctx context.Context, id, modifiedBy string, at time.Time) (*model.News, error) {
	query := `
		UPDATE nyheter
		SET status = $2, sist_endret_dato = $3, sist_endret_av = $4
		WHERE nyhet_id = $1
		RETURNING ` + newsColumns

	n, err := scanNews(r.db.QueryRow(ctx, query, id, model.NewsStatusDeleted, at, modifiedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: удаление новости %s: %w", ErrPersistence, id, ErrNotFound)
		}
		return nil, fmt.Errorf("%w: удаление новости %s: %w", ErrPersistence, id, err)
	}
	return n, nil
}

// scanNews читает одну строку nyheter в порядке newsColumns.
func scanNews(row pgx.Row) (*model.News, error) {
	n := &model.News{}
	err := row.Scan(
		&n.ID, &n.Title, &n.Body, &n.CreatedAt, &n.CreatedBy,
		&n.LastModifiedAt, &n.LastModifiedBy, &n.Status,
	)
	if err != nil {
		return nil, err
	}
	return n, nil
}
