package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/bruker-api/internal/config"
	"github.com/bigkaa/bruker-api/internal/database"
	"github.com/bigkaa/bruker-api/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
// Возвращает pgxpool.Pool, закрываемый автоматически.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("bruker_test"),
		postgres.WithUsername("bruker"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	cfg := &config.Config{
		DBURL:      fmt.Sprintf("postgres://%s:%s/bruker_test?sslmode=disable", host, port.Port()),
		DBUser:     "bruker",
		DBPassword: "test-password",
		DBMaxConns: 4,
		DBMinConns: 1,
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Применяем миграции
	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	// Подключаемся
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func strPtr(s string) *string { return &s }

// --- Тесты NewsRepository ---

func TestNewsSaveAndUpsert(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewNewsRepository(pool)

	created := time.Now().UTC().Truncate(time.Microsecond)
	n := &model.News{
		ID:             uuid.New().String(),
		Title:          "Ny funksjon",
		Body:           "Nå kan du filtrere på kategori",
		CreatedAt:      created,
		CreatedBy:      "Z123456",
		LastModifiedAt: created,
		LastModifiedBy: "Z123456",
		Status:         model.NewsStatusActive,
	}

	saved, err := repo.Save(ctx, n)
	if err != nil {
		t.Fatalf("Save() ошибка: %v", err)
	}
	if !saved.CreatedAt.Equal(saved.LastModifiedAt) {
		t.Errorf("CreatedAt = %v, LastModifiedAt = %v; ожидались равными", saved.CreatedAt, saved.LastModifiedAt)
	}
	if saved.Status != model.NewsStatusActive {
		t.Errorf("Status = %q, ожидался AKTIV", saved.Status)
	}

	// Повторное сохранение с тем же ID — обновление
	later := created.Add(time.Minute)
	update := &model.News{
		ID:             n.ID,
		Title:          "Oppdatert tittel",
		Body:           "Oppdatert innhold",
		CreatedAt:      later,
		CreatedBy:      "Z999999",
		LastModifiedAt: later,
		LastModifiedBy: "Z999999",
		Status:         model.NewsStatusActive,
	}
	updated, err := repo.Save(ctx, update)
	if err != nil {
		t.Fatalf("Save() (upsert) ошибка: %v", err)
	}
	if updated.Title != "Oppdatert tittel" || updated.Body != "Oppdatert innhold" {
		t.Errorf("Title/Body = %q/%q, ожидалось обновление", updated.Title, updated.Body)
	}
	if !updated.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, ожидался %v (не меняется)", updated.CreatedAt, created)
	}
	if updated.CreatedBy != "Z123456" {
		t.Errorf("CreatedBy = %q, ожидался Z123456 (не меняется)", updated.CreatedBy)
	}
	if !updated.LastModifiedAt.Equal(later) || updated.LastModifiedBy != "Z999999" {
		t.Errorf("LastModified = %v/%q, ожидалось %v/Z999999", updated.LastModifiedAt, updated.LastModifiedBy, later)
	}
}

func TestNewsListAndMarkDeleted(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewNewsRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	ids := make([]string, 3)
	for i := range ids {
		ids[i] = uuid.New().String()
		at := base.Add(time.Duration(i) * time.Second)
		if _, err := repo.Save(ctx, &model.News{
			ID: ids[i], Title: fmt.Sprintf("nyhet %d", i), Body: "innhold",
			CreatedAt: at, CreatedBy: "Z123456", LastModifiedAt: at, LastModifiedBy: "Z123456",
			Status: model.NewsStatusActive,
		}); err != nil {
			t.Fatalf("Save(%d) ошибка: %v", i, err)
		}
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List()) = %d, ожидалось 3", len(list))
	}
	if list[0].ID != ids[2] {
		t.Errorf("List()[0].ID = %s, ожидалась самая новая %s", list[0].ID, ids[2])
	}

	deleted, err := repo.MarkDeleted(ctx, ids[1], "Z999999", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("MarkDeleted() ошибка: %v", err)
	}
	if deleted.Status != model.NewsStatusDeleted {
		t.Errorf("Status = %q, ожидался SLETTET", deleted.Status)
	}

	list, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(List()) = %d после удаления, ожидалось 2", len(list))
	}
	for _, n := range list {
		if n.ID == ids[1] {
			t.Error("удалённая новость присутствует в списке")
		}
	}

	// Мягко удалённая новость остаётся доступной по ID
	got, err := repo.GetByID(ctx, ids[1])
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Status != model.NewsStatusDeleted || got.LastModifiedBy != "Z999999" {
		t.Errorf("GetByID() = %+v, ожидался SLETTET от Z999999", got)
	}
}

func TestNewsNotFound(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewNewsRepository(pool)

	missing := uuid.New().String()

	_, err := repo.GetByID(ctx, missing)
	if !errors.Is(err, ErrPersistence) || !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() ошибка = %v, ожидались ErrPersistence и ErrNotFound", err)
	}

	_, err = repo.MarkDeleted(ctx, missing, "Z123456", time.Now())
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("MarkDeleted() ошибка = %v, ожидалась ErrPersistence", err)
	}
}

// --- Тесты FeedbackRepository ---

func createFeedback(t *testing.T, repo FeedbackRepository, at time.Time) *model.Feedback {
	t.Helper()
	f, err := repo.Create(context.Background(), &model.Feedback{
		ID:          uuid.New().String(),
		Name:        strPtr("Kari"),
		Body:        "Knappen virker ikke",
		SubmittedAt: at,
		Status:      model.FeedbackStatusNew,
		Category:    model.CategoryFeil,
		SourceURL:   strPtr("https://rekrutteringsbistand.example.com/stillinger"),
	})
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	return f
}

func TestFeedbackCreateAndPaging(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFeedbackRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	var newest *model.Feedback
	for i := 0; i < 3; i++ {
		newest = createFeedback(t, repo, base.Add(time.Duration(i)*time.Second))
	}
	if newest.Status != model.FeedbackStatusNew {
		t.Errorf("Status = %q, ожидался NY", newest.Status)
	}
	if newest.TrackingLink != nil {
		t.Errorf("TrackingLink = %v, ожидался nil", *newest.TrackingLink)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if total != 3 {
		t.Errorf("Count() = %d, ожидалось 3", total)
	}

	page1, err := repo.ListPage(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListPage(2, 0) ошибка: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("len(ListPage(2, 0)) = %d, ожидалось 2", len(page1))
	}
	if page1[0].ID != newest.ID {
		t.Errorf("ListPage()[0].ID = %s, ожидалась самая новая %s", page1[0].ID, newest.ID)
	}

	page2, err := repo.ListPage(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListPage(2, 2) ошибка: %v", err)
	}
	if len(page2) != 1 {
		t.Errorf("len(ListPage(2, 2)) = %d, ожидалось 1", len(page2))
	}

	all, err := repo.ListPage(ctx, 25, 0)
	if err != nil {
		t.Fatalf("ListPage(25, 0) ошибка: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(ListPage(25, 0)) = %d, ожидалось 3", len(all))
	}
}

func TestFeedbackUpdateAndDelete(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFeedbackRepository(pool)

	f := createFeedback(t, repo, time.Now().UTC().Truncate(time.Microsecond))

	link := "https://trello.com/c/abc123"
	updated, err := repo.Update(ctx, f.ID, model.CategoryForslag, &link, model.FeedbackStatusUnderReview)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.Category != model.CategoryForslag || updated.Status != model.FeedbackStatusUnderReview {
		t.Errorf("Category/Status = %q/%q, ожидалось FORSLAG/VURDERING", updated.Category, updated.Status)
	}
	if updated.TrackingLink == nil || *updated.TrackingLink != link {
		t.Errorf("TrackingLink = %v, ожидался %q", updated.TrackingLink, link)
	}
	if updated.Body != f.Body {
		t.Errorf("Body = %q, ожидался без изменений", updated.Body)
	}

	_, err = repo.Update(ctx, uuid.New().String(), model.CategoryAnnet, nil, model.FeedbackStatusDone)
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Update() несуществующей записи ошибка = %v, ожидалась ErrPersistence", err)
	}

	if err := repo.Delete(ctx, f.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	// Повторное удаление не является ошибкой
	if err := repo.Delete(ctx, f.ID); err != nil {
		t.Errorf("повторный Delete() ошибка: %v", err)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if total != 0 {
		t.Errorf("Count() = %d после удаления, ожидалось 0", total)
	}
}

func TestFeedbackUnknownCategoryFromDB(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewFeedbackRepository(pool)

	id := uuid.New().String()
	_, err := pool.Exec(ctx, `
		INSERT INTO tilbakemeldinger (id, tilbakemelding, dato, status, kategori)
		VALUES ($1, 'tekst', now(), 'NY', 'UTGAATT_KATEGORI')`, id)
	if err != nil {
		t.Fatalf("INSERT ошибка: %v", err)
	}

	page, err := repo.ListPage(ctx, 25, 0)
	if err != nil {
		t.Fatalf("ListPage() ошибка: %v", err)
	}
	if len(page) != 1 {
		t.Fatalf("len(ListPage()) = %d, ожидалось 1", len(page))
	}
	if page[0].Category != model.CategoryAnnet {
		t.Errorf("Category = %q, ожидалась ANNET", page[0].Category)
	}
	if page[0].Name != nil {
		t.Errorf("Name = %v, ожидался nil", *page[0].Name)
	}
}
