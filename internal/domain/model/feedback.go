package model

import (
	"fmt"
	"strings"
	"time"
)

// FeedbackCategory — категория обратной связи.
type FeedbackCategory string

const (
	CategoryRekrutteringstreff FeedbackCategory = "REKRUTTERINGSTREFF"
	CategoryStillingsoppdrag   FeedbackCategory = "STILLINGSOPPDRAG"
	CategoryForslag            FeedbackCategory = "FORSLAG"
	CategoryFeil               FeedbackCategory = "FEIL"
	// CategoryAnnet — категория для всех нераспознанных значений
	CategoryAnnet FeedbackCategory = "ANNET"
)

var knownCategories = map[FeedbackCategory]bool{
	CategoryRekrutteringstreff: true,
	CategoryStillingsoppdrag:   true,
	CategoryForslag:            true,
	CategoryFeil:               true,
	CategoryAnnet:              true,
}

// ParseCategory преобразует строку в категорию.
// Неизвестное или пустое значение становится ANNET.
func ParseCategory(s string) FeedbackCategory {
	c := FeedbackCategory(strings.ToUpper(strings.TrimSpace(s)))
	if knownCategories[c] {
		return c
	}
	return CategoryAnnet
}

// FeedbackStatus — статус обработки обратной связи.
type FeedbackStatus string

const (
	FeedbackStatusNew         FeedbackStatus = "NY"
	FeedbackStatusUnderReview FeedbackStatus = "VURDERING"
	FeedbackStatusRejected    FeedbackStatus = "AVVIST"
	FeedbackStatusDone        FeedbackStatus = "FULLFORT"
)

// ParseFeedbackStatus преобразует строку в статус.
// В отличие от категории, неизвестный статус — ошибка.
func ParseFeedbackStatus(s string) (FeedbackStatus, error) {
	switch st := FeedbackStatus(s); st {
	case FeedbackStatusNew, FeedbackStatusUnderReview, FeedbackStatusRejected, FeedbackStatusDone:
		return st, nil
	default:
		return "", fmt.Errorf("недопустимый статус %q, допустимые: NY, VURDERING, AVVIST, FULLFORT", s)
	}
}

// Feedback — обратная связь от пользователя (tilbakemelding).
// Хранится в таблице tilbakemeldinger.
type Feedback struct {
	// ID — UUID записи
	ID string
	// Name — имя отправителя (опционально)
	Name *string
	// Body — текст обратной связи
	Body string
	// SubmittedAt — время отправки
	SubmittedAt time.Time
	// Status — статус обработки
	Status FeedbackStatus
	// TrackingLink — ссылка на карточку во внешнем трекере (опционально)
	TrackingLink *string
	// Category — категория
	Category FeedbackCategory
	// SourceURL — страница, с которой отправлена обратная связь (опционально)
	SourceURL *string
}

// FeedbackPage — страница списка обратной связи.
type FeedbackPage struct {
	// Items — записи страницы, новые первыми
	Items []Feedback
	// Page — номер страницы, начиная с 1
	Page int
	// TotalPages — количество страниц, не меньше 1
	TotalPages int
	// Total — общее количество записей
	Total int
}
