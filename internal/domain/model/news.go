// Пакет model — доменные модели bruker-api.
package model

import "time"

// NewsStatus — статус новости.
type NewsStatus string

const (
	// NewsStatusActive — новость видна в списке
	NewsStatusActive NewsStatus = "AKTIV"
	// NewsStatusDeleted — новость мягко удалена, доступна только по ID
	NewsStatusDeleted NewsStatus = "SLETTET"
)

// News — новость (nyhet).
// Хранится в таблице nyheter.
type News struct {
	// ID — UUID новости
	ID string
	// Title — заголовок
	Title string
	// Body — текст новости
	Body string
	// CreatedAt — время создания, не меняется при обновлении
	CreatedAt time.Time
	// CreatedBy — идентификатор автора, не меняется при обновлении
	CreatedBy string
	// LastModifiedAt — время последнего изменения
	LastModifiedAt time.Time
	// LastModifiedBy — идентификатор последнего редактора
	LastModifiedBy string
	// Status — AKTIV или SLETTET
	Status NewsStatus
}
