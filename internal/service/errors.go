// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

// ErrValidation — ошибка валидации входных данных (HTTP 400).
var ErrValidation = errors.New("ошибка валидации")
