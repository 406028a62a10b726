// logging.go — middleware логирования входящих HTTP-запросов через slog.
// Кроме статуса и длительности в запись попадают шаблон маршрута chi и,
// для PROTECTED маршрутов, realm и идентификатор пользователя.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// contextKeyRequestInfo — сведения о запросе, заполняемые ниже по цепочке.
const contextKeyRequestInfo contextKey = "request_info"

// requestInfo заполняет Guard после успешной проверки токена.
type requestInfo struct {
	realm      string
	identifier string
}

// annotateRequest сохраняет realm и пользователя для лога запроса.
// Без RequestLogger в цепочке ничего не делает.
func annotateRequest(ctx context.Context, realm, identifier string) {
	if info, ok := ctx.Value(contextKeyRequestInfo).(*requestInfo); ok {
		info.realm = realm
		info.identifier = identifier
	}
}

// responseWriter — обёртка для перехвата статус-кода и размера ответа.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap позволяет http.ResponseController получить доступ к оригинальному ResponseWriter.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestLogger возвращает middleware, логирующий каждый HTTP-запрос.
// Уровень: INFO (1xx-3xx), WARN (4xx), ERROR (5xx).
// Заголовок Authorization и сам токен не логируются.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			r = r.WithContext(context.WithValue(r.Context(), contextKeyRequestInfo, info))

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			}
			if info.identifier != "" {
				attrs = append(attrs,
					slog.String("realm", info.realm),
					slog.String("user", info.identifier),
				)
			}
			logger.LogAttrs(r.Context(), level, "HTTP запрос", attrs...)
		})
	}
}
