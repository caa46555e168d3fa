// logging.go — access-лог HTTP-запросов FileDrop.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// accessWriter накапливает итог ответа: статус-код и объём отданных байт.
// Для скачиваний объём — полезная величина в логе: размер выданного файла.
type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (aw *accessWriter) WriteHeader(code int) {
	aw.status = code
	aw.ResponseWriter.WriteHeader(code)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	n, err := aw.ResponseWriter.Write(b)
	aw.bytes += int64(n)
	return n, err
}

// Unwrap отдаёт исходный ResponseWriter для http.ResponseController.
func (aw *accessWriter) Unwrap() http.ResponseWriter {
	return aw.ResponseWriter
}

// RequestLogger возвращает middleware access-лога. Каждый запрос пишется
// одной записью после обработки; уровень определяется исходом:
// INFO — успех, WARN — ошибка клиента (4xx), ERROR — ошибка сервера (5xx).
// В лог попадает только путь запроса: пароли передаются в теле и в URL
// не появляются.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			aw := &accessWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(aw, r)

			level := slog.LevelInfo
			switch {
			case aw.status >= 500:
				level = slog.LevelError
			case aw.status >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "Запрос обработан",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", aw.status),
				slog.Int64("response_bytes", aw.bytes),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("user_agent", r.UserAgent()),
			)
		})
	}
}
