// adminauth.go — JWT middleware для аутентификации администратора FileDrop.
// Токены подписываются локальным секретом (HS256) и выдаются через
// POST /api/v1/admin/login. Внешнего IdP нет: единственный субъект — admin.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/filedrop/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeySubject — sub аутентифицированного администратора в контексте запроса.
	ContextKeySubject contextKey = "admin_subject"

	// adminSubject — единственный допустимый sub в токенах FileDrop.
	adminSubject = "admin"

	// jwtLeeway — допустимое отклонение времени при проверке exp/nbf.
	jwtLeeway = 30 * time.Second
)

// AdminAuth — middleware для проверки админских JWT.
type AdminAuth struct {
	secret []byte
	logger *slog.Logger
}

// NewAdminAuth создаёт JWT middleware с локальным секретом подписи.
// secret — FD_ADMIN_SECRET из конфигурации.
func NewAdminAuth(secret string, logger *slog.Logger) *AdminAuth {
	return &AdminAuth{
		secret: []byte(secret),
		logger: logger.With(slog.String("component", "admin_auth")),
	}
}

// IssueToken выдаёт подписанный HS256 токен администратора со сроком действия ttl.
func (a *AdminAuth) IssueToken(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Middleware возвращает HTTP middleware для аутентификации администратора.
// Извлекает Bearer token, валидирует подпись (HS256) и срок действия,
// проверяет sub и помещает его в контекст запроса.
func (a *AdminAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			// Парсинг и валидация JWT
			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims,
				func(_ *jwt.Token) (interface{}, error) { return a.secret, nil },
				jwt.WithValidMethods([]string{"HS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(jwtLeeway),
			)
			if err != nil {
				a.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if !token.Valid || claims.Subject != adminSubject {
				apierrors.Forbidden(w, "Недостаточно прав")
				return
			}

			// Помещаем sub в контекст
			ctx := context.WithValue(r.Context(), ContextKeySubject, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SubjectFromContext извлекает sub администратора из контекста запроса.
// Возвращает пустую строку, если аутентификация не проходила.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(ContextKeySubject).(string)
	return subject
}
