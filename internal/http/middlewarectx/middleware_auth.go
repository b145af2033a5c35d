// Package middlewarectx содержит HTTP middleware для аутентификации,
// проверки ролей, ограничения частоты запросов и сбора метрик.
//
// JWTMiddleware проверяет токен в заголовке Authorization через сервис
// аутентификации и кладёт найденного пользователя в контекст запроса.
// Обработчики достают его через UserFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// UserKey: ключ аутентифицированного пользователя в контексте.
const UserKey Key = "user"

// Authenticator проверяет токен и возвращает владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// WithUser возвращает контекст с пользователем.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFrom достаёт пользователя из контекста, nil если запрос анонимный.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Если токен валиден, добавляет пользователя в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Fail(w, r, log, apperr.Unauthorized("Not authorized, no token"))
				return
			}
			tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			user, err := auth.Authenticate(r.Context(), tokenStr)
			if err != nil {
				if apperr.CodeOf(err) == apperr.CodeInternal {
					response.Fail(w, r, log, err)
					return
				}
				response.Fail(w, r, log, apperr.Wrap(apperr.CodeUnauthorized, "Not authorized, token failed", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// AdminOnly пропускает только администраторов. Ставится после JWTMiddleware.
func AdminOnly(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFrom(r.Context())
			if user == nil {
				response.Fail(w, r, log, apperr.Unauthorized("Not authorized"))
				return
			}
			if !user.IsAdmin() {
				response.Fail(w, r, log, apperr.Forbidden("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
