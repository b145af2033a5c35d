// Package current реализует HTTP-обработчик получения действующей подписки пользователя.
//
// Handler берёт пользователя из контекста запроса и возвращает его подписку
// в статусе active или pending. Если такой нет, отвечает 404.
package current

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// Service описывает интерфейс чтения подписки.
type Service interface {
	Get(ctx context.Context, user *models.User) (*models.Subscription, error)
}

// Handler обрабатывает запросы на получение подписки текущего пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP возвращает подписку.
//
// @Summary      Текущая подписка
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Router       /subscriptions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.current"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sub, err := h.service.Get(r.Context(), middlewarectx.UserFrom(r.Context()))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Debug("subscription read", slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
