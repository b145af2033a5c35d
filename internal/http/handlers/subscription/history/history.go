// Package history реализует HTTP-обработчик журнала событий подписки пользователя.
package history

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

type Service interface {
	History(ctx context.Context, user *models.User) ([]models.SubscriptionEvent, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP возвращает события подписки, новые первыми.
//
// @Summary      История подписки
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Router       /subscriptions/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.history"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	events, err := h.service.History(r.Context(), middlewarectx.UserFrom(r.Context()))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if events == nil {
		events = []models.SubscriptionEvent{}
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"events": events,
	}))
}
