// Package cancel реализует HTTP-обработчик отмены подписки.
package cancel

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
	Cancel(ctx context.Context, user *models.User) (*models.Subscription, error)
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

// ServeHTTP отменяет действующую подписку пользователя.
//
// @Summary      Отмена подписки
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Failure      502 {object} response.ErrorResponse
// @Router       /subscriptions [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	sub, err := h.service.Cancel(r.Context(), middlewarectx.UserFrom(r.Context()))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription canceled", slog.String("subscription_id", sub.ID), slog.String("user_id", sub.UserID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message":      "Subscription canceled successfully",
		"subscription": sub,
	}))
}
