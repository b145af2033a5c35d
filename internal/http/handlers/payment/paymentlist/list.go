// Package paymentlist реализует историю платежей пользователя.
package paymentlist

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
	History(ctx context.Context, user *models.User) ([]models.Order, error)
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

// ServeHTTP возвращает заказы пользователя, новые первыми.
//
// @Summary      История платежей
// @Tags         payments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Router       /payments/history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	orders, err := h.service.History(r.Context(), middlewarectx.UserFrom(r.Context()))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"orders": orders,
	}))
}
