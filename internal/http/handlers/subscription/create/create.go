// Package create реализует HTTP-обработчик прямого оформления подписки Stripe.
//
// Подписка создаётся у провайдера сразу, без страницы оплаты, и становится
// активной. Если у пользователя уже есть active или pending подписка,
// ответ 409.
package create

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/services/subscription"
)

// Request: входные данные оформления.
type Request struct {
	PlanID       string `json:"planId" example:"premium"`
	PriceID      string `json:"priceId" example:"price_123"`
	BillingCycle string `json:"billingCycle" example:"monthly"`
}

// Service описывает интерфейс бизнес-логики создания подписки.
type Service interface {
	Create(ctx context.Context, user *models.User, p subscription.CreateParams) (*models.Subscription, error)
}

// Handler обрабатывает запросы на создание подписки.
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

// ServeHTTP оформляет подписку.
//
// @Summary      Оформление подписки
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Request true "План и цена Stripe"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /subscriptions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	log.Debug("request body decoded", slog.Any("request", req))

	sub, err := h.service.Create(r.Context(), middlewarectx.UserFrom(r.Context()), subscription.CreateParams{
		PlanID:       req.PlanID,
		PriceID:      req.PriceID,
		BillingCycle: req.BillingCycle,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("subscription created", slog.String("subscription_id", sub.ID), slog.String("user_id", sub.UserID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
