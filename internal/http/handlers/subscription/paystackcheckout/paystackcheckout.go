// Package paystackcheckout реализует запуск и проверку оплаты подписки через Paystack.
package paystackcheckout

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/services/subscription"
)

// StartRequest: параметры запуска оплаты. Amount в основной единице валюты.
type StartRequest struct {
	PlanID       string  `json:"planId" example:"premium"`
	Amount       float64 `json:"amount" example:"5000"`
	BillingCycle string  `json:"billingCycle" example:"monthly"`
	CallbackURL  string  `json:"callbackUrl" validate:"omitempty,url"`
}

type Service interface {
	StartPaystackCheckout(ctx context.Context, user *models.User, p subscription.PaystackCheckoutParams) (*subscription.PaystackCheckout, error)
	VerifyPaystackCheckout(ctx context.Context, user *models.User, reference string) (*models.Subscription, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Start инициализирует транзакцию.
//
// @Summary      Запуск оплаты Paystack
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body StartRequest true "План и сумма"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.ErrorResponse
// @Router       /subscriptions/checkout/paystack [post]
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.paystackcheckout.Start"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req StartRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	checkout, err := h.service.StartPaystackCheckout(r.Context(), middlewarectx.UserFrom(r.Context()), subscription.PaystackCheckoutParams{
		PlanID:       req.PlanID,
		Amount:       req.Amount,
		BillingCycle: req.BillingCycle,
		CallbackURL:  req.CallbackURL,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("paystack checkout started", slog.String("reference", checkout.Reference))
	render.JSON(w, r, response.StatusOKWithData(checkout))
}

// Verify проверяет транзакцию по reference и активирует подписку.
//
// @Summary      Проверка оплаты Paystack
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        reference query string true "Reference транзакции"
// @Success      200 {object} response.Response
// @Failure      402 {object} response.ErrorResponse
// @Router       /subscriptions/checkout/paystack/verify [get]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.paystackcheckout.Verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	reference := r.URL.Query().Get("reference")
	sub, err := h.service.VerifyPaystackCheckout(r.Context(), middlewarectx.UserFrom(r.Context()), reference)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("paystack payment verified", slog.String("reference", reference), slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
