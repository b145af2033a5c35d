// Package stripecheckout реализует запуск и завершение оплаты подписки
// через hosted checkout Stripe.
//
// Start создаёт сессию и pending-подписку, клиент уходит по checkoutUrl.
// Complete вызывается после возврата со страницы оплаты и активирует
// подписку, если сессия оплачена.
package stripecheckout

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

// StartRequest: параметры запуска checkout.
type StartRequest struct {
	PlanID       string `json:"planId" example:"premium"`
	PriceID      string `json:"priceId" example:"price_123"`
	BillingCycle string `json:"billingCycle" example:"monthly"`
	SuccessURL   string `json:"successUrl" validate:"omitempty,url"`
	CancelURL    string `json:"cancelUrl" validate:"omitempty,url"`
}

// CompleteRequest: идентификатор завершённой сессии.
type CompleteRequest struct {
	SessionID string `json:"sessionId" example:"cs_test_123"`
}

type Service interface {
	StartStripeCheckout(ctx context.Context, user *models.User, p subscription.StripeCheckoutParams) (*subscription.StripeCheckout, error)
	FinalizeStripeCheckout(ctx context.Context, user *models.User, sessionID string) (*models.Subscription, error)
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

// Start создаёт сессию checkout.
//
// @Summary      Запуск оплаты Stripe
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body StartRequest true "План и адреса возврата"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /subscriptions/checkout/stripe [post]
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.stripecheckout.Start"

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

	checkout, err := h.service.StartStripeCheckout(r.Context(), middlewarectx.UserFrom(r.Context()), subscription.StripeCheckoutParams{
		PlanID:       req.PlanID,
		PriceID:      req.PriceID,
		BillingCycle: req.BillingCycle,
		SuccessURL:   req.SuccessURL,
		CancelURL:    req.CancelURL,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("stripe checkout started", slog.String("session_id", checkout.SessionID))
	render.JSON(w, r, response.StatusOKWithData(checkout))
}

// Complete активирует подписку по оплаченной сессии.
//
// @Summary      Завершение оплаты Stripe
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CompleteRequest true "Сессия checkout"
// @Success      200 {object} response.Response
// @Failure      402 {object} response.ErrorResponse
// @Router       /subscriptions/checkout/stripe/complete [post]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.stripecheckout.Complete"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CompleteRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}

	sub, err := h.service.FinalizeStripeCheckout(r.Context(), middlewarectx.UserFrom(r.Context()), req.SessionID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("stripe checkout completed", slog.String("subscription_id", sub.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription": sub,
	}))
}
