// Package paymentcreate реализует создание PaymentIntent для покупки электронной книги.
package paymentcreate

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
	"github.com/magabrotheeeer/character-matters/internal/services/payment"
)

// Request: книга, которую оплачивает пользователь.
type Request struct {
	EbookID string `json:"ebookId" validate:"required"`
}

// Service описывает создание платежа.
type Service interface {
	CreatePaymentIntent(ctx context.Context, user *models.User, ebookID string) (*payment.Intent, error)
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

// ServeHTTP создаёт PaymentIntent и pending-заказ.
//
// @Summary      Платёж за книгу
// @Tags         payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body Request true "Книга"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Router       /payments/create-payment-intent [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"

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
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	intent, err := h.service.CreatePaymentIntent(r.Context(), middlewarectx.UserFrom(r.Context()), req.EbookID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("payment intent created", slog.String("order_id", intent.OrderID))
	render.JSON(w, r, response.StatusOKWithData(intent))
}
