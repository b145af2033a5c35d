// Package paymentwebhook принимает события Stripe.
//
// Тело читается целиком без разбора: подпись Stripe-Signature считается
// по сырым байтам. При неверной подписи ответ 400, иначе {"received":true}.
package paymentwebhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
)

// maxPayload: предельный размер тела события.
const maxPayload = 1 << 20

type Service interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
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

// ServeHTTP проверяет подпись и передаёт событие сервису.
//
// @Summary      Webhook Stripe
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Подпись Stripe"
// @Success      200 {object} map[string]bool
// @Failure      400 {object} response.ErrorResponse
// @Router       /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.BadRequest(w, r, "cannot read body")
		return
	}
	defer r.Body.Close()

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	render.JSON(w, r, map[string]bool{"received": true})
}
