// Package profile реализует чтение и изменение профиля текущего пользователя.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// Service описывает операции профиля.
type Service interface {
	Profile(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, name, avatar *string) (*models.User, error)
}

// UpdateRequest: изменяемые поля профиля, отсутствующие не меняются.
type UpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
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

// Get возвращает профиль.
//
// @Summary      Профиль
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      401 {object} response.ErrorResponse
// @Router       /auth/profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile.Get"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user := middlewarectx.UserFrom(r.Context())
	if user == nil {
		response.Fail(w, r, log, apperr.Unauthorized("Not authorized"))
		return
	}

	profile, err := h.service.Profile(r.Context(), user.ID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": profile,
	}))
}

// Update меняет имя и аватар.
//
// @Summary      Изменение профиля
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateRequest true "Поля профиля"
// @Success      200 {object} response.Response
// @Failure      422 {object} response.Response
// @Router       /auth/profile [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile.Update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user := middlewarectx.UserFrom(r.Context())
	if user == nil {
		response.Fail(w, r, log, apperr.Unauthorized("Not authorized"))
		return
	}

	var req UpdateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, req.Name, req.Avatar)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("profile updated", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "Profile updated successfully",
		"user":    updated,
	}))
}
