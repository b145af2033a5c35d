// Package users реализует административные операции над пользователями.
//
// Права проверяет сервис: список и удаление доступны администратору,
// изменение разрешено самому пользователю или администратору.
package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// Service описывает операции над пользователями.
type Service interface {
	List(ctx context.Context, actor *models.User) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, actor *models.User, id string, upd models.ProfileUpdate) (*models.User, error)
	Delete(ctx context.Context, actor *models.User, id string) error
}

// UpdateRequest: изменяемые поля пользователя.
type UpdateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=2,max=100"`
	Avatar *string `json:"avatar" validate:"omitempty,url"`
	Email  *string `json:"email" validate:"omitempty,email"`
	Role   *string `json:"role" validate:"omitempty,oneof=admin subscriber free-user"`
}

func (req UpdateRequest) toModel() models.ProfileUpdate {
	upd := models.ProfileUpdate{Name: req.Name, Avatar: req.Avatar, Email: req.Email}
	if req.Role != nil {
		role := models.Role(*req.Role)
		upd.Role = &role
	}
	return upd
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List возвращает всех пользователей.
//
// @Summary      Список пользователей
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Router       /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.List")

	list, err := h.service.List(r.Context(), middlewarectx.UserFrom(r.Context()))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"users": list,
	}))
}

// Get возвращает пользователя по id.
//
// @Summary      Пользователь
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID пользователя"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Router       /users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Get")

	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": user,
	}))
}

// Update меняет пользователя.
//
// @Summary      Изменение пользователя
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID пользователя"
// @Param        request body UpdateRequest true "Поля"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Router       /users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Update")

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

	user, err := h.service.Update(r.Context(), middlewarectx.UserFrom(r.Context()), chi.URLParam(r, "id"), req.toModel())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user updated", slog.String("user_id", user.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"user": user,
	}))
}

// Delete удаляет пользователя.
//
// @Summary      Удаление пользователя
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID пользователя"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Router       /users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Delete")

	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), middlewarectx.UserFrom(r.Context()), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user deleted", slog.String("user_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "User removed",
	}))
}
