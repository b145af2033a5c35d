// Package categories реализует просмотр и создание категорий контента.
package categories

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
)

type Service interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	CreateCategory(ctx context.Context, actor *models.User, c models.Category) (*models.Category, error)
}

// CreateRequest: новая категория.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
	Type        string `json:"type" validate:"omitempty,oneof=video ebook both"`
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

// List возвращает все категории.
//
// @Summary      Категории
// @Tags         categories
// @Produce      json
// @Success      200 {object} response.Response
// @Router       /categories [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.categories.List"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	list, err := h.service.ListCategories(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"categories": list,
	}))
}

// Create добавляет категорию.
//
// @Summary      Создание категории
// @Tags         categories
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Категория"
// @Success      201 {object} response.Response
// @Failure      409 {object} response.ErrorResponse
// @Router       /categories [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.categories.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), middlewarectx.UserFrom(r.Context()), models.Category{
		Name:        req.Name,
		Description: req.Description,
		Type:        models.CategoryType(req.Type),
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("category created", slog.String("category_id", category.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"category": category,
	}))
}
