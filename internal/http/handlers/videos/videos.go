// Package videos реализует каталог видео: список, просмотр и управление.
//
// Создание принимает либо multipart-форму с файлами thumbnail и video,
// либо JSON с готовыми адресами.
package videos

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/character-matters/internal/http/formfiles"
	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/lib/sl"
	"github.com/magabrotheeeer/character-matters/internal/media"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/services/content"
)

type Service interface {
	ListVideos(ctx context.Context, viewer *models.User, f models.VideoFilter) (models.Page[models.Video], error)
	GetVideo(ctx context.Context, viewer *models.User, id string) (*models.Video, error)
	CreateVideo(ctx context.Context, actor *models.User, v models.Video) (*models.Video, error)
	UpdateVideo(ctx context.Context, actor *models.User, id string, upd content.VideoUpdate) (*models.Video, error)
	DeleteVideo(ctx context.Context, actor *models.User, id string) error
}

// CreateRequest: поля нового видео.
type CreateRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description"`
	Thumbnail   string   `json:"thumbnail"`
	VideoURL    string   `json:"videoUrl" validate:"required"`
	Duration    int      `json:"duration" validate:"min=0"`
	CategoryID  string   `json:"categoryId" validate:"required"`
	AccessLevel string   `json:"accessLevel" validate:"omitempty,oneof=free premium"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
}

// UpdateRequest: изменяемые поля видео.
type UpdateRequest struct {
	Title       *string  `json:"title" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Thumbnail   *string  `json:"thumbnail"`
	VideoURL    *string  `json:"videoUrl"`
	Duration    *int     `json:"duration" validate:"omitempty,min=0"`
	CategoryID  *string  `json:"categoryId"`
	AccessLevel *string  `json:"accessLevel" validate:"omitempty,oneof=free premium"`
	Price       *float64 `json:"price" validate:"omitempty,min=0"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	uploader formfiles.Uploader
	validate *validator.Validate
}

func New(log *slog.Logger, service Service, uploader formfiles.Uploader) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		uploader: uploader,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// List возвращает страницу видео.
//
// @Summary      Список видео
// @Tags         videos
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Страница"
// @Param        limit query int false "Размер страницы"
// @Param        category query string false "ID категории"
// @Param        accessLevel query string false "free или premium"
// @Success      200 {object} response.Response
// @Router       /videos [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.videos.List")

	page, err := queryInt(r, "page")
	if err != nil {
		response.BadRequest(w, r, "page must be a number")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		response.BadRequest(w, r, "limit must be a number")
		return
	}

	res, err := h.service.ListVideos(r.Context(), middlewarectx.UserFrom(r.Context()), models.VideoFilter{
		Page:        page,
		Limit:       limit,
		CategoryID:  r.URL.Query().Get("category"),
		AccessLevel: models.AccessLevel(r.URL.Query().Get("accessLevel")),
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"videos":      res.Items,
		"total":       res.Total,
		"currentPage": res.Page,
		"totalPages":  res.TotalPages,
	}))
}

// Get возвращает видео и засчитывает просмотр.
//
// @Summary      Видео
// @Tags         videos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID видео"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /videos/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.videos.Get")

	video, err := h.service.GetVideo(r.Context(), middlewarectx.UserFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"video": video,
	}))
}

func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (CreateRequest, error) {
	var req CreateRequest
	if !formfiles.IsMultipart(r) {
		err := render.DecodeJSON(r.Body, &req)
		return req, err
	}

	urls, err := formfiles.Parse(w, r, h.uploader, media.FieldThumbnail, media.FieldVideo)
	if err != nil {
		return req, err
	}
	req.Title = r.FormValue("title")
	req.Description = r.FormValue("description")
	req.CategoryID = r.FormValue("categoryId")
	if req.CategoryID == "" {
		req.CategoryID = r.FormValue("category")
	}
	req.AccessLevel = r.FormValue("accessLevel")
	req.Thumbnail = r.FormValue("thumbnail")
	req.VideoURL = r.FormValue("videoUrl")
	if url, ok := urls[media.FieldThumbnail]; ok {
		req.Thumbnail = url
	}
	if url, ok := urls[media.FieldVideo]; ok {
		req.VideoURL = url
	}
	if raw := r.FormValue("duration"); raw != "" {
		if req.Duration, err = strconv.Atoi(raw); err != nil {
			return req, err
		}
	}
	if raw := r.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, err
		}
		req.Price = &price
	}
	return req, nil
}

// Create добавляет видео.
//
// @Summary      Создание видео
// @Tags         videos
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Видео"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Router       /videos [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.videos.Create")

	req, err := h.decodeCreate(w, r)
	if err != nil {
		log.Info("failed to read video form", sl.Err(err))
		response.Fail(w, r, log, apperr.Ensure(err, apperr.CodeInvalidInput, "invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}

	video, err := h.service.CreateVideo(r.Context(), middlewarectx.UserFrom(r.Context()), models.Video{
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		CategoryID:  req.CategoryID,
		AccessLevel: models.AccessLevel(req.AccessLevel),
		Price:       req.Price,
	})
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("video created", slog.String("video_id", video.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"video": video,
	}))
}

// Update меняет видео.
//
// @Summary      Изменение видео
// @Tags         videos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID видео"
// @Param        request body UpdateRequest true "Поля"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Router       /videos/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.videos.Update")

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

	upd := content.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
		Thumbnail:   req.Thumbnail,
		VideoURL:    req.VideoURL,
		Duration:    req.Duration,
		CategoryID:  req.CategoryID,
		Price:       req.Price,
	}
	if req.AccessLevel != nil {
		level := models.AccessLevel(*req.AccessLevel)
		upd.AccessLevel = &level
	}

	video, err := h.service.UpdateVideo(r.Context(), middlewarectx.UserFrom(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("video updated", slog.String("video_id", video.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"video": video,
	}))
}

// Delete удаляет видео.
//
// @Summary      Удаление видео
// @Tags         videos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID видео"
// @Success      200 {object} response.Response
// @Failure      403 {object} response.ErrorResponse
// @Router       /videos/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.videos.Delete")

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteVideo(r.Context(), middlewarectx.UserFrom(r.Context()), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("video deleted", slog.String("video_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "Video removed",
	}))
}
