// Package ebooks реализует каталог электронных книг и их покупку.
package ebooks

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/character-matters/internal/http/formfiles"
	"github.com/magabrotheeeer/character-matters/internal/http/middlewarectx"
	"github.com/magabrotheeeer/character-matters/internal/http/response"
	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
	"github.com/magabrotheeeer/character-matters/internal/media"
	"github.com/magabrotheeeer/character-matters/internal/models"
	"github.com/magabrotheeeer/character-matters/internal/services/content"
)

type Service interface {
	ListEbooks(ctx context.Context, f models.EbookFilter) (models.Page[models.Ebook], error)
	GetEbook(ctx context.Context, viewer *models.User, id string) (*content.EbookDetails, error)
	CreateEbook(ctx context.Context, actor *models.User, e models.Ebook) (*models.Ebook, error)
	Purchase(ctx context.Context, user *models.User, ebookID string) (*models.Order, error)
}

// CreateRequest: поля новой книги.
type CreateRequest struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Author        string  `json:"author" validate:"required,max=200"`
	Description   string  `json:"description"`
	CoverImage    string  `json:"coverImage"`
	FileURL       string  `json:"fileUrl" validate:"required"`
	Price         float64 `json:"price" validate:"min=0"`
	CategoryID    string  `json:"categoryId" validate:"required"`
	Pages         int     `json:"pages" validate:"min=0"`
	Language      string  `json:"language"`
	Publisher     string  `json:"publisher"`
	PublishedDate string  `json:"publishedDate"`
}

func (req CreateRequest) toModel() (models.Ebook, error) {
	e := models.Ebook{
		Title:       req.Title,
		Author:      req.Author,
		Description: req.Description,
		CoverImage:  req.CoverImage,
		FileURL:     req.FileURL,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Pages:       req.Pages,
		Language:    req.Language,
		Publisher:   req.Publisher,
	}
	if req.PublishedDate != "" {
		t, err := time.Parse(time.DateOnly, req.PublishedDate)
		if err != nil {
			return e, apperr.InvalidInput("publishedDate must be YYYY-MM-DD")
		}
		e.PublishedDate = &t
	}
	return e, nil
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

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.InvalidInput(key + " must be a number")
	}
	return &v, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidInput(key + " must be a number")
	}
	return v, nil
}

func filterFrom(r *http.Request) (models.EbookFilter, error) {
	f := models.EbookFilter{CategoryID: r.URL.Query().Get("category")}
	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		return f, err
	}
	if f.MinPrice, err = queryFloat(r, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = queryFloat(r, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

// List возвращает страницу книг.
//
// @Summary      Список книг
// @Tags         ebooks
// @Produce      json
// @Param        page query int false "Страница"
// @Param        limit query int false "Размер страницы"
// @Param        category query string false "ID категории"
// @Param        minPrice query number false "Минимальная цена"
// @Param        maxPrice query number false "Максимальная цена"
// @Success      200 {object} response.Response
// @Router       /ebooks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.ebooks.List")

	f, err := filterFrom(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	res, err := h.service.ListEbooks(r.Context(), f)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ebooks":      res.Items,
		"total":       res.Total,
		"currentPage": res.Page,
		"totalPages":  res.TotalPages,
	}))
}

// Get возвращает книгу и признак покупки.
//
// @Summary      Книга
// @Tags         ebooks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID книги"
// @Success      200 {object} response.Response
// @Failure      404 {object} response.ErrorResponse
// @Router       /ebooks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.ebooks.Get")

	details, err := h.service.GetEbook(r.Context(), middlewarectx.UserFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ebook": details,
	}))
}

func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (CreateRequest, error) {
	var req CreateRequest
	if !formfiles.IsMultipart(r) {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			return req, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err)
		}
		return req, nil
	}

	urls, err := formfiles.Parse(w, r, h.uploader, media.FieldCoverImage, media.FieldEbookFile)
	if err != nil {
		return req, err
	}
	req.Title = r.FormValue("title")
	req.Author = r.FormValue("author")
	req.Description = r.FormValue("description")
	req.CategoryID = r.FormValue("categoryId")
	if req.CategoryID == "" {
		req.CategoryID = r.FormValue("category")
	}
	req.Language = r.FormValue("language")
	req.Publisher = r.FormValue("publisher")
	req.PublishedDate = r.FormValue("publishedDate")
	req.CoverImage = urls[media.FieldCoverImage]
	req.FileURL = urls[media.FieldEbookFile]

	if raw := r.FormValue("price"); raw != "" {
		if req.Price, err = strconv.ParseFloat(raw, 64); err != nil {
			return req, apperr.InvalidInput("price must be a number")
		}
	}
	if raw := r.FormValue("pages"); raw != "" {
		if req.Pages, err = strconv.Atoi(raw); err != nil {
			return req, apperr.InvalidInput("pages must be a number")
		}
	}
	return req, nil
}

// Create добавляет книгу.
//
// @Summary      Создание книги
// @Tags         ebooks
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateRequest true "Книга"
// @Success      201 {object} response.Response
// @Failure      400 {object} response.ErrorResponse
// @Failure      403 {object} response.ErrorResponse
// @Router       /ebooks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.ebooks.Create")

	req, err := h.decodeCreate(w, r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Invalid(w, r, err)
		return
	}
	e, err := req.toModel()
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	ebook, err := h.service.CreateEbook(r.Context(), middlewarectx.UserFrom(r.Context()), e)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("ebook created", slog.String("ebook_id", ebook.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"ebook": ebook,
	}))
}

// Purchase оформляет покупку книги.
//
// @Summary      Покупка книги
// @Tags         ebooks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "ID книги"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.ErrorResponse
// @Router       /ebooks/{id}/purchase [post]
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.ebooks.Purchase")

	order, err := h.service.Purchase(r.Context(), middlewarectx.UserFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}

	log.Info("ebook purchased", slog.String("order_id", order.ID), slog.String("ebook_id", order.EbookID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"message": "EBook purchased successfully",
		"order":   order,
	}))
}
