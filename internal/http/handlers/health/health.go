// Package health отдаёт признак живости сервиса.
package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/character-matters/internal/http/response"
)

type Handler struct {
	log   *slog.Logger
	start time.Time
}

func New(log *slog.Logger) *Handler {
	return &Handler{
		log:   log,
		start: time.Now(),
	}
}

// ServeHTTP отвечает 200, пока процесс жив.
//
// @Summary      Проверка здоровья
// @Tags         health
// @Produce      json
// @Success      200 {object} response.Response
// @Router       /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status": "ok",
		"uptime": time.Since(h.start).Round(time.Second).String(),
	}))
}
