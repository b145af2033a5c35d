// Package formfiles разбирает multipart-формы с файлами контента.
package formfiles

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
)

const memoryLimit = 32 << 20

// Uploader сохраняет файл формы и возвращает его адрес.
type Uploader interface {
	SaveFormFile(ctx context.Context, field string, fh *multipart.FileHeader) (string, error)
	MaxSize() int64
}

// IsMultipart сообщает, пришла ли форма с файлами.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// Parse читает форму и сохраняет файлы из разрешённых полей.
// Возвращает адреса сохранённых файлов по имени поля.
func Parse(w http.ResponseWriter, r *http.Request, uploader Uploader, allowed ...string) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(len(allowed))*uploader.MaxSize()+memoryLimit)
	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		return nil, apperr.Wrap(apperr.CodeInvalidInput, "Upload is too large or malformed", err)
	}

	urls := make(map[string]string, len(allowed))
	for field, headers := range r.MultipartForm.File {
		if !slices.Contains(allowed, field) {
			return nil, apperr.InvalidInput(fmt.Sprintf("Unexpected file field %q", field))
		}
		if len(headers) != 1 {
			return nil, apperr.InvalidInput(fmt.Sprintf("Field %s accepts a single file", field))
		}
		url, err := uploader.SaveFormFile(r.Context(), field, headers[0])
		if err != nil {
			return nil, err
		}
		urls[field] = url
	}
	return urls, nil
}
