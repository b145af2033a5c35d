// Package media сохраняет загружаемые файлы видео, обложек и электронных книг.
//
// Каждое поле формы принимает только свой тип содержимого. Файлы попадают
// в S3, если бакет настроен, иначе на локальный диск.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/character-matters/internal/lib/apperr"
)

// DefaultMaxSize: предельный размер одного файла.
const DefaultMaxSize int64 = 100 << 20

// Поля формы, из которых принимаются файлы.
const (
	FieldVideo      = "video"
	FieldEbookFile  = "ebookFile"
	FieldThumbnail  = "thumbnail"
	FieldCoverImage = "coverImage"
)

// Store кладёт содержимое по ключу и возвращает публичный адрес файла.
type Store interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// Upload: один файл из multipart-формы.
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader проверяет файлы и передаёт их в Store.
type Uploader struct {
	store   Store
	maxSize int64
	now     func() time.Time
	newID   func() string
}

// NewUploader создаёт Uploader. maxSize <= 0 означает DefaultMaxSize.
func NewUploader(store Store, maxSize int64) *Uploader {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Uploader{
		store:   store,
		maxSize: maxSize,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// MaxSize возвращает предельный размер файла в байтах.
func (u *Uploader) MaxSize() int64 {
	return u.maxSize
}

// Validate проверяет, что тип содержимого подходит полю формы.
func Validate(field, contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}

	var ok bool
	switch field {
	case FieldVideo:
		ok = strings.HasPrefix(ct, "video/")
	case FieldEbookFile:
		ok = ct == "application/pdf"
	case FieldThumbnail, FieldCoverImage:
		ok = strings.HasPrefix(ct, "image/")
	default:
		return apperr.InvalidInput(fmt.Sprintf("Unexpected file field %q", field))
	}
	if !ok {
		return apperr.InvalidInput(fmt.Sprintf("Invalid file type %q for field %s", contentType, field))
	}
	return nil
}

// Key строит имя объекта вида <field>-<unixMillis>-<uuid><ext>.
func (u *Uploader) Key(field, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s-%d-%s%s", field, u.now().UnixMilli(), u.newID(), ext)
}

// Save проверяет файл и сохраняет его, возвращая публичный адрес.
func (u *Uploader) Save(ctx context.Context, up Upload) (string, error) {
	const op = "media.Save"

	if err := Validate(up.Field, up.ContentType); err != nil {
		return "", err
	}
	if up.Size > u.maxSize {
		return "", apperr.InvalidInput(fmt.Sprintf("File %s exceeds %d MB", up.Filename, u.maxSize>>20))
	}

	url, err := u.store.Put(ctx, u.Key(up.Field, up.Filename), up.ContentType, up.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "Failed to store file", fmt.Errorf("%s: %w", op, err))
	}
	return url, nil
}

// SaveFormFile сохраняет файл из multipart-формы под именем поля field.
func (u *Uploader) SaveFormFile(ctx context.Context, field string, fh *multipart.FileHeader) (string, error) {
	const op = "media.SaveFormFile"

	f, err := fh.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInvalidInput, "Cannot read uploaded file", fmt.Errorf("%s: %w", op, err))
	}
	defer f.Close()

	return u.Save(ctx, Upload{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
}
