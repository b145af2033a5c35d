package models

import "time"

// CategoryType: вид контента категории.
type CategoryType string

const (
	CategoryVideo CategoryType = "video"
	CategoryEbook CategoryType = "ebook"
	CategoryBoth  CategoryType = "both"
)

// Category: категория видео и книг.
type Category struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Type        CategoryType `json:"type"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// AccessLevel: уровень доступа к видео.
type AccessLevel string

const (
	AccessFree    AccessLevel = "free"
	AccessPremium AccessLevel = "premium"
)

// Video: видеоматериал.
type Video struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Thumbnail   string      `json:"thumbnail"`
	VideoURL    string      `json:"videoUrl"`
	Duration    int         `json:"duration"`
	CategoryID  string      `json:"categoryId"`
	AccessLevel AccessLevel `json:"accessLevel"`
	Price       *float64    `json:"price,omitempty"`
	CreatedBy   string      `json:"createdBy"`
	Views       int         `json:"views"`
	Likes       int         `json:"likes"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// VideoFilter: параметры выборки видео.
type VideoFilter struct {
	Page        int
	Limit       int
	CategoryID  string
	AccessLevel AccessLevel
}

// Ebook: электронная книга.
type Ebook struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	Description   string     `json:"description"`
	CoverImage    string     `json:"coverImage"`
	FileURL       string     `json:"fileUrl"`
	Price         float64    `json:"price"`
	CategoryID    string     `json:"categoryId"`
	Pages         int        `json:"pages,omitempty"`
	Language      string     `json:"language"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedDate *time.Time `json:"publishedDate,omitempty"`
	CreatedBy     string     `json:"createdBy"`
	SalesCount    int        `json:"salesCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// EbookFilter: параметры выборки книг.
type EbookFilter struct {
	Page       int
	Limit      int
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
}

// Page: страница результатов выборки.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"currentPage"`
	TotalPages int `json:"totalPages"`
}

// NewPage собирает страницу и считает число страниц.
func NewPage[T any](items []T, total, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page[T]{Items: items, Total: total, Page: page, TotalPages: pages}
}
