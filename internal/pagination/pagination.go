package pagination

import (
	"gorm.io/gorm"
)

// Default and maximum page sizes.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest holds validated pagination parameters.
type PageRequest struct {
	Page  int
	Limit int
}

// Defaults fills in default values when page or limit are not provided.
func (p *PageRequest) Defaults() {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
}

// Offset returns the SQL OFFSET for the current page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageResponse wraps a page of items with the list metadata the API returns.
type PageResponse[T any] struct {
	Success     bool  `json:"success"`
	Count       int   `json:"count"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Data        []T   `json:"data"`
}

// NewPageResponse creates a PageResponse from the given data and total count.
func NewPageResponse[T any](data []T, req PageRequest, total int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if req.Limit > 0 {
		totalPages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return PageResponse[T]{
		Success:     true,
		Count:       len(data),
		Total:       total,
		TotalPages:  totalPages,
		CurrentPage: req.Page,
		Data:        data,
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.Limit)
	}
}
