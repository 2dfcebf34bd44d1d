package service

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a zero-based page of a listing.
type Page struct {
	Number int
	Size   int
}

func (p Page) normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Page) offset() int { return p.Number * p.Size }

// PageResult is one page of a listing plus totals.
type PageResult[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

func newPageResult[T any](items []T, total int64, p Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(p.Size) - 1) / int64(p.Size))
	return PageResult[T]{
		Content:       items,
		Number:        p.Number,
		Size:          p.Size,
		TotalElements: total,
		TotalPages:    pages,
		First:         p.Number == 0,
		Last:          p.Number >= pages-1,
	}
}
