package collection

import (
	"context"
	"errors"
	"fmt"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

var ErrInvalidPage = errors.New("invalid pagination")

type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

type ItemPage struct {
	Items      []ItemResponse `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

func ValidatePage(page, limit int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidPage)
	}
	if limit < 1 || limit > MaxPageSize {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPage, MaxPageSize)
	}
	return nil
}

// ListItems returns a 1-based, newest-first page of items.
func (s *Service) ListItems(ctx context.Context, page, limit int) (*ItemPage, error) {
	if err := ValidatePage(page, limit); err != nil {
		return nil, err
	}
	items, total, err := s.repo.Page(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ItemPage{
		Items: toItemResponses(items),
		Pagination: Pagination{
			CurrentPage:     page,
			TotalPages:      totalPages,
			TotalItems:      total,
			ItemsPerPage:    limit,
			HasNextPage:     page < totalPages,
			HasPreviousPage: page > 1,
		},
	}, nil
}
