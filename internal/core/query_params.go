// internal/core/query_params.go
package core

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default and limit constants for history pagination
const (
	DefaultLimit = 100
	MaxLimit     = 1000
	DefaultOrder = "asc"
)

// ListQueryOptions holds parsed query parameters for history listings
type ListQueryOptions struct {
	// Pagination
	Limit  int
	Offset int

	// "asc" is chronological, "desc" newest first
	SortOrder string
}

// DefaultListQueryOptions returns the options used when no parameters are given.
func DefaultListQueryOptions() *ListQueryOptions {
	return &ListQueryOptions{
		Limit:     DefaultLimit,
		Offset:    0,
		SortOrder: DefaultOrder,
	}
}

// ParseListQueryOptions extracts pagination and ordering options from query parameters.
// Returns the parsed options and any validation error.
func ParseListQueryOptions(queryParams url.Values) (*ListQueryOptions, error) {
	opts := DefaultListQueryOptions()

	// Parse limit
	if limitStr := queryParams.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be an integer")
		}
		if limit < 1 {
			return nil, fmt.Errorf("invalid 'limit' parameter: must be at least 1")
		}
		if limit > MaxLimit {
			return nil, fmt.Errorf("invalid 'limit' parameter: maximum is %d", MaxLimit)
		}
		opts.Limit = limit
	}

	// Parse offset
	if offsetStr := queryParams.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be an integer")
		}
		if offset < 0 {
			return nil, fmt.Errorf("invalid 'offset' parameter: must be non-negative")
		}
		opts.Offset = offset
	}

	// Parse sort order
	if order := queryParams.Get("order"); order != "" {
		lowerOrder := strings.ToLower(order)
		if lowerOrder != "asc" && lowerOrder != "desc" {
			return nil, fmt.Errorf("invalid 'order' parameter: must be 'asc' or 'desc'")
		}
		opts.SortOrder = lowerOrder
	}

	return opts, nil
}

// Window returns the [start, end) bounds of a page over total items.
func (o *ListQueryOptions) Window(total int) (int, int) {
	start := o.Offset
	if start > total {
		start = total
	}
	end := start + o.Limit
	if end > total {
		end = total
	}
	return start, end
}
