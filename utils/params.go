package utils

import (
	"net/http"
	"strconv"
)

const maxLimit = 100

type QueryOptions struct {
	Page   int
	Limit  int
	Search string
}

// Skip is the number of documents before the requested page.
func (o QueryOptions) Skip() int {
	return (o.Page - 1) * o.Limit
}

func ParseQueryOptions(r *http.Request) QueryOptions {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return QueryOptions{
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
	}
}

// QueryInt reads a non-negative integer query parameter, falling back to def.
func QueryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}
