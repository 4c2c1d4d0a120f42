package utils

import (
	"net/http"
	"net/url"
	"strconv"

	"recipehub/pkg/models"
)

const MaxPageSize = 100

type Pagination struct {
	Page  int
	Limit int
}

// ParsePagination reads page and limit from q, falling back to page 1 and
// defLimit. Limit is capped at MaxPageSize.
func ParsePagination(q url.Values, defLimit int) Pagination {
	p := Pagination{
		Page:  parsePositive(q.Get("page"), 1),
		Limit: parsePositive(q.Get("limit"), defLimit),
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Links builds next/previous URLs for a result set of count items by
// rewriting the page parameter of u.
func (p Pagination) Links(u *url.URL, count int) (next, prev *string) {
	if p.Page*p.Limit < count {
		s := withPage(u, p.Page+1)
		next = &s
	}
	if p.Page > 1 {
		s := withPage(u, p.Page-1)
		prev = &s
	}
	return next, prev
}

func withPage(u *url.URL, page int) string {
	cp := *u
	q := cp.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	cp.RawQuery = q.Encode()
	return cp.String()
}

func parsePositive(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// RequestURL rebuilds the absolute URL the client used for r.
func RequestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Host = r.Host
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		u.Scheme = proto
	}
	return &u
}

// NewPage wraps one page of items with the total count and navigation links.
func NewPage[T any](r *http.Request, p Pagination, items []T, total int) models.Page[T] {
	next, prev := p.Links(RequestURL(r), total)
	if items == nil {
		items = []T{}
	}
	return models.Page[T]{Count: total, Next: next, Previous: prev, Results: items}
}
