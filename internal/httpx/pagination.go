package httpx

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var ErrInvalidQuery = errors.New("invalid query")

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
	TotalPages int `json:"totalPages"`
}

// PageQuery is a parsed page/sort/search request. SortColumn is always a
// column from the caller's whitelist, so it is safe to interpolate into SQL.
type PageQuery struct {
	Page       int
	PageSize   int
	SortColumn string
	Desc       bool
	Search     string
}

func (q PageQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchPattern is the search term as a contains-match for LIKE ... ESCAPE '\'.
// Wildcards typed by the user match literally.
func (q PageQuery) SearchPattern() string {
	return "%" + likeEscaper.Replace(q.Search) + "%"
}

func (q PageQuery) OrderBy() string {
	if q.Desc {
		return q.SortColumn + " DESC"
	}
	return q.SortColumn + " ASC"
}

func (q PageQuery) Pagination(total int) Pagination {
	pages := 0
	if q.PageSize > 0 {
		pages = (total + q.PageSize - 1) / q.PageSize
	}
	return Pagination{Page: q.Page, PageSize: q.PageSize, TotalCount: total, TotalPages: pages}
}

// ParsePageQuery reads page, pageSize, sortBy, sortOrder and search. sortable
// maps the public sortBy names to column expressions; defaultSort must be one
// of its keys. Sorting defaults to descending.
func ParsePageQuery(values url.Values, sortable map[string]string, defaultSort string) (PageQuery, error) {
	q := PageQuery{Page: 1, PageSize: DefaultPageSize, Desc: true}

	if raw := values.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: page must be a positive integer", ErrInvalidQuery)
		}
		q.Page = n
	}

	if raw := values.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: pageSize must be a positive integer", ErrInvalidQuery)
		}
		q.PageSize = min(n, MaxPageSize)
	}

	sortBy := values.Get("sortBy")
	if sortBy == "" {
		sortBy = defaultSort
	}
	column, ok := sortable[sortBy]
	if !ok {
		return q, fmt.Errorf("%w: cannot sort by %q", ErrInvalidQuery, sortBy)
	}
	q.SortColumn = column

	switch strings.ToLower(values.Get("sortOrder")) {
	case "", "desc":
	case "asc":
		q.Desc = false
	default:
		return q, fmt.Errorf("%w: sortOrder must be asc or desc", ErrInvalidQuery)
	}

	q.Search = strings.TrimSpace(values.Get("search"))
	return q, nil
}
