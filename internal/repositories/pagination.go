package repositories

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
)

const (
	// DefaultPageLimit applies when a caller omits or mangles the page size.
	DefaultPageLimit = 10
	// MaxPageLimit caps the page size a caller may request.
	MaxPageLimit = 100
)

// PageRequest selects one page of a sorted collection. Page is 1-based.
type PageRequest struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// NewPageRequest builds a request from raw query values, falling back to page 1
// and defaultLimit for missing or non-positive values.
func NewPageRequest(page, limit int, sortBy, sortType string, defaultLimit int) PageRequest {
	req := PageRequest{
		Page:     page,
		Limit:    limit,
		SortBy:   strings.TrimSpace(sortBy),
		SortDesc: !strings.EqualFold(strings.TrimSpace(sortType), "asc"),
	}
	return req.normalize(defaultLimit)
}

func (r PageRequest) normalize(defaultLimit int) PageRequest {
	if defaultLimit <= 0 {
		defaultLimit = DefaultPageLimit
	}
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.Limit <= 0 {
		r.Limit = defaultLimit
	}
	if r.Limit > MaxPageLimit {
		r.Limit = MaxPageLimit
	}
	// Keep Offset from overflowing on absurd page numbers.
	if maxPage := math.MaxInt / r.Limit; r.Page > maxPage {
		r.Page = maxPage
	}
	return r
}

// Offset returns the number of documents skipped before this page.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Page is the paginated list envelope returned by every list endpoint.
type Page[T any] struct {
	Docs          []T   `json:"docs"`
	TotalDocs     int64 `json:"totalDocs"`
	Limit         int   `json:"limit"`
	Page          int   `json:"page"`
	TotalPages    int   `json:"totalPages"`
	PagingCounter int64 `json:"pagingCounter"`
	HasPrevPage   bool  `json:"hasPrevPage"`
	HasNextPage   bool  `json:"hasNextPage"`
	PrevPage      *int  `json:"prevPage"`
	NextPage      *int  `json:"nextPage"`
}

// NewPage computes the envelope for docs, one page out of total matches.
func NewPage[T any](docs []T, total int64, req PageRequest) Page[T] {
	req = req.normalize(req.Limit)
	if docs == nil {
		docs = []T{}
	}

	limit := int64(req.Limit)
	totalPages := int((total + limit - 1) / limit)

	page := Page[T]{
		Docs:          docs,
		TotalDocs:     total,
		Limit:         req.Limit,
		Page:          req.Page,
		TotalPages:    totalPages,
		PagingCounter: int64(req.Offset()) + 1,
		HasPrevPage:   req.Page > 1,
		HasNextPage:   req.Page < totalPages,
	}
	if page.HasPrevPage {
		prev := req.Page - 1
		page.PrevPage = &prev
	}
	if page.HasNextPage {
		next := req.Page + 1
		page.NextPage = &next
	}
	return page
}

// listQuery describes one paginated listing: a FROM/WHERE body shared by the
// count and data queries, the selected columns, and the sortable columns.
type listQuery struct {
	columns     string
	from        string
	args        []any
	sortColumns map[string]string
	defaultSort string
	tieBreak    string
}

func (q listQuery) orderBy(req PageRequest) string {
	column, ok := q.sortColumns[req.SortBy]
	if !ok {
		column = q.sortColumns[q.defaultSort]
	}
	direction := "ASC"
	if req.SortDesc {
		direction = "DESC"
	}
	if q.tieBreak == "" {
		return fmt.Sprintf("%s %s", column, direction)
	}
	return fmt.Sprintf("%s %s, %s %s", column, direction, q.tieBreak, direction)
}

// paginate runs the count and page queries for lq and scans each row with scan.
func paginate[T any](ctx context.Context, q db.Querier, lq listQuery, req PageRequest, scan func(pgx.Row) (T, error)) (Page[T], error) {
	req = req.normalize(req.Limit)

	var total int64
	if err := q.QueryRow(ctx, "SELECT count(*) FROM "+lq.from, lq.args...).Scan(&total); err != nil {
		return Page[T]{}, fmt.Errorf("count rows: %w", err)
	}

	docs := make([]T, 0, req.Limit)
	if int64(req.Offset()) < total {
		n := len(lq.args)
		sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT $%d OFFSET $%d",
			lq.columns, lq.from, lq.orderBy(req), n+1, n+2)
		args := append(append([]any{}, lq.args...), req.Limit, req.Offset())

		rows, err := q.Query(ctx, sql, args...)
		if err != nil {
			return Page[T]{}, fmt.Errorf("query page: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			doc, err := scan(rows)
			if err != nil {
				return Page[T]{}, fmt.Errorf("scan row: %w", err)
			}
			docs = append(docs, doc)
		}
		if err := rows.Err(); err != nil {
			return Page[T]{}, fmt.Errorf("iterate rows: %w", err)
		}
	}

	return NewPage(docs, total, req), nil
}

// collectIDs scans a single-column id result set.
func collectIDs(ctx context.Context, q db.Querier, sql string, args ...any) ([]string, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return ids, nil
}
