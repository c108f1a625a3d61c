package option

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/regi/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type queryOptionFunc func(stmt *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

// Condition is a single field comparison. Field names come from code,
// never from request input.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if strings.TrimSpace(cond.Field) == "" || cond.Operator == "" {
			return stmt
		}
		return stmt.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
	})
}

// QuerySortBy orders results by a caller-chosen column, restricted to an
// allow list so request input never reaches the ORDER BY clause raw.
type QuerySortBy struct {
	Allow   map[string]bool
	SortBy  string
	OrderBy string
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		Allow:   allow,
		SortBy:  sortBy,
		OrderBy: orderBy,
	}
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		column := strings.TrimSpace(sort.SortBy)
		if column == "" || !sort.Allow[column] {
			return stmt
		}
		direction := "asc"
		if strings.EqualFold(strings.TrimSpace(sort.OrderBy), "desc") {
			direction = "desc"
		}
		return stmt.Order(column + " " + direction)
	})
}

// ApplyPagination applies the page cursor and fetches one row past the
// page size so callers can detect whether more pages remain. Results
// must be ordered created_at desc, id desc for the cursor to hold.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryOptionFunc(func(stmt *gorm.DB) *gorm.DB {
		if token := strings.TrimSpace(page.PageToken); token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil {
				if at, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt); err == nil && cursor.ID != "" {
					stmt = stmt.Where("(created_at, id) < (?, ?)", at, cursor.ID)
				}
			}
		}
		return stmt.Limit(page.Limit() + 1)
	})
}
