// Package pagination translates query parameters into gorm limit/offset or
// keyset clauses and reports page metadata.
package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Strategy parses a page request from the query string.
type Strategy interface {
	FromQuery(c *gin.Context) (Page, error)
	Describe() []QueryParam
}

// Page is a parsed page request.
type Page interface {
	Enabled() bool
	// Paginate restricts q to the requested page.
	Paginate(q *gorm.DB) *gorm.DB
	// FillMeta computes metadata from the unpaginated query q and the fetched results.
	FillMeta(ctx context.Context, q *gorm.DB, results any) error
	Meta() any
}

// Ordered is implemented by pages (and their strategies) that apply their own
// ORDER BY; callers must not add another.
type Ordered interface {
	OwnsOrdering()
}

// MetaPrototype is implemented by strategies that can describe their metadata shape.
type MetaPrototype interface {
	MetaPrototype() any
}

// QueryParam documents one query parameter a strategy accepts.
type QueryParam struct {
	Name        string
	Type        string
	Description string
	Default     any
	Minimum     *int
	Maximum     *int
}

// ParamIssue describes a single invalid query parameter.
type ParamIssue struct {
	Param   string `json:"field"`
	Message string `json:"message"`
}

// ParamError is returned for out-of-range or malformed pagination parameters.
type ParamError struct {
	Issues []ParamIssue
}

func (e *ParamError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Param + ": " + is.Message
	}
	return "invalid pagination parameters: " + strings.Join(parts, "; ")
}

func (e *ParamError) add(param, format string, args ...any) {
	e.Issues = append(e.Issues, ParamIssue{Param: param, Message: fmt.Sprintf(format, args...)})
}

func (e *ParamError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

// intParam reads an integer query parameter constrained to [lo, hi]; hi <= 0 means unbounded.
func intParam(c *gin.Context, name string, def, lo, hi int, perr *ParamError) int {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	switch {
	case err != nil:
		perr.add(name, "must be an integer")
		return def
	case n < lo:
		perr.add(name, "must be greater than or equal to %d", lo)
		return def
	case hi > 0 && n > hi:
		perr.add(name, "must be less than or equal to %d", hi)
		return def
	}
	return n
}

func sizes(def, hi int) (int, int) {
	if hi <= 0 {
		hi = MaxSize
	}
	if def <= 0 {
		def = DefaultSize
	}
	return min(def, hi), hi
}

func ptr(n int) *int { return &n }

func count(ctx context.Context, q *gorm.DB) (int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).WithContext(ctx).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return total, nil
}

// Disabled returns every row.
type Disabled struct{}

func (Disabled) FromQuery(*gin.Context) (Page, error) { return disabledPage{}, nil }
func (Disabled) Describe() []QueryParam               { return nil }

type disabledPage struct{}

func (disabledPage) Enabled() bool                                 { return false }
func (disabledPage) Paginate(q *gorm.DB) *gorm.DB                  { return q }
func (disabledPage) FillMeta(context.Context, *gorm.DB, any) error { return nil }
func (disabledPage) Meta() any                                     { return nil }

// IsEnabled reports whether p paginates; nil pages are disabled.
func IsEnabled(p Page) bool {
	return p != nil && p.Enabled()
}
