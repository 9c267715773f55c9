package pagination

import (
	"context"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LimitOffset paginates with ?offset=&limit=.
type LimitOffset struct {
	DefaultLimit int
	MaxLimit     int
}

// NewLimitOffset returns a LimitOffset strategy; zero values fall back to package defaults.
func NewLimitOffset(defaultLimit, maxLimit int) *LimitOffset {
	return &LimitOffset{DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

// LimitOffsetMeta is reported alongside a LimitOffset page.
type LimitOffsetMeta struct {
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
	Total  int64 `json:"total"`
}

func (s *LimitOffset) FromQuery(c *gin.Context) (Page, error) {
	def, hi := sizes(s.DefaultLimit, s.MaxLimit)
	perr := &ParamError{}
	p := &limitOffsetPage{
		offset: intParam(c, "offset", 0, 0, 0, perr),
		limit:  intParam(c, "limit", def, 1, hi, perr),
	}
	if err := perr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *LimitOffset) Describe() []QueryParam {
	def, hi := sizes(s.DefaultLimit, s.MaxLimit)
	return []QueryParam{
		{Name: "offset", Type: "integer", Description: "Number of items to skip", Default: 0, Minimum: ptr(0)},
		{Name: "limit", Type: "integer", Description: "Maximum number of items to return", Default: def, Minimum: ptr(1), Maximum: ptr(hi)},
	}
}

func (s *LimitOffset) MetaPrototype() any { return LimitOffsetMeta{} }

type limitOffsetPage struct {
	offset, limit int
	total         int64
}

func (p *limitOffsetPage) Enabled() bool { return true }

func (p *limitOffsetPage) Paginate(q *gorm.DB) *gorm.DB {
	return q.Offset(p.offset).Limit(p.limit)
}

func (p *limitOffsetPage) FillMeta(ctx context.Context, q *gorm.DB, _ any) error {
	total, err := count(ctx, q)
	p.total = total
	return err
}

func (p *limitOffsetPage) Meta() any {
	return LimitOffsetMeta{Offset: p.offset, Limit: p.limit, Total: p.total}
}
