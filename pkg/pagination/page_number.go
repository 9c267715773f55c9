package pagination

import (
	"context"
	"math"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PageNumber paginates with ?page=&size=, pages starting at 1.
type PageNumber struct {
	DefaultSize int
	MaxSize     int
}

func NewPageNumber(defaultSize, maxSize int) *PageNumber {
	return &PageNumber{DefaultSize: defaultSize, MaxSize: maxSize}
}

type PageNumberMeta struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func (s *PageNumber) FromQuery(c *gin.Context) (Page, error) {
	def, hi := sizes(s.DefaultSize, s.MaxSize)
	perr := &ParamError{}
	p := &pageNumberPage{
		page: intParam(c, "page", 1, 1, maxPage(hi), perr),
		size: intParam(c, "size", def, 1, hi, perr),
	}
	if err := perr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PageNumber) Describe() []QueryParam {
	def, hi := sizes(s.DefaultSize, s.MaxSize)
	return []QueryParam{
		{Name: "page", Type: "integer", Description: "Page number", Default: 1, Minimum: ptr(1), Maximum: ptr(maxPage(hi))},
		{Name: "size", Type: "integer", Description: "Page size", Default: def, Minimum: ptr(1), Maximum: ptr(hi)},
	}
}

// maxPage is the last page whose offset fits in an int at the largest page size.
func maxPage(maxSize int) int {
	return math.MaxInt/maxSize + 1
}

func (s *PageNumber) MetaPrototype() any { return PageNumberMeta{} }

type pageNumberPage struct {
	page, size int
	total      int64
}

func (p *pageNumberPage) Enabled() bool { return true }

func (p *pageNumberPage) Paginate(q *gorm.DB) *gorm.DB {
	return q.Offset((p.page - 1) * p.size).Limit(p.size)
}

func (p *pageNumberPage) FillMeta(ctx context.Context, q *gorm.DB, _ any) error {
	total, err := count(ctx, q)
	p.total = total
	return err
}

func (p *pageNumberPage) Meta() any {
	size := int64(p.size)
	return PageNumberMeta{
		Page:  p.page,
		Size:  p.size,
		Total: p.total,
		Pages: (p.total + size - 1) / size,
	}
}
