package pagination

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cursor is forward-only keyset pagination over a single unique column.
// It owns the query ordering.
type Cursor struct {
	DefaultSize int
	MaxSize     int
	Field       string // column name, "id" when empty
	Descending  bool
}

func NewCursor(field string, defaultSize, maxSize int) *Cursor {
	return &Cursor{Field: field, DefaultSize: defaultSize, MaxSize: maxSize}
}

type CursorMeta struct {
	Size       int     `json:"size"`
	Cursor     *string `json:"cursor"`
	NextCursor *string `json:"next_cursor"`
	HasNext    bool    `json:"has_next"`
}

type cursorToken struct {
	V any `json:"v"`
}

// EncodeCursor returns the opaque token for a key value.
func EncodeCursor(v any) (string, error) {
	b, err := json.Marshal(cursorToken{V: v})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor reverses EncodeCursor. Integral numbers decode as int64.
func DecodeCursor(token string) (any, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var t cursorToken
	if err := dec.Decode(&t); err != nil {
		return nil, err
	}
	if t.V == nil {
		return nil, fmt.Errorf("empty cursor")
	}
	if n, ok := t.V.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		return n.Float64()
	}
	return t.V, nil
}

func (s *Cursor) field() string {
	if s.Field == "" {
		return "id"
	}
	return s.Field
}

func (s *Cursor) FromQuery(c *gin.Context) (Page, error) {
	def, hi := sizes(s.DefaultSize, s.MaxSize)
	perr := &ParamError{}
	p := &cursorPage{
		field: s.field(),
		desc:  s.Descending,
		size:  intParam(c, "size", def, 1, hi, perr),
	}
	if token := c.Query("cursor"); token != "" {
		after, err := DecodeCursor(token)
		if err != nil {
			perr.add("cursor", "invalid cursor")
		} else {
			p.cursor, p.after = &token, after
		}
	}
	if err := perr.orNil(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Cursor) Describe() []QueryParam {
	def, hi := sizes(s.DefaultSize, s.MaxSize)
	return []QueryParam{
		{Name: "cursor", Type: "string", Description: "Opaque cursor returned as next_cursor by the previous page"},
		{Name: "size", Type: "integer", Description: "Page size", Default: def, Minimum: ptr(1), Maximum: ptr(hi)},
	}
}

func (s *Cursor) MetaPrototype() any { return CursorMeta{} }

func (s *Cursor) OwnsOrdering() {}

type cursorPage struct {
	field   string
	desc    bool
	size    int
	cursor  *string
	after   any
	next    *string
	hasNext bool
}

func (p *cursorPage) Enabled() bool { return true }
func (p *cursorPage) OwnsOrdering() {}

func (p *cursorPage) Paginate(q *gorm.DB) *gorm.DB {
	col := clause.Column{Table: clause.CurrentTable, Name: p.field}
	if p.after != nil {
		if p.desc {
			q = q.Where(clause.Lt{Column: col, Value: p.after})
		} else {
			q = q.Where(clause.Gt{Column: col, Value: p.after})
		}
	}
	return q.Order(clause.OrderByColumn{Column: col, Desc: p.desc}).Limit(p.size + 1)
}

// FillMeta trims the extra look-ahead row from results, which must be a pointer to a slice.
func (p *cursorPage) FillMeta(ctx context.Context, q *gorm.DB, results any) error {
	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("cursor pagination: results must be a pointer to a slice, got %T", results)
	}
	items := rv.Elem()
	if items.Len() <= p.size {
		return nil
	}
	p.hasNext = true
	items.Set(items.Slice(0, p.size))

	stmt := &gorm.Statement{DB: q}
	if err := stmt.Parse(reflect.New(items.Type().Elem()).Interface()); err != nil {
		return fmt.Errorf("cursor pagination: %w", err)
	}
	f := stmt.Schema.LookUpField(p.field)
	if f == nil {
		return fmt.Errorf("cursor pagination: unknown field %q", p.field)
	}
	v, _ := f.ValueOf(ctx, reflect.Indirect(items.Index(p.size-1)))
	token, err := EncodeCursor(v)
	if err != nil {
		return fmt.Errorf("cursor pagination: %w", err)
	}
	p.next = &token
	return nil
}

func (p *cursorPage) Meta() any {
	return CursorMeta{Size: p.size, Cursor: p.cursor, NextCursor: p.next, HasNext: p.hasNext}
}
