package wrapper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePage struct{ meta any }

func (fakePage) Enabled() bool                                 { return true }
func (fakePage) Paginate(q *gorm.DB) *gorm.DB                  { return q }
func (fakePage) FillMeta(context.Context, *gorm.DB, any) error { return nil }
func (p fakePage) Meta() any                                   { return p.meta }

func disabledPage(t *testing.T) pagination.Page {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	page, err := pagination.Disabled{}.FromQuery(c)
	require.NoError(t, err)
	return page
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestWrappers(t *testing.T) {
	items := []int{1, 2}
	meta := map[string]int{"total": 2}
	page := fakePage{meta: meta}
	off := disabledPage(t)

	tests := []struct {
		name string
		body any
		want string
	}{
		{"data", Data{}.WrapSingle("x"), `{"data":"x"}`},
		{"list data", ListData{}.WrapList(items, page), `{"data":[1,2]}`},
		{"paginated", PaginatedData{}.WrapList(items, page), `{"data":[1,2],"meta":{"total":2}}`},
		{"paginated disabled", PaginatedData{}.WrapList(items, off), `{"data":[1,2]}`},
		{"paginated nil page", PaginatedData{}.WrapList([]int{}, nil), `{"data":[]}`},
		{"envelope single", Envelope{}.WrapSingle("x"), `{"success":true,"data":"x"}`},
		{"envelope list", Envelope{}.WrapList(items, page), `{"success":true,"data":[1,2],"meta":{"total":2}}`},
		{"envelope empty list", Envelope{}.WrapList([]int{}, off), `{"success":true,"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, encode(t, tt.body))
		})
	}
}

func TestWrapSchema(t *testing.T) {
	item := &schema.Schema{Type: "array", Items: &schema.Schema{Type: "integer"}}
	meta := &schema.Schema{Type: "object"}

	s := PaginatedData{}.WrapSchema(item, meta)
	assert.Equal(t, []string{"data", "meta"}, s.Required)
	assert.Same(t, meta, s.Properties["meta"])

	s = PaginatedData{}.WrapSchema(item, nil)
	assert.NotContains(t, s.Properties, "meta")

	s = Envelope{}.WrapSchema(item, nil)
	assert.Equal(t, "boolean", s.Properties["success"].Type)
	assert.Same(t, item, s.Properties["data"])
	assert.NotContains(t, s.Properties, "meta")

	assert.Same(t, item, Data{}.WrapSchema(item, nil).Properties["data"])
}
