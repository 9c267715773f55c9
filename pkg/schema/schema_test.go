package schema

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type base struct {
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type item struct {
	base
	OwnerID uuid.UUID       `json:"owner_id"`
	Name    string          `json:"name"`
	Price   decimal.Decimal `json:"price"`
	Count   int32           `json:"count"`
	Tags    []string        `json:"tags"`
	secret  string
}

type itemRead struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Count     int64           `json:"count"`
	CreatedAt time.Time       `json:"created_at"`
}

type itemPatch struct {
	Name  *string          `json:"name" binding:"omitempty,min=1,max=50"`
	Price *decimal.Decimal `json:"price"`
	Count *int             `json:"count"`
	Note  string           `json:"note"`
}

type itemCreate struct {
	OwnerID uuid.UUID `json:"owner_id" binding:"required,uuid"`
	Name    string    `json:"name" binding:"required,min=2,max=50" doc:"Display name"`
	Count   int       `json:"count" binding:"gte=0,lte=10"`
	Kind    string    `json:"kind" binding:"oneof=small large"`
	Email   string    `json:"email" binding:"omitempty,email"`
	Ignored string    `json:"-"`
	Parent  *itemCreate
}

func TestNew(t *testing.T) {
	v, err := New(itemRead{})
	require.NoError(t, err)
	assert.IsType(t, &itemRead{}, v)

	v, err = New(&itemRead{Name: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, &itemRead{}, v)

	_, err = New(42)
	assert.ErrorIs(t, err, ErrNotStruct)
	_, err = New(nil)
	assert.ErrorIs(t, err, ErrNotStruct)
}

func TestSerialize(t *testing.T) {
	now := time.Now()
	model := &item{
		base:  base{ID: 7, CreatedAt: now},
		Name:  "widget",
		Price: decimal.RequireFromString("12.50"),
		Count: 3,
	}

	out, err := Serialize(itemRead{}, model)
	require.NoError(t, err)
	assert.Equal(t, &itemRead{
		ID:        7,
		Name:      "widget",
		Price:     decimal.RequireFromString("12.50"),
		Count:     3,
		CreatedAt: now,
	}, out)

	same, err := Serialize(nil, model)
	require.NoError(t, err)
	assert.Same(t, model, same)
}

func TestAssign_OnlySetKeys(t *testing.T) {
	model := &item{Name: "old", Count: 5, Price: decimal.NewFromInt(1)}
	name := "new"
	patch := itemPatch{Name: &name, Count: nil, Note: "not on model"}

	written, err := Assign(model, patch, map[string]bool{"name": true, "note": true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Name"}, written)
	assert.Equal(t, "new", model.Name)
	assert.Equal(t, int32(5), model.Count)
	assert.True(t, model.Price.Equal(decimal.NewFromInt(1)))
}

func TestAssign_NullForNonNullableField(t *testing.T) {
	model := &item{Name: "keep", Count: 5}

	written, err := Assign(model, &itemPatch{}, map[string]bool{"count": true})
	require.ErrorIs(t, err, ErrNull)
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "count", fe.Field)
	assert.Empty(t, written)
	assert.Equal(t, int32(5), model.Count)

	_, err = Assign(model, &itemPatch{}, map[string]bool{"name": true})
	require.ErrorIs(t, err, ErrNull)
	assert.Equal(t, "keep", model.Name)
}

func TestAssign_NullClearsNullableField(t *testing.T) {
	type patch struct {
		Label *string              `json:"label"`
		Tags  *[]string            `json:"tags"`
		Limit *decimal.NullDecimal `json:"limit"`
	}
	type target struct {
		Label *string
		Tags  []string
		Limit decimal.NullDecimal
	}
	label := "x"
	out := target{Label: &label, Tags: []string{"a"}, Limit: decimal.NewNullDecimal(decimal.NewFromInt(3))}

	written, err := Assign(&out, patch{}, map[string]bool{"label": true, "tags": true, "limit": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Label", "Tags", "Limit"}, written)
	assert.Nil(t, out.Label)
	assert.Nil(t, out.Tags)
	assert.False(t, out.Limit.Valid)
}

func TestAssign_NilSourceWithoutKeysZeroes(t *testing.T) {
	model := &item{Count: 5}

	_, err := Assign(model, &itemPatch{}, nil)
	require.NoError(t, err)
	assert.Zero(t, model.Count)
}

func TestAssign_AllFields(t *testing.T) {
	owner := uuid.New()
	model := &item{}

	_, err := Assign(model, &itemCreate{OwnerID: owner, Name: "n", Count: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, owner, model.OwnerID)
	assert.Equal(t, int32(2), model.Count)
}

func TestAssign_SliceAndPointerTargets(t *testing.T) {
	type src struct {
		Values []int32 `json:"values"`
		Label  string  `json:"label"`
	}
	type dst struct {
		Values []int64
		Label  *string
	}

	var out dst
	_, err := Assign(&out, src{Values: []int32{1, 2}, Label: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, out.Values)
	require.NotNil(t, out.Label)
	assert.Equal(t, "x", *out.Label)
}

func TestAssign_Errors(t *testing.T) {
	_, err := Assign(item{}, item{}, nil)
	assert.ErrorIs(t, err, ErrNotStruct)

	_, err = Assign(&item{}, "text", nil)
	assert.ErrorIs(t, err, ErrNotStruct)

	type badSrc struct {
		Name int `json:"name"`
	}
	_, err = Assign(&item{}, badSrc{Name: 65}, nil)
	assert.ErrorContains(t, err, "field name")
}

func TestJSONKeys(t *testing.T) {
	keys, err := JSONKeys([]byte(`{"name":"x","count":null}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"name": true, "count": true}, keys)

	_, err = JSONKeys([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestName(t *testing.T) {
	assert.Equal(t, "itemRead", Name(itemRead{}))
	assert.Equal(t, "itemRead", Name([]*itemRead{}))
	assert.Equal(t, "", Name(nil))
}

func TestDescribe_ReadSchema(t *testing.T) {
	s := Describe(&item{})

	assert.Equal(t, "object", s.Type)
	assert.Equal(t, &Schema{Type: "integer", Format: "int64"}, s.Properties["id"])
	assert.Equal(t, "date-time", s.Properties["created_at"].Format)
	assert.Equal(t, "uuid", s.Properties["owner_id"].Format)
	assert.Equal(t, "decimal", s.Properties["price"].Format)
	assert.Equal(t, "array", s.Properties["tags"].Type)
	assert.Equal(t, "string", s.Properties["tags"].Items.Type)
	assert.NotContains(t, s.Properties, "secret")
	assert.Empty(t, s.Required)
}

func TestDescribe_BindingRules(t *testing.T) {
	s := Describe(itemCreate{})

	assert.ElementsMatch(t, []string{"owner_id", "name"}, s.Required)
	assert.NotContains(t, s.Properties, "Ignored")

	name := s.Properties["name"]
	require.NotNil(t, name.MinLength)
	assert.Equal(t, 2, *name.MinLength)
	assert.Equal(t, 50, *name.MaxLength)
	assert.Equal(t, "Display name", name.Description)

	count := s.Properties["count"]
	assert.Equal(t, 0.0, *count.Minimum)
	assert.Equal(t, 10.0, *count.Maximum)

	assert.Equal(t, []any{"small", "large"}, s.Properties["kind"].Enum)
	assert.Equal(t, "email", s.Properties["email"].Format)

	parent := s.Properties["Parent"]
	assert.True(t, parent.Nullable)
	assert.Equal(t, "object", parent.Type)
	assert.Nil(t, parent.Properties)
}

func TestDescribe_Nil(t *testing.T) {
	assert.Equal(t, &Schema{Type: "object"}, Describe(nil))
}
