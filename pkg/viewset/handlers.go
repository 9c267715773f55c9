package viewset

import (
	"errors"
	"net/http"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/schema"
	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Validatable models are checked before they are created or updated.
type Validatable interface {
	Validate() error
}

func (v *GenericViewSet[M]) list(c *gin.Context) {
	span, err := v.begin(c, ActionList, v.permissionsFor(ActionList))
	defer span.End()
	if err != nil {
		v.fail(c, span, err)
		return
	}

	body, err := v.listResponse(c)
	if err != nil {
		v.fail(c, span, err)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (v *GenericViewSet[M]) listResponse(c *gin.Context) (any, error) {
	page, err := v.cfg.Pagination.FromQuery(c)
	if err != nil {
		return nil, err
	}

	base := v.GetQueryset(c).Session(&gorm.Session{})
	q := base
	if _, owns := page.(pagination.Ordered); !owns {
		q = v.applyOrdering(c, q)
	}

	var items []M
	if err := page.Paginate(q).Find(&items).Error; err != nil {
		return nil, err
	}
	if err := page.FillMeta(c.Request.Context(), base, &items); err != nil {
		return nil, err
	}

	data, err := v.serializeMany(items)
	if err != nil {
		return nil, err
	}
	if v.cfg.ListWrapper != nil {
		return v.cfg.ListWrapper.WrapList(data, page), nil
	}
	return data, nil
}

// GetPaginatedResponse runs the list pipeline for the current request and returns the response body.
func (v *GenericViewSet[M]) GetPaginatedResponse(c *gin.Context) (any, error) {
	return v.listResponse(c)
}

func (v *GenericViewSet[M]) retrieve(c *gin.Context) {
	perms := v.permissionsFor(ActionRetrieve)
	span, err := v.begin(c, ActionRetrieve, perms)
	defer span.End()
	if err != nil {
		v.fail(c, span, err)
		return
	}

	obj, err := v.getObject(c, perms)
	if err != nil {
		v.fail(c, span, err)
		return
	}
	v.respondSingle(c, span, http.StatusOK, obj)
}

func (v *GenericViewSet[M]) create(c *gin.Context) {
	span, err := v.begin(c, ActionCreate, v.permissionsFor(ActionCreate))
	defer span.End()
	if err != nil {
		v.fail(c, span, err)
		return
	}

	obj := new(M)
	if err := v.bindInto(c, obj, v.cfg.CreateSchema); err != nil {
		v.fail(c, span, err)
		return
	}
	if err := validateModel(obj); err != nil {
		v.fail(c, span, err)
		return
	}
	if err := v.performCreate(c, obj); err != nil {
		v.fail(c, span, err)
		return
	}
	v.respondSingle(c, span, http.StatusCreated, obj)
}

func (v *GenericViewSet[M]) update(c *gin.Context) {
	perms := v.permissionsFor(ActionUpdate)
	span, err := v.begin(c, ActionUpdate, perms)
	defer span.End()
	if err != nil {
		v.fail(c, span, err)
		return
	}

	obj, err := v.getObject(c, perms)
	if err != nil {
		v.fail(c, span, err)
		return
	}
	if err := v.bindInto(c, obj, v.cfg.UpdateSchema); err != nil {
		v.fail(c, span, err)
		return
	}
	if err := validateModel(obj); err != nil {
		v.fail(c, span, err)
		return
	}
	if err := v.performUpdate(c, obj); err != nil {
		v.fail(c, span, err)
		return
	}
	v.respondSingle(c, span, http.StatusOK, obj)
}

func (v *GenericViewSet[M]) destroy(c *gin.Context) {
	perms := v.permissionsFor(ActionDestroy)
	span, err := v.begin(c, ActionDestroy, perms)
	defer span.End()
	if err != nil {
		v.fail(c, span, err)
		return
	}

	obj, err := v.getObject(c, perms)
	if err != nil {
		v.fail(c, span, err)
		return
	}
	if err := v.performDestroy(c, obj); err != nil {
		v.fail(c, span, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (v *GenericViewSet[M]) respondSingle(c *gin.Context, span trace.Span, status int, obj *M) {
	data, err := schema.Serialize(v.cfg.ReadSchema, obj)
	if err != nil {
		v.fail(c, span, err)
		return
	}
	if v.cfg.SingleWrapper != nil {
		c.JSON(status, v.cfg.SingleWrapper.WrapSingle(data))
		return
	}
	c.JSON(status, data)
}

// GetObject loads the object addressed by the item_id path parameter and
// checks object permissions for the current action.
func (v *GenericViewSet[M]) GetObject(c *gin.Context) (*M, error) {
	return v.getObject(c, v.permissionsFor(state.FromGin(c).Action()))
}

func (v *GenericViewSet[M]) getObject(c *gin.Context, perms []permission.Permission) (*M, error) {
	raw := c.Param(ItemParam)
	id, err := v.cfg.ParseID(raw)
	if err != nil {
		return nil, &Error{
			Status:  http.StatusBadRequest,
			Code:    CodeBadRequest,
			Message: "Invalid id",
			Details: []FieldError{{Field: ItemParam, Message: "Invalid value " + strconv.Quote(raw)}},
			Err:     err,
		}
	}

	obj := new(M)
	col := clause.Column{Table: clause.CurrentTable, Name: v.cfg.LookupField}
	err = v.GetQueryset(c).Where(clause.Eq{Column: col, Value: id}).First(obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: "Not found", Err: err}
	}
	if err != nil {
		return nil, err
	}

	if err := permission.CheckObject(c, state.FromGin(c), perms, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// bindInto decodes and validates the request body with proto (or the model
// when proto is nil) and copies the fields present in the body onto obj.
func (v *GenericViewSet[M]) bindInto(c *gin.Context, obj *M, proto any) error {
	body, err := c.GetRawData()
	if err != nil {
		return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Message: "Failed to read request body", Err: err}
	}
	keys, err := schema.JSONKeys(body)
	if err != nil {
		return invalidJSON(err)
	}

	var target any
	if proto != nil {
		if target, err = schema.New(proto); err != nil {
			return err
		}
	} else {
		// Binding straight into the model would reset unset fields; bind a copy.
		target = new(M)
		delete(keys, v.cfg.LookupField)
	}

	if err := binding.JSON.BindBody(body, target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return err
		}
		return invalidJSON(err)
	}

	_, err = schema.Assign(obj, target, keys)
	var fe *schema.FieldError
	if errors.As(err, &fe) && errors.Is(err, schema.ErrNull) {
		return &Error{
			Status:  http.StatusBadRequest,
			Code:    CodeValidation,
			Message: "Request validation failed",
			Details: []FieldError{{Field: fe.Field, Message: "This field may not be null"}},
			Err:     err,
		}
	}
	return err
}

func invalidJSON(err error) error {
	e := AsError(err)
	if e.Code == CodeInvalidJSON {
		return e
	}
	return &Error{Status: http.StatusBadRequest, Code: CodeInvalidJSON, Message: "Request body is not valid JSON", Err: err}
}

func validateModel(obj any) error {
	if val, ok := obj.(Validatable); ok {
		return val.Validate()
	}
	return nil
}

func (v *GenericViewSet[M]) performCreate(c *gin.Context, obj *M) error {
	if v.cfg.PerformCreate != nil {
		return v.cfg.PerformCreate(c, obj)
	}
	return v.cfg.DB.WithContext(c.Request.Context()).Create(obj).Error
}

func (v *GenericViewSet[M]) performUpdate(c *gin.Context, obj *M) error {
	if v.cfg.PerformUpdate != nil {
		return v.cfg.PerformUpdate(c, obj)
	}
	return v.cfg.DB.WithContext(c.Request.Context()).Save(obj).Error
}

func (v *GenericViewSet[M]) performDestroy(c *gin.Context, obj *M) error {
	if v.cfg.PerformDestroy != nil {
		return v.cfg.PerformDestroy(c, obj)
	}
	return v.cfg.DB.WithContext(c.Request.Context()).Delete(obj).Error
}

func (v *GenericViewSet[M]) serializeMany(items []M) ([]any, error) {
	out := make([]any, 0, len(items))
	for i := range items {
		data, err := schema.Serialize(v.cfg.ManyReadSchema, &items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

type orderTerm struct {
	field string
	desc  bool
}

func parseOrdering(raw string) []orderTerm {
	var terms []orderTerm
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, desc := strings.CutPrefix(part, "-")
		terms = append(terms, orderTerm{field: field, desc: desc})
	}
	return terms
}

// applyOrdering orders by the allowed fields of ?ordering=, or by
// DefaultOrdering when none are allowed. The lookup field is appended as a
// final tie-breaker so offset pages are stable.
func (v *GenericViewSet[M]) applyOrdering(c *gin.Context, q *gorm.DB) *gorm.DB {
	terms := slices.DeleteFunc(parseOrdering(c.Query("ordering")), func(t orderTerm) bool {
		return !slices.Contains(v.cfg.OrderingFields, t.field)
	})
	if len(terms) == 0 {
		terms = parseOrdering(v.cfg.DefaultOrdering)
	}
	if !slices.ContainsFunc(terms, func(t orderTerm) bool { return t.field == v.cfg.LookupField }) {
		terms = append(terms, orderTerm{field: v.cfg.LookupField})
	}
	for _, t := range terms {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Table: clause.CurrentTable, Name: t.field}, Desc: t.desc})
	}
	return q
}

// parserFor returns an id parser for the lookup field's type. Unknown types
// accept integers first, then UUIDs.
func parserFor(t reflect.Type) func(string) (any, error) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == nil:
		return func(raw string) (any, error) {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n, nil
			}
			return uuid.Parse(raw)
		}
	case t == reflect.TypeFor[uuid.UUID]():
		return func(raw string) (any, error) { return uuid.Parse(raw) }
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(raw string) (any, error) { return strconv.ParseInt(raw, 10, 64) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(raw string) (any, error) { return strconv.ParseUint(raw, 10, 64) }
	case reflect.String:
		return func(raw string) (any, error) {
			if raw == "" {
				return nil, errors.New("empty id")
			}
			return raw, nil
		}
	}
	return parserFor(nil)
}
