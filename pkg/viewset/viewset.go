// Package viewset generates CRUD endpoints for a gorm model on a gin router.
//
// A viewset is configured once with a Config and a set of mixins, then
// registered on a router group:
//
//	projects := viewset.NewModelViewSet(viewset.Config[Project]{
//		Name:         "projects",
//		Prefix:       "/projects",
//		DB:           db,
//		CreateSchema: ProjectCreate{},
//		UpdateSchema: ProjectUpdate{},
//		Pagination:   pagination.NewLimitOffset(10, 100),
//	})
//	viewset.Register(api, projects)
package viewset

import (
	"fmt"
	"maps"
	"net/http"
	"reflect"
	"strings"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/state"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mixin selects which generated endpoints a viewset exposes.
type Mixin uint8

const (
	List Mixin = 1 << iota
	Retrieve
	Create
	Update
	Destroy
)

const (
	ModelMixins    = List | Retrieve | Create | Update | Destroy
	ReadOnlyMixins = List | Retrieve
)

// Action names of the generated endpoints.
const (
	ActionList     = "list"
	ActionRetrieve = "retrieve"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDestroy  = "destroy"
)

// ItemParam is the path parameter carrying the object id on detail routes.
const ItemParam = "item_id"

// LoggerKey is the gin context key holding a request scoped *zap.Logger, if any.
const LoggerKey = "logger"

const tracerName = "github.com/erp/mason/pkg/viewset"

var (
	attrViewSet = attribute.Key("mason.viewset")
	attrAction  = attribute.Key("mason.action")
	attrStatus  = attribute.Key("http.response.status_code")
)

// Config holds everything a viewset needs. Only DB, Name and Prefix are required.
type Config[M any] struct {
	Name   string
	Prefix string
	Tags   []string

	DB *gorm.DB

	// Schema prototypes. A nil read schema serializes the model itself; nil
	// create/update schemas bind the request body straight into the model.
	ReadSchema     any
	ManyReadSchema any
	CreateSchema   any
	UpdateSchema   any

	Pagination        pagination.Strategy
	Permissions       []permission.Permission
	ActionPermissions map[string][]permission.Permission

	ListWrapper   wrapper.ListWrapper
	SingleWrapper wrapper.SingleWrapper

	LookupField string
	ParseID     func(raw string) (any, error)

	OrderingFields  []string
	DefaultOrdering string

	GetQueryset    func(c *gin.Context, db *gorm.DB) *gorm.DB
	PerformCreate  func(c *gin.Context, obj *M) error
	PerformUpdate  func(c *gin.Context, obj *M) error
	PerformDestroy func(c *gin.Context, obj *M) error

	MapError    ErrorMapper
	RenderError ErrorRenderer

	Logger *zap.Logger
}

// GenericViewSet serves one model. Build it with New, NewModelViewSet or NewReadOnlyViewSet.
type GenericViewSet[M any] struct {
	cfg     Config[M]
	mixins  Mixin
	actions []Action
	routes  []RouteInfo
	idType  reflect.Type
	tracer  trace.Tracer
}

// New builds a viewset exposing the given mixins.
func New[M any](cfg Config[M], mixins ...Mixin) *GenericViewSet[M] {
	var set Mixin
	for _, m := range mixins {
		set |= m
	}

	if cfg.Pagination == nil {
		cfg.Pagination = pagination.Disabled{}
	}
	if cfg.Permissions == nil {
		cfg.Permissions = []permission.Permission{permission.AllowAny{}}
	}
	cfg.ActionPermissions = maps.Clone(cfg.ActionPermissions)
	if cfg.LookupField == "" {
		cfg.LookupField = "id"
	}
	if cfg.DefaultOrdering == "" {
		cfg.DefaultOrdering = cfg.LookupField
	}
	if cfg.ManyReadSchema == nil {
		cfg.ManyReadSchema = cfg.ReadSchema
	}
	if len(cfg.Tags) == 0 && cfg.Name != "" {
		cfg.Tags = []string{cfg.Name}
	}
	if cfg.RenderError == nil {
		cfg.RenderError = DefaultRenderer
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	v := &GenericViewSet[M]{
		cfg:    cfg,
		mixins: set,
		tracer: otel.Tracer(tracerName),
	}
	v.idType = v.lookupType()
	if v.cfg.ParseID == nil {
		v.cfg.ParseID = parserFor(v.idType)
	}
	return v
}

// NewModelViewSet exposes list, retrieve, create, update and destroy.
func NewModelViewSet[M any](cfg Config[M]) *GenericViewSet[M] {
	return New(cfg, ModelMixins)
}

// NewReadOnlyViewSet exposes list and retrieve.
func NewReadOnlyViewSet[M any](cfg Config[M]) *GenericViewSet[M] {
	return New(cfg, ReadOnlyMixins)
}

// Name returns the configured viewset name.
func (v *GenericViewSet[M]) Name() string { return v.cfg.Name }

// Has reports whether m is enabled.
func (v *GenericViewSet[M]) Has(m Mixin) bool { return v.mixins&m == m }

// lookupType resolves the Go type of the lookup column from the gorm schema.
func (v *GenericViewSet[M]) lookupType() reflect.Type {
	if v.cfg.DB == nil {
		return nil
	}
	stmt := &gorm.Statement{DB: v.cfg.DB}
	if err := stmt.Parse(new(M)); err != nil {
		v.cfg.Logger.Warn("Failed to parse model schema", zap.String("viewset", v.cfg.Name), zap.Error(err))
		return nil
	}
	if f := stmt.Schema.LookUpField(v.cfg.LookupField); f != nil {
		return f.FieldType
	}
	return nil
}

// permissionsFor resolves the permission list for an action.
func (v *GenericViewSet[M]) permissionsFor(action string) []permission.Permission {
	if perms, ok := v.cfg.ActionPermissions[action]; ok {
		return perms
	}
	return v.cfg.Permissions
}

// logger returns the request logger when one is installed, else the configured logger.
func (v *GenericViewSet[M]) logger(c *gin.Context) *zap.Logger {
	l := v.cfg.Logger
	if val, ok := c.Get(LoggerKey); ok {
		if reqLogger, ok := val.(*zap.Logger); ok {
			l = reqLogger
		}
	}
	return l.With(zap.String("viewset", v.cfg.Name), zap.String("action", state.FromGin(c).Action()))
}

// begin records the action in request state, starts its span and checks viewset permissions.
func (v *GenericViewSet[M]) begin(c *gin.Context, action string, perms []permission.Permission) (trace.Span, error) {
	st := state.FromGin(c)
	st.SetAction(v.cfg.Name, action)

	ctx, span := v.tracer.Start(c.Request.Context(), v.cfg.Name+"."+action,
		trace.WithAttributes(attrViewSet.String(v.cfg.Name), attrAction.String(action)))
	c.Request = c.Request.WithContext(ctx)
	st.Request = c.Request

	if err := permission.Check(c, st, perms); err != nil {
		return span, err
	}
	return span, nil
}

// fail logs err, records it on span and renders the error response.
func (v *GenericViewSet[M]) fail(c *gin.Context, span trace.Span, err error) {
	e := v.classify(err)
	log := v.logger(c)
	switch {
	case e.Status >= http.StatusInternalServerError:
		span.RecordError(err)
		span.SetStatus(codes.Error, e.Message)
		log.Error("Request failed", zap.Error(err))
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		log.Warn("Permission denied", zap.Int("status", e.Status), zap.String("method", c.Request.Method))
	default:
		log.Debug("Request rejected", zap.Int("status", e.Status), zap.String("code", e.Code), zap.Error(err))
	}
	span.SetAttributes(attrStatus.Int(e.Status))
	v.cfg.RenderError(c, e)
}

func (v *GenericViewSet[M]) classify(err error) *Error {
	if v.cfg.MapError != nil {
		if e := v.cfg.MapError(err); e != nil {
			return e
		}
	}
	return AsError(err)
}

// GetQueryset returns the base query for this request.
func (v *GenericViewSet[M]) GetQueryset(c *gin.Context) *gorm.DB {
	db := v.cfg.DB.WithContext(c.Request.Context()).Model(new(M))
	if v.cfg.GetQueryset != nil {
		return v.cfg.GetQueryset(c, db)
	}
	return db
}

// routePath joins the prefix and a suffix, e.g. "/projects" + "/:item_id".
func (v *GenericViewSet[M]) routePath(suffix string) string {
	p := "/" + strings.Trim(v.cfg.Prefix, "/")
	if suffix != "" {
		p = strings.TrimSuffix(p, "/") + "/" + strings.TrimPrefix(suffix, "/")
	}
	return p
}

func (v *GenericViewSet[M]) String() string {
	return fmt.Sprintf("viewset(%s %s)", v.cfg.Name, v.routePath(""))
}
