package viewset

import (
	"net/http"
	"path"
	"reflect"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
)

// RouteInfo describes a registered route for documentation.
type RouteInfo struct {
	Method  string
	Path    string // gin syntax, e.g. /api/v1/projects/:item_id
	Name    string // <viewset>-<action>
	ViewSet string
	Action  string
	Tags    []string
	Summary string
	Status  int

	Detail  bool
	IDParam any // zero value of the lookup field type, for detail routes

	RequestSchema  any
	ResponseSchema any
	List           bool // the response is a list of ResponseSchema

	Pagination     pagination.Strategy // set for paginated list routes
	OrderingFields []string
	SingleWrapper  wrapper.SingleWrapper
	ListWrapper    wrapper.ListWrapper
}

// Registrar is anything that can mount its routes on a gin group.
type Registrar interface {
	RegisterRoutes(rg gin.IRouter) []RouteInfo
}

// Register mounts every viewset on rg and returns the routes they added.
func Register(rg gin.IRouter, viewsets ...Registrar) []RouteInfo {
	var routes []RouteInfo
	for _, vs := range viewsets {
		routes = append(routes, vs.RegisterRoutes(rg)...)
	}
	return routes
}

// Routes returns the routes added by the last RegisterRoutes call.
func (v *GenericViewSet[M]) Routes() []RouteInfo {
	return v.routes
}

// RegisterRoutes mounts the viewset on rg. Custom actions are added before the
// detail routes so that {prefix}/stats is not captured by {prefix}/:item_id.
func (v *GenericViewSet[M]) RegisterRoutes(rg gin.IRouter) []RouteInfo {
	base := ""
	if g, ok := rg.(*gin.RouterGroup); ok {
		base = g.BasePath()
	}
	v.routes = nil

	add := func(info RouteInfo, h gin.HandlerFunc) {
		rel := info.Path
		info.Path = path.Join("/", base, rel)
		info.ViewSet = v.cfg.Name
		info.Name = v.cfg.Name + "-" + info.Action
		info.Tags = v.cfg.Tags
		if info.Detail {
			info.IDParam = v.idParam()
		}
		rg.Handle(info.Method, rel, h)
		v.routes = append(v.routes, info)
	}

	readSchema := v.cfg.ReadSchema
	if readSchema == nil {
		readSchema = new(M)
	}
	manySchema := v.cfg.ManyReadSchema
	if manySchema == nil {
		manySchema = readSchema
	}
	writeSchema := func(proto any) any {
		if proto == nil {
			return new(M)
		}
		return proto
	}

	collection := v.routePath("")
	detail := v.routePath(":" + ItemParam)

	if v.Has(List) {
		info := RouteInfo{
			Method: http.MethodGet, Path: collection, Action: ActionList, Status: http.StatusOK,
			Summary: "List " + v.cfg.Name, ResponseSchema: manySchema, List: true, ListWrapper: v.cfg.ListWrapper,
		}
		if _, disabled := v.cfg.Pagination.(pagination.Disabled); !disabled {
			info.Pagination = v.cfg.Pagination
		}
		if _, owns := v.cfg.Pagination.(pagination.Ordered); !owns {
			info.OrderingFields = v.cfg.OrderingFields
		}
		add(info, v.list)
	}
	if v.Has(Create) {
		add(RouteInfo{
			Method: http.MethodPost, Path: collection, Action: ActionCreate, Status: http.StatusCreated,
			Summary: "Create " + v.cfg.Name, RequestSchema: writeSchema(v.cfg.CreateSchema),
			ResponseSchema: readSchema, SingleWrapper: v.cfg.SingleWrapper,
		}, v.create)
	}

	for _, a := range v.actions {
		rel := v.routePath(a.path())
		if a.Detail {
			rel = v.routePath(":" + ItemParam + "/" + a.path())
		}
		for _, m := range a.methods() {
			add(RouteInfo{
				Method: m, Path: rel, Action: a.Name, Status: a.status(), Summary: a.Summary, Detail: a.Detail,
				RequestSchema: a.RequestSchema, ResponseSchema: a.ResponseSchema,
			}, v.actionHandler(a))
		}
	}

	if v.Has(Retrieve) {
		add(RouteInfo{
			Method: http.MethodGet, Path: detail, Action: ActionRetrieve, Status: http.StatusOK, Detail: true,
			Summary: "Retrieve " + v.cfg.Name, ResponseSchema: readSchema, SingleWrapper: v.cfg.SingleWrapper,
		}, v.retrieve)
	}
	if v.Has(Update) {
		for _, m := range []string{http.MethodPut, http.MethodPatch} {
			add(RouteInfo{
				Method: m, Path: detail, Action: ActionUpdate, Status: http.StatusOK, Detail: true,
				Summary: "Update " + v.cfg.Name, RequestSchema: writeSchema(v.cfg.UpdateSchema),
				ResponseSchema: readSchema, SingleWrapper: v.cfg.SingleWrapper,
			}, v.update)
		}
	}
	if v.Has(Destroy) {
		add(RouteInfo{
			Method: http.MethodDelete, Path: detail, Action: ActionDestroy, Status: http.StatusNoContent, Detail: true,
			Summary: "Delete " + v.cfg.Name,
		}, v.destroy)
	}
	return v.routes
}

func (v *GenericViewSet[M]) idParam() any {
	if v.idType == nil {
		return ""
	}
	return reflect.Zero(v.idType).Interface()
}
