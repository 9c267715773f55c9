package viewset

import (
	"net/http"
	"strings"

	"github.com/erp/mason/pkg/permission"
	"github.com/gin-gonic/gin"
)

// Action is a custom endpoint attached to a viewset, either on the collection
// ({prefix}/{path}) or on a single object ({prefix}/:item_id/{path}).
type Action struct {
	Name       string
	Methods    []string // GET when empty
	Detail     bool
	Path       string // Name with underscores turned into dashes when empty
	StatusCode int    // 200 when zero
	Summary    string

	RequestSchema  any
	ResponseSchema any

	// Permissions override the viewset permissions when non-nil.
	Permissions []permission.Permission

	// Handler returns the response body. A nil body with a 204 status writes no body.
	Handler func(c *gin.Context) (any, error)
}

func (a Action) methods() []string {
	if len(a.Methods) == 0 {
		return []string{http.MethodGet}
	}
	return a.Methods
}

func (a Action) path() string {
	if a.Path != "" {
		return strings.Trim(a.Path, "/")
	}
	return strings.ReplaceAll(a.Name, "_", "-")
}

func (a Action) status() int {
	if a.StatusCode == 0 {
		return http.StatusOK
	}
	return a.StatusCode
}

// Action adds a custom action and returns the viewset for chaining.
func (v *GenericViewSet[M]) Action(a Action) *GenericViewSet[M] {
	v.actions = append(v.actions, a)
	if a.Permissions != nil {
		if v.cfg.ActionPermissions == nil {
			v.cfg.ActionPermissions = make(map[string][]permission.Permission)
		}
		v.cfg.ActionPermissions[a.Name] = a.Permissions
	}
	return v
}

func (v *GenericViewSet[M]) actionHandler(a Action) gin.HandlerFunc {
	perms := v.permissionsFor(a.Name)
	status := a.status()
	return func(c *gin.Context) {
		span, err := v.begin(c, a.Name, perms)
		defer span.End()
		if err != nil {
			v.fail(c, span, err)
			return
		}

		body, err := a.Handler(c)
		if err != nil {
			v.fail(c, span, err)
			return
		}
		if body == nil && status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, body)
	}
}
