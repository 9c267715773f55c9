// Package permission provides request and object level access checks for viewsets.
package permission

import (
	"errors"
	"net/http"

	"github.com/erp/mason/pkg/state"
	"github.com/gin-gonic/gin"
)

var (
	// ErrNotAuthenticated means the check failed and no user is attached to the request.
	ErrNotAuthenticated = errors.New("authentication credentials were not provided")
	// ErrPermissionDenied means an authenticated user failed the check.
	ErrPermissionDenied = errors.New("you do not have permission to perform this action")
)

// Permission decides whether the current request may proceed.
type Permission interface {
	HasPermission(c *gin.Context, st *state.State) bool
	HasObjectPermission(c *gin.Context, st *state.State, obj any) bool
}

// Principal is a user that carries named permissions, such as JWT claims.
type Principal interface {
	HasPermission(permission string) bool
}

// Base allows everything; embed it and override one of the methods.
type Base struct{}

func (Base) HasPermission(*gin.Context, *state.State) bool            { return true }
func (Base) HasObjectPermission(*gin.Context, *state.State, any) bool { return true }

// AllowAny grants every request.
type AllowAny struct{ Base }

// DenyAll rejects every request.
type DenyAll struct{}

func (DenyAll) HasPermission(*gin.Context, *state.State) bool            { return false }
func (DenyAll) HasObjectPermission(*gin.Context, *state.State, any) bool { return false }

// IsAuthenticated requires a user in the request state.
type IsAuthenticated struct{ Base }

func (IsAuthenticated) HasPermission(_ *gin.Context, st *state.State) bool {
	return st.IsAuthenticated()
}

// IsAuthenticatedOrReadOnly lets anonymous users through for safe methods only.
type IsAuthenticatedOrReadOnly struct{ Base }

func (IsAuthenticatedOrReadOnly) HasPermission(c *gin.Context, st *state.State) bool {
	return IsSafeMethod(c.Request.Method) || st.IsAuthenticated()
}

// HasPermissions requires the user to hold every permission in All and at least one in Any.
type HasPermissions struct {
	Base
	All []string
	Any []string
}

func (p HasPermissions) HasPermission(_ *gin.Context, st *state.State) bool {
	user, ok := state.UserAs[Principal](st)
	if !ok {
		return false
	}
	for _, perm := range p.All {
		if !user.HasPermission(perm) {
			return false
		}
	}
	if len(p.Any) == 0 {
		return true
	}
	for _, perm := range p.Any {
		if user.HasPermission(perm) {
			return true
		}
	}
	return false
}

// ResourcePermission requires "<Resource>:<action>" where the action follows MethodAction.
type ResourcePermission struct {
	Base
	Resource string
}

func (p ResourcePermission) HasPermission(c *gin.Context, st *state.State) bool {
	user, ok := state.UserAs[Principal](st)
	if !ok {
		return false
	}
	return user.HasPermission(p.Resource + ":" + MethodAction(c.Request.Method))
}

// MethodAction maps an HTTP method to a permission action.
func MethodAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// IsSafeMethod reports whether method does not modify state.
func IsSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// Check runs every permission and returns the error for the first one that fails.
func Check(c *gin.Context, st *state.State, perms []Permission) error {
	for _, p := range perms {
		if !p.HasPermission(c, st) {
			return denied(st)
		}
	}
	return nil
}

// CheckObject is Check for object level permissions.
func CheckObject(c *gin.Context, st *state.State, perms []Permission, obj any) error {
	for _, p := range perms {
		if !p.HasObjectPermission(c, st, obj) {
			return denied(st)
		}
	}
	return nil
}

func denied(st *state.State) error {
	if !st.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return ErrPermissionDenied
}
