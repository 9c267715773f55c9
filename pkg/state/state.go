// Package state carries request-scoped data (current user, viewset action,
// arbitrary values) through a gin request and its context.Context.
package state

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// GinKey is the gin context key the State is stored under.
const GinKey = "mason_state"

type ctxKey struct{}

// State is created once per request. All methods are safe for concurrent use.
type State struct {
	Request *http.Request

	mu      sync.RWMutex
	action  string
	viewSet string
	user    any
	values  map[string]any
}

// New returns an empty State bound to r.
func New(r *http.Request) *State {
	return &State{Request: r, values: make(map[string]any)}
}

// Middleware installs a fresh State into the gin context and the request context.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		attach(c, New(c.Request))
		c.Next()
	}
}

func attach(c *gin.Context, st *State) {
	c.Set(GinKey, st)
	c.Request = c.Request.WithContext(WithState(c.Request.Context(), st))
	st.Request = c.Request
}

// FromGin returns the request State, creating and attaching one if the middleware is absent.
func FromGin(c *gin.Context) *State {
	if v, ok := c.Get(GinKey); ok {
		if st, ok := v.(*State); ok {
			return st
		}
	}
	if st := FromContext(c.Request.Context()); st != nil {
		c.Set(GinKey, st)
		return st
	}
	st := New(c.Request)
	attach(c, st)
	return st
}

// WithState returns a copy of ctx carrying st.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the State stored in ctx, or nil.
func FromContext(ctx context.Context) *State {
	if ctx == nil {
		return nil
	}
	st, _ := ctx.Value(ctxKey{}).(*State)
	return st
}

// SetUser records the authenticated principal.
func (s *State) SetUser(user any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// User returns the authenticated principal or nil.
func (s *State) User() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *State) IsAuthenticated() bool {
	return s.User() != nil
}

// SetAction records the viewset and action handling the request.
func (s *State) SetAction(viewSet, action string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewSet = viewSet
	s.action = action
}

func (s *State) Action() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.action
}

func (s *State) ViewSet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewSet
}

func (s *State) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *State) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value stored under key as T.
func Value[T any](s *State, key string) (T, bool) {
	var zero T
	v, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// UserAs returns the current user as T.
func UserAs[T any](s *State) (T, bool) {
	t, ok := s.User().(T)
	return t, ok
}
