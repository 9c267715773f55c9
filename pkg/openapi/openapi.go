// Package openapi builds an OpenAPI 3 document from registered viewset routes.
package openapi

import (
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/schema"
	"github.com/erp/mason/pkg/viewset"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
)

// Version is the OpenAPI version emitted.
const Version = "3.0.3"

type Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type Document struct {
	OpenAPI    string                           `json:"openapi"`
	Info       Info                             `json:"info"`
	Paths      map[string]map[string]*Operation `json:"paths"`
	Components Components                       `json:"components"`
	Tags       []Tag                            `json:"tags,omitempty"`
}

type Components struct {
	Schemas         map[string]*schema.Schema `json:"schemas"`
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes,omitempty"`
}

type SecurityScheme struct {
	Type         string `json:"type"`
	Scheme       string `json:"scheme,omitempty"`
	BearerFormat string `json:"bearerFormat,omitempty"`
}

type Tag struct {
	Name string `json:"name"`
}

type Operation struct {
	OperationID string                `json:"operationId"`
	Summary     string                `json:"summary,omitempty"`
	Tags        []string              `json:"tags,omitempty"`
	Parameters  []Parameter           `json:"parameters,omitempty"`
	RequestBody *RequestBody          `json:"requestBody,omitempty"`
	Responses   map[string]*Response  `json:"responses"`
	Security    []map[string][]string `json:"security,omitempty"`
}

type Parameter struct {
	Name        string         `json:"name"`
	In          string         `json:"in"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Schema      *schema.Schema `json:"schema"`
}

type RequestBody struct {
	Required bool                 `json:"required"`
	Content  map[string]MediaType `json:"content"`
}

type Response struct {
	Description string               `json:"description"`
	Content     map[string]MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Schema *schema.Schema `json:"schema"`
}

const (
	jsonType     = "application/json"
	errorSchema  = "ErrorResponse"
	bearerScheme = "bearerAuth"
)

// Build assembles the document for routes.
func Build(info Info, routes []viewset.RouteInfo) *Document {
	b := &builder{doc: &Document{
		OpenAPI: Version,
		Info:    info,
		Paths:   make(map[string]map[string]*Operation),
		Components: Components{
			Schemas: map[string]*schema.Schema{errorSchema: errorBody()},
			SecuritySchemes: map[string]SecurityScheme{
				bearerScheme: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
			},
		},
	}}

	tags := map[string]bool{}
	for _, rt := range routes {
		p := ginPathToOpenAPI(rt.Path)
		if b.doc.Paths[p] == nil {
			b.doc.Paths[p] = make(map[string]*Operation)
		}
		b.doc.Paths[p][strings.ToLower(rt.Method)] = b.operation(rt)
		for _, t := range rt.Tags {
			tags[t] = true
		}
	}

	for t := range tags {
		b.doc.Tags = append(b.doc.Tags, Tag{Name: t})
	}
	sort.Slice(b.doc.Tags, func(i, j int) bool { return b.doc.Tags[i].Name < b.doc.Tags[j].Name })
	return b.doc
}

// Handler serves doc as JSON.
func Handler(doc *Document) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	}
}

type builder struct {
	doc *Document
}

func (b *builder) operation(rt viewset.RouteInfo) *Operation {
	op := &Operation{
		OperationID: rt.Name + "-" + strings.ToLower(rt.Method),
		Summary:     rt.Summary,
		Tags:        rt.Tags,
		Responses:   make(map[string]*Response),
		Security:    []map[string][]string{{bearerScheme: {}}, {}},
	}

	for _, name := range pathParams(rt.Path) {
		s := &schema.Schema{Type: "string"}
		if name == viewset.ItemParam && rt.IDParam != nil {
			s = schema.Describe(rt.IDParam)
		}
		op.Parameters = append(op.Parameters, Parameter{Name: name, In: "path", Required: true, Schema: s})
	}

	var meta *schema.Schema
	if rt.Pagination != nil {
		for _, qp := range rt.Pagination.Describe() {
			op.Parameters = append(op.Parameters, queryParam(qp))
		}
		if mp, ok := rt.Pagination.(pagination.MetaPrototype); ok {
			meta = schema.Describe(mp.MetaPrototype())
		}
	}
	if len(rt.OrderingFields) > 0 {
		values := make([]any, 0, 2*len(rt.OrderingFields))
		for _, f := range rt.OrderingFields {
			values = append(values, f, "-"+f)
		}
		op.Parameters = append(op.Parameters, Parameter{
			Name:        "ordering",
			In:          "query",
			Description: "Comma separated fields, prefixed with - for descending order",
			Schema:      &schema.Schema{Type: "string", Enum: values},
		})
	}

	if rt.RequestSchema != nil {
		op.RequestBody = &RequestBody{
			Required: true,
			Content:  map[string]MediaType{jsonType: {Schema: b.ref(rt.RequestSchema)}},
		}
	}

	status := strconv.Itoa(rt.Status)
	if rt.Status == http.StatusNoContent {
		op.Responses[status] = &Response{Description: http.StatusText(rt.Status)}
	} else {
		op.Responses[status] = &Response{
			Description: http.StatusText(rt.Status),
			Content:     map[string]MediaType{jsonType: {Schema: b.responseSchema(rt, meta)}},
		}
	}
	op.Responses["default"] = &Response{
		Description: "Error",
		Content:     map[string]MediaType{jsonType: {Schema: &schema.Schema{Ref: componentRef(errorSchema)}}},
	}
	return op
}

func (b *builder) responseSchema(rt viewset.RouteInfo, meta *schema.Schema) *schema.Schema {
	if rt.ResponseSchema == nil {
		return &schema.Schema{Type: "object"}
	}
	data := b.ref(rt.ResponseSchema)

	var w any
	if rt.List {
		data = &schema.Schema{Type: "array", Items: data}
		if rt.ListWrapper != nil {
			w = rt.ListWrapper
		}
	} else {
		meta = nil
		if rt.SingleWrapper != nil {
			w = rt.SingleWrapper
		}
	}
	if sw, ok := w.(wrapper.SchemaWrapper); ok {
		return sw.WrapSchema(data, meta)
	}
	return data
}

// ref registers v's schema as a component when its type is named and returns a reference to it.
func (b *builder) ref(v any) *schema.Schema {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() == reflect.Struct {
		return &schema.Schema{Type: "array", Items: b.ref(reflect.Zero(t.Elem()).Interface())}
	}
	name := schema.Name(v)
	if name == "" {
		return schema.Describe(v)
	}
	if _, ok := b.doc.Components.Schemas[name]; !ok {
		b.doc.Components.Schemas[name] = schema.Describe(v)
	}
	return &schema.Schema{Ref: componentRef(name)}
}

func componentRef(name string) string {
	return "#/components/schemas/" + name
}

func queryParam(qp pagination.QueryParam) Parameter {
	s := &schema.Schema{Type: qp.Type, Example: qp.Default}
	if qp.Minimum != nil {
		f := float64(*qp.Minimum)
		s.Minimum = &f
	}
	if qp.Maximum != nil {
		f := float64(*qp.Maximum)
		s.Maximum = &f
	}
	return Parameter{Name: qp.Name, In: "query", Description: qp.Description, Schema: s}
}

// ginPathToOpenAPI turns /projects/:item_id into /projects/{item_id}.
func ginPathToOpenAPI(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			parts[i] = "{" + name + "}"
		} else if name, ok := strings.CutPrefix(part, "*"); ok {
			parts[i] = "{" + name + "}"
		}
	}
	return strings.Join(parts, "/")
}

func pathParams(p string) []string {
	var names []string
	for _, part := range strings.Split(p, "/") {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			names = append(names, name)
		}
	}
	return names
}

func errorBody() *schema.Schema {
	str := &schema.Schema{Type: "string"}
	detail := &schema.Schema{
		Type:       "object",
		Properties: map[string]*schema.Schema{"field": str, "message": str},
	}
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"success": {Type: "boolean"},
			"error": {
				Type: "object",
				Properties: map[string]*schema.Schema{
					"code":       str,
					"message":    str,
					"request_id": str,
					"details":    {Type: "array", Items: detail},
				},
				Required: []string{"code", "message"},
			},
		},
		Required: []string{"success", "error"},
	}
}
