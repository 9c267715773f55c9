// Package wrapper shapes viewset results into response bodies.
package wrapper

import (
	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/schema"
)

// SingleWrapper wraps one serialized object.
type SingleWrapper interface {
	WrapSingle(data any) any
}

// ListWrapper wraps a serialized list and its page.
type ListWrapper interface {
	WrapList(data any, page pagination.Page) any
}

// SchemaWrapper describes the wrapped body for OpenAPI, given the data schema and the
// page meta schema (nil for single objects and unpaginated lists).
type SchemaWrapper interface {
	WrapSchema(data, meta *schema.Schema) *schema.Schema
}

// DataBody is {"data": ...}.
type DataBody struct {
	Data any `json:"data"`
}

// PaginatedBody is {"data": [...], "meta": {...}}.
type PaginatedBody struct {
	Data any `json:"data"`
	Meta any `json:"meta"`
}

// EnvelopeBody matches the service-wide {"success": true, "data": ..., "meta": ...} envelope.
type EnvelopeBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
	Meta    any  `json:"meta,omitempty"`
}

// Data wraps a single object as {"data": obj}.
type Data struct{}

func (Data) WrapSingle(data any) any { return DataBody{Data: data} }

func (Data) WrapSchema(data, _ *schema.Schema) *schema.Schema {
	return object(map[string]*schema.Schema{"data": data}, "data")
}

// ListData wraps a list as {"data": [...]} and ignores pagination.
type ListData struct{}

func (ListData) WrapList(data any, _ pagination.Page) any { return DataBody{Data: data} }

func (ListData) WrapSchema(data, _ *schema.Schema) *schema.Schema {
	return object(map[string]*schema.Schema{"data": data}, "data")
}

// PaginatedData adds the page meta; without pagination it has the ListData shape.
type PaginatedData struct{}

func (PaginatedData) WrapList(data any, page pagination.Page) any {
	if !pagination.IsEnabled(page) {
		return DataBody{Data: data}
	}
	return PaginatedBody{Data: data, Meta: page.Meta()}
}

func (PaginatedData) WrapSchema(data, meta *schema.Schema) *schema.Schema {
	if meta == nil {
		return ListData{}.WrapSchema(data, nil)
	}
	return object(map[string]*schema.Schema{"data": data, "meta": meta}, "data", "meta")
}

// Envelope produces the service envelope for both single objects and lists.
type Envelope struct{}

func (Envelope) WrapSingle(data any) any {
	return EnvelopeBody{Success: true, Data: data}
}

func (Envelope) WrapList(data any, page pagination.Page) any {
	body := EnvelopeBody{Success: true, Data: data}
	if pagination.IsEnabled(page) {
		body.Meta = page.Meta()
	}
	return body
}

func (Envelope) WrapSchema(data, meta *schema.Schema) *schema.Schema {
	props := map[string]*schema.Schema{
		"success": {Type: "boolean"},
		"data":    data,
	}
	if meta != nil {
		props["meta"] = meta
	}
	return object(props, "success", "data")
}

func object(props map[string]*schema.Schema, required ...string) *schema.Schema {
	return &schema.Schema{Type: "object", Properties: props, Required: required}
}
