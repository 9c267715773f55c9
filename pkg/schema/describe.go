package schema

import (
	"encoding"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Schema is the subset of the OpenAPI 3 schema object the generator emits.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty"`
	Type                 string             `json:"type,omitempty"`
	Format               string             `json:"format,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
	Nullable             bool               `json:"nullable,omitempty"`
	Enum                 []any              `json:"enum,omitempty"`
	Minimum              *float64           `json:"minimum,omitempty"`
	Maximum              *float64           `json:"maximum,omitempty"`
	MinLength            *int               `json:"minLength,omitempty"`
	MaxLength            *int               `json:"maxLength,omitempty"`
	Example              any                `json:"example,omitempty"`
}

var (
	timeType          = reflect.TypeFor[time.Time]()
	uuidType          = reflect.TypeFor[uuid.UUID]()
	decimalType       = reflect.TypeFor[decimal.Decimal]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// Name returns the type name used for v in components, or "" for unnamed types.
func Name(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && (t.Kind() == reflect.Pointer || t.Kind() == reflect.Slice) {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}

// Describe builds an OpenAPI schema for v's type from its json and binding tags.
func Describe(v any) *Schema {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return &Schema{Type: "object"}
	}
	return describeType(t, map[reflect.Type]bool{})
}

func describe(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	nullable := false
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
		nullable = true
	}

	s := describeType(t, visiting)
	s.Nullable = s.Nullable || nullable
	return s
}

func describeType(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	switch t {
	case timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case uuidType:
		return &Schema{Type: "string", Format: "uuid"}
	case decimalType:
		return &Schema{Type: "string", Format: "decimal", Example: "0.00"}
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return &Schema{Type: "integer", Format: "int32"}
	case reflect.Int64, reflect.Uint64:
		return &Schema{Type: "integer", Format: "int64"}
	case reflect.Float32:
		return &Schema{Type: "number", Format: "float"}
	case reflect.Float64:
		return &Schema{Type: "number", Format: "double"}
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: "string", Format: "byte"}
		}
		return &Schema{Type: "array", Items: describe(t.Elem(), visiting)}
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: describe(t.Elem(), visiting)}
	case reflect.Struct:
		if t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
			return &Schema{Type: "string"}
		}
		return describeStruct(t, visiting)
	}
	return &Schema{}
}

func describeStruct(t reflect.Type, visiting map[reflect.Type]bool) *Schema {
	s := &Schema{Type: "object"}
	if visiting[t] {
		return s
	}
	visiting[t] = true
	defer delete(visiting, t)

	s.Properties = make(map[string]*Schema)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name := JSONName(f)
		if name == "" {
			continue
		}
		prop := describe(f.Type, visiting)
		if doc := f.Tag.Get("doc"); doc != "" {
			prop.Description = doc
		}
		if applyBinding(prop, f.Tag.Get("binding")) {
			s.Required = append(s.Required, name)
		}
		s.Properties[name] = prop
	}
	return s
}

// applyBinding maps validator rules onto schema constraints and reports whether the field is required.
func applyBinding(s *Schema, tag string) bool {
	if tag == "" {
		return false
	}
	required := false
	for _, rule := range strings.Split(tag, ",") {
		key, arg, _ := strings.Cut(rule, "=")
		switch key {
		case "required":
			required = true
		case "email", "uuid", "uri", "ipv4", "ipv6":
			s.Format = key
		case "url":
			s.Format = "uri"
		case "oneof":
			for _, v := range strings.Fields(arg) {
				s.Enum = append(s.Enum, v)
			}
		case "min", "gte", "max", "lte":
			setBound(s, key, arg)
		}
	}
	return required
}

func setBound(s *Schema, key, arg string) {
	lower := key == "min" || key == "gte"
	switch s.Type {
	case "string":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return
		}
		if lower {
			s.MinLength = &n
		} else {
			s.MaxLength = &n
		}
	case "integer", "number":
		f, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return
		}
		if lower {
			s.Minimum = &f
		} else {
			s.Maximum = &f
		}
	}
}
