// Package schema moves data between request/response schema structs and
// gorm models, and describes Go types as OpenAPI schemas.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrNotStruct is returned when a prototype or target is not a struct.
	ErrNotStruct = errors.New("schema: expected a struct or pointer to struct")
	// ErrNull is returned when a selected field is null and its target cannot hold null.
	ErrNull = errors.New("schema: field may not be null")
)

// FieldError reports the field, by JSON name, that could not be assigned.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return "field " + e.Field + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

// New returns a pointer to a fresh zero value of proto's struct type.
func New(proto any) (any, error) {
	t, err := structType(proto)
	if err != nil {
		return nil, err
	}
	return reflect.New(t).Interface(), nil
}

// Serialize builds a value of proto's type from model. A nil proto returns model unchanged.
func Serialize(proto, model any) (any, error) {
	if proto == nil {
		return model, nil
	}
	out, err := New(proto)
	if err != nil {
		return nil, err
	}
	if _, err := Assign(out, model, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// JSONKeys returns the top-level keys present in a JSON object.
func JSONKeys(body []byte) (map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(raw))
	for k := range raw {
		keys[k] = true
	}
	return keys, nil
}

// JSONName is the name a field is encoded under, or "" if it is skipped.
func JSONName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}

// Assign copies exported fields from src into dst (a struct pointer), matching by
// field name. When only is non-nil, just the fields whose JSON names it contains
// are copied, and a nil pointer among them fails with ErrNull unless the dst
// field is nullable. It returns the names of the dst fields that were written.
func Assign(dst, src any, only map[string]bool) ([]string, error) {
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Pointer || dv.IsNil() || dv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: dst is %T", ErrNotStruct, dst)
	}
	sv := reflect.Indirect(reflect.ValueOf(src))
	if !sv.IsValid() || sv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: src is %T", ErrNotStruct, src)
	}
	return assignStruct(dv.Elem(), sv, only)
}

func assignStruct(dv, sv reflect.Value, only map[string]bool) ([]string, error) {
	var written []string
	for _, sf := range reflect.VisibleFields(sv.Type()) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := JSONName(sf)
		if name == "" || (only != nil && !only[name]) {
			continue
		}
		df, ok := dv.Type().FieldByName(sf.Name)
		if !ok || !df.IsExported() {
			continue
		}
		from, err := sv.FieldByIndexErr(sf.Index)
		if err != nil {
			continue
		}
		to, err := dv.FieldByIndexErr(df.Index)
		if err != nil || !to.CanSet() {
			continue
		}
		if only != nil && from.Kind() == reflect.Pointer && from.IsNil() && !nullable(to.Type()) {
			return written, &FieldError{Field: name, Err: ErrNull}
		}
		if err := assignValue(to, from); err != nil {
			return written, &FieldError{Field: name, Err: err}
		}
		written = append(written, df.Name)
	}
	return written, nil
}

func assignValue(dst, src reflect.Value) error {
	switch {
	case src.Type().AssignableTo(dst.Type()):
		dst.Set(src)
		return nil
	case src.Kind() == reflect.Pointer:
		if src.IsNil() {
			dst.SetZero()
			return nil
		}
		return assignValue(dst, src.Elem())
	case dst.Kind() == reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assignValue(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	case convertible(src.Type(), dst.Type()):
		dst.Set(src.Convert(dst.Type()))
		return nil
	case src.Kind() == reflect.Struct && dst.Kind() == reflect.Struct:
		_, err := assignStruct(dst, src, nil)
		return err
	case src.Kind() == reflect.Slice && dst.Kind() == reflect.Slice:
		if src.IsNil() {
			dst.SetZero()
			return nil
		}
		out := reflect.MakeSlice(dst.Type(), src.Len(), src.Len())
		for i := range src.Len() {
			if err := assignValue(out.Index(i), src.Index(i)); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		dst.Set(out)
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", src.Type(), dst.Type())
}

// nullable reports whether t has a null representation: a nil kind, or a
// struct carrying a Valid flag such as sql.NullString or decimal.NullDecimal.
func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return true
	case reflect.Struct:
		f, ok := t.FieldByName("Valid")
		return ok && f.Type.Kind() == reflect.Bool
	}
	return false
}

// convertible rejects the integer to string conversion, which yields a rune.
func convertible(from, to reflect.Type) bool {
	if !from.ConvertibleTo(to) {
		return false
	}
	if to.Kind() == reflect.String && from.Kind() != reflect.String {
		return false
	}
	return true
}

func structType(proto any) (reflect.Type, error) {
	t := reflect.TypeOf(proto)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: got %T", ErrNotStruct, proto)
	}
	return t, nil
}
