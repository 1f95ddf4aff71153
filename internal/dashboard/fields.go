package dashboard

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// lookup resolves a dotted json path ("price.unit") on a struct value.
func lookup(v reflect.Value, path string) (reflect.Value, bool) {
	for _, part := range strings.Split(path, ".") {
		v = deref(v)
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		idx, ok := jsonFieldIndex(v.Type())[part]
		if !ok {
			return reflect.Value{}, false
		}
		v = v.Field(idx)
	}
	return deref(v), true
}

func deref(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func jsonFieldIndex(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name == "" {
			name = f.Name
		}
		out[name] = i
	}
	return out
}

// stringFields lists the values of every top-level string field.
func stringFields(v reflect.Value) []string {
	v = deref(v)
	if v.Kind() != reflect.Struct {
		return nil
	}
	var out []string
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).IsExported() {
			continue
		}
		if f := v.Field(i); f.Kind() == reflect.String {
			out = append(out, f.String())
		}
	}
	return out
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

// format renders a field value for search, CSV and chart labels.
func format(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Type().Implements(stringerType) {
		return v.Interface().(fmt.Stringer).String()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			item := deref(v.Index(i))
			if item.Kind() == reflect.Struct {
				if name, ok := lookup(item, "name"); ok {
					parts = append(parts, format(name))
					continue
				}
			}
			parts = append(parts, format(item))
		}
		return strings.Join(parts, "; ")
	case reflect.Struct:
		if name, ok := lookup(v, "name"); ok {
			return format(name)
		}
		if id, ok := lookup(v, "id"); ok {
			return format(id)
		}
	}
	return fmt.Sprint(v.Interface())
}

// numeric returns the value as float64 when it is a number.
func numeric(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
