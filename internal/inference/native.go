package inference

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Nativize converts library- or backend-specific values into portable native
// types: bools, strings, int64/float64 scalars, []any sequences, and
// map[string]any mappings. It recurses through arbitrarily nested mappings
// and sequences, since output shapes vary by model backend.
func Nativize(v any) any {
	if v == nil {
		return nil
	}

	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case bool, string, int64, float64:
		return n
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Nativize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := fmt.Sprint(iter.Key().Interface())
			out[key] = Nativize(iter.Value().Interface())
		}
		return out
	case reflect.Struct:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339Nano)
		}
		rt := rv.Type()
		out := make(map[string]any)
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag != "" {
				if tag == "-" {
					continue
				}
				name = tag
			}
			out[name] = Nativize(rv.Field(i).Interface())
		}
		return out
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Nativize(rv.Elem().Interface())
	default:
		return fmt.Sprint(v)
	}
}
