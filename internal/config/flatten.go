package config

import (
	"reflect"
	"time"
)

var durationType = reflect.TypeFor[time.Duration]()

// flatten converts a struct into dotted koanf keys using the koanf tags.
// Loading defaults flat keeps koanf from replacing whole nested sections
// when a file only sets some of their keys.
func flatten(v any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, reflect.ValueOf(v), "")
	return out
}

func flattenInto(out map[string]any, val reflect.Value, prefix string) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := range val.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + Delimiter + key
		}

		fv := val.Field(i)
		switch {
		case fv.Type() == durationType:
			out[key] = fv.Interface()
		case fv.Kind() == reflect.Struct, fv.Kind() == reflect.Pointer:
			flattenInto(out, fv, key)
		case fv.Kind() == reflect.Slice:
			items := make([]any, fv.Len())
			for j := range fv.Len() {
				items[j] = fv.Index(j).Interface()
			}
			out[key] = items
		default:
			out[key] = fv.Interface()
		}
	}
}
