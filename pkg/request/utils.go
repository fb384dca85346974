package request

import (
	jsonlib "encoding/json"
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"
	"github.com/spf13/cast"
)

// ToFormBody converts a JSON like map to a form body map, any type is mapped to string.
// Slices are expanded to "key[index]" and string maps to "key[subKey]" fields.
func ToFormBody(in map[string]any) (out map[string]string) {
	out = make(map[string]string)
	for k, v := range in {
		switch typed := v.(type) {
		case nil:
			out[k] = ""
		case []string:
			for i, s := range typed {
				out[fmt.Sprintf("%s[%d]", k, i)] = s
			}
		case []any:
			for i, s := range typed {
				out[fmt.Sprintf("%s[%d]", k, i)] = castToString(s)
			}
		case map[string]string:
			for sub, s := range typed {
				out[fmt.Sprintf("%s[%s]", k, sub)] = s
			}
		default:
			out[k] = castToString(v)
		}
	}
	return out
}

// StructToMap converts a struct to values map.
// Only allowedFields are converted, if allowedFields is empty, all fields are exported.
//
// Field name is read from the `writeas` tag or from the "json" tag as fallback.
// Field with tag `readonly:"true"` is ignored.
// Field with tag `writeoptional:"true"` is exported only if the value is not empty.
func StructToMap(in any, allowedFields []string) (out map[string]any) {
	out = make(map[string]any)
	allowed := make(map[string]bool)
	for _, field := range allowedFields {
		allowed[field] = true
	}
	structToMap(reflect.ValueOf(in), out, allowed)
	return out
}

func structToMap(in reflect.Value, out map[string]any, allowed map[string]bool) {
	for in.Kind() == reflect.Ptr || in.Kind() == reflect.Interface {
		in = in.Elem()
	}
	t := in.Type()

	for i := range t.NumField() {
		field := t.Field(i)
		fieldValue := in.Field(i)

		// Embedded struct
		if field.Anonymous {
			structToMap(fieldValue, out, allowed)
			continue
		}

		if !field.IsExported() || field.Tag.Get("readonly") == "true" {
			continue
		}
		if field.Tag.Get("writeoptional") == "true" && fieldValue.IsZero() {
			continue
		}

		var fieldName string
		if v := field.Tag.Get("writeas"); v != "" {
			fieldName = v
		} else if v := strings.Split(field.Tag.Get("json"), ",")[0]; v != "" {
			fieldName = v
		} else {
			panic(fmt.Errorf(`field "%s" of %s has no json name`, field.Name, t.String()))
		}

		if fieldName == "-" {
			continue
		}
		if len(allowed) > 0 && !allowed[fieldName] {
			continue
		}

		out[fieldName] = fieldValue.Interface()
	}
}

func cloneParams(in map[string]string) (out map[string]string) {
	out = make(map[string]string, len(in))
	maps.Copy(out, in)
	return out
}

func cloneURLValues(in url.Values) (out url.Values) {
	out = make(url.Values, len(in))
	for k, values := range in {
		out[k] = append([]string(nil), values...)
	}
	return out
}

func castToString(v any) string {
	// Ordered map is encoded as compact JSON by the standard library,
	// its MarshalJSON output is not compact.
	if orderedMap, ok := v.(*orderedmap.OrderedMap); ok {
		bytes, err := jsonlib.Marshal(orderedMap)
		if err != nil {
			panic(fmt.Errorf(`cannot cast %T to string: %w`, v, err))
		}
		return string(bytes)
	}

	out, err := cast.ToStringE(v)
	if err != nil {
		panic(fmt.Errorf(`cannot cast %T to string: %w`, v, err))
	}
	return out
}
