// Package schema maps JSON documents to declared Go types and back.
//
// A schema is a plain Go type with "json" struct tags.
// Constraints are declared by "validate" struct tags, see github.com/go-playground/validator.
// Unknown JSON fields are ignored.
//
// Decoding into a slice type loads a list of objects, each object is validated.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate //nolint:gochecknoglobals
	validateOnce sync.Once           //nolint:gochecknoglobals
)

// Decode JSON data to a new value of the type T and validate it.
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf(`cannot decode %s: %w`, typeName[T](), err)
	}
	if err := Validate(out); err != nil {
		return out, err
	}
	return out, nil
}

// Encode validates the value and encodes it to JSON.
func Encode(v any) ([]byte, error) {
	if err := Validate(v); err != nil {
		return nil, err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf(`cannot encode %T: %w`, v, err)
	}
	return out, nil
}

// Validate checks constraints declared by the "validate" tags.
// Structs, pointers to structs and slices, arrays or maps of them are supported, other values are always valid.
func Validate(v any) error {
	if errs := validateValue(reflect.ValueOf(v), ""); len(errs) > 0 {
		sort.SliceStable(errs, func(i, j int) bool {
			return errs[i].Path < errs[j].Path
		})
		return &ValidationError{Errors: errs}
	}
	return nil
}

func validateValue(v reflect.Value, path string) (out []FieldError) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		err := structValidator().Struct(v.Interface())
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []FieldError{{Path: path, Tag: err.Error()}}
		}
		for _, fe := range fieldErrs {
			out = append(out, FieldError{
				Path:  joinPath(path, fe.Namespace()),
				Tag:   fe.Tag(),
				Param: fe.Param(),
				Value: fe.Value(),
			})
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			out = append(out, validateValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i))...)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, validateValue(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key().Interface()))...)
		}
	default:
		// nop
	}
	return out
}

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their JSON names
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// joinPath replaces the root type name of the namespace by the path prefix.
func joinPath(prefix, namespace string) string {
	_, field, found := strings.Cut(namespace, ".")
	if !found {
		field = namespace
	}
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
