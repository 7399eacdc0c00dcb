package apiclient

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses a single JSON object into T and validates it. Wire types
// declare required fields as pointers tagged `validate:"required"` so that an
// absent or null field is rejected instead of silently zeroed.
func Decode[T any](data []byte) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, &SchemaError{Err: err}
	}
	if err := validate.Struct(out); err != nil {
		var zero T
		return zero, schemaErrorFrom(err, "")
	}
	return out, nil
}

// DecodeList parses a JSON array and validates every element. The first
// offending element aborts the decode.
func DecodeList[T any](data []byte) ([]T, error) {
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &SchemaError{Err: err}
	}
	if out == nil {
		return nil, &SchemaError{Err: errors.New("expected array, got null")}
	}
	for i := range out {
		if err := validate.Struct(out[i]); err != nil {
			return nil, schemaErrorFrom(err, "["+strconv.Itoa(i)+"]")
		}
	}
	return out, nil
}

func schemaErrorFrom(err error, prefix string) *SchemaError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &SchemaError{Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if prefix != "" {
			ns = prefix + "." + ns
		}
		fields = append(fields, ns)
	}
	return &SchemaError{Fields: fields, Err: err}
}
