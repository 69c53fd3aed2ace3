package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/milhasrod/gateway/internal/api/schema"
)

// maxBodySize limits the size of accepted request bodies
const maxBodySize = 64 << 10

var (
	errRequestBodyInvalidJSON = func(err string) *schema.Error {
		return &schema.Error{
			Type:    "validation.requestBody.invalidJSON",
			Message: "Request body is not a valid JSON input.",
			Details: map[string]any{
				"error": err,
			},
		}
	}
	errRequestBodyTooLarge = func(limit int64) *schema.Error {
		return &schema.Error{
			Type:    "validation.requestBody.tooLarge",
			Message: fmt.Sprintf("The request body exceeds the maximum size of %d bytes.", limit),
			Details: map[string]any{
				"limit": limit,
			},
		}
	}
	errRequestBodyParameterInvalidType = func(name, expectedType string) *schema.Error {
		return &schema.Error{
			Type:    "validation.requestBody.parameter.invalidType",
			Message: fmt.Sprintf("The request body parameter '%s' could not be assigned to the required type (%s).", name, expectedType),
			Details: map[string]any{
				"parameter":     name,
				"expected_type": expectedType,
			},
		}
	}
	errRequestBodyParameterMissing = func(name string) *schema.Error {
		return &schema.Error{
			Type:    "validation.requestBody.parameter.missing",
			Message: fmt.Sprintf("The request body parameter '%s' is required but was not present in the request.", name),
			Details: map[string]any{
				"parameter": name,
			},
		}
	}
	errRequestBodyParameterNumberOutOfRange = func(name string, value, min, max int64) *schema.Error {
		comparison := ""
		if value < min {
			comparison = fmt.Sprintf("%d [given] < %d [min]", value, min)
		} else if value > max {
			comparison = fmt.Sprintf("%d [given] > %d [max]", value, max)
		}

		return &schema.Error{
			Type:    "validation.requestBody.parameter.number.outOfRange",
			Message: fmt.Sprintf("The request body parameter '%s' is out of the required range (%s).", name, comparison),
			Details: map[string]any{
				"parameter": name,
				"value":     value,
				"min":       min,
				"max":       max,
			},
		}
	}
)

// UnmarshalBody parses and decodes a JSON request body and performs validations on it.
// Supported struct tags are 'required' (pointer, slice or map fields have to be present) and 'min' / 'max' (integers).
func UnmarshalBody[T any](writer http.ResponseWriter, request *http.Request) (*T, []*schema.Error, error) {
	body, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, []*schema.Error{errRequestBodyTooLarge(tooLarge.Limit)}, nil
		}
		return nil, nil, err
	}

	target := new(T)
	if err := json.Unmarshal(body, target); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, []*schema.Error{errRequestBodyParameterInvalidType(typeErr.Field, typeErr.Type.String())}, nil
		}
		return nil, []*schema.Error{errRequestBodyInvalidJSON(err.Error())}, nil
	}

	errs, err := validateStruct("", target)
	if err != nil {
		return nil, nil, err
	}
	return target, errs, nil
}

func validateStruct(fieldPrefix string, val any) ([]*schema.Error, error) {
	typ := reflect.TypeOf(val)
	ref := reflect.ValueOf(val)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
		ref = ref.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, errors.New("illegal call to validateStruct with non-struct parameter")
	}

	var errs []*schema.Error

	for i := 0; i < typ.NumField(); i++ {
		fieldDef := typ.Field(i)
		if !fieldDef.IsExported() {
			continue
		}

		// Retrieve the validation requirements
		required := strings.EqualFold(fieldDef.Tag.Get("required"), "true")
		min, err := strconv.ParseInt(fieldDef.Tag.Get("min"), 10, 64)
		if err != nil {
			min = math.MinInt64
		}
		max, err := strconv.ParseInt(fieldDef.Tag.Get("max"), 10, 64)
		if err != nil {
			max = math.MaxInt64
		}

		fieldName := fieldPrefix + getFieldName(fieldDef)

		// Perform all validations on the field
		field := ref.Field(i)
		switch field.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			if field.IsNil() {
				if required {
					errs = append(errs, errRequestBodyParameterMissing(fieldName))
				}
				continue
			}
		}
		if field.Kind() == reflect.Pointer {
			field = field.Elem()
		}

		switch {
		case field.CanUint():
			val := field.Uint()
			if val > math.MaxInt64 {
				errs = append(errs, errRequestBodyParameterNumberOutOfRange(fieldName, math.MaxInt64, min, max))
			} else if int64(val) < min || int64(val) > max {
				errs = append(errs, errRequestBodyParameterNumberOutOfRange(fieldName, int64(val), min, max))
			}
		case field.CanInt():
			val := field.Int()
			if val < min || val > max {
				errs = append(errs, errRequestBodyParameterNumberOutOfRange(fieldName, val, min, max))
			}
		case field.Kind() == reflect.Struct:
			subErrs, err := validateStruct(fieldName+".", field.Interface())
			if err != nil {
				return nil, err
			}
			errs = append(errs, subErrs...)
		}
	}

	return errs, nil
}

func getFieldName(def reflect.StructField) string {
	jsonVal, ok := def.Tag.Lookup("json")
	if !ok || jsonVal == "-" {
		return def.Name
	}
	name, _, _ := strings.Cut(jsonVal, ",")
	if name == "" {
		return def.Name
	}
	return name
}
