package validation

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/milhasrod/gateway/internal/api/schema"
)

var (
	errQueryParameterMissing = func(name string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.missing",
			Message: fmt.Sprintf("The query parameter '%s' is required but was not present in the request.", name),
			Details: map[string]any{
				"parameter": name,
			},
		}
	}
	errQueryParameterInvalidType = func(name, value, expectedType string) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.invalidType",
			Message: fmt.Sprintf("The query parameter '%s' ('%s') could not be assigned to the required type (%s).", name, value, expectedType),
			Details: map[string]any{
				"parameter":     name,
				"value":         value,
				"expected_type": expectedType,
			},
		}
	}
	errQueryParameterNumberOutOfRange = func(name string, value, min, max int64) *schema.Error {
		comparison := ""
		if value < min {
			comparison = fmt.Sprintf("%d [given] < %d [min]", value, min)
		} else if value > max {
			comparison = fmt.Sprintf("%d [given] > %d [max]", value, max)
		}

		return &schema.Error{
			Type:    "validation.query.parameter.number.outOfRange",
			Message: fmt.Sprintf("The query parameter '%s' is out of the required range (%s).", name, comparison),
			Details: map[string]any{
				"parameter": name,
				"value":     value,
				"min":       min,
				"max":       max,
			},
		}
	}
	errQueryParameterTooLong = func(name string, length, max int) *schema.Error {
		return &schema.Error{
			Type:    "validation.query.parameter.string.tooLong",
			Message: fmt.Sprintf("The query parameter '%s' exceeds the maximum length (%d [given] > %d [max]).", name, length, max),
			Details: map[string]any{
				"parameter": name,
				"length":    length,
				"max":       max,
			},
		}
	}
)

// QueryNumber extracts and validates an integer value out of the query parameters of the given request
func QueryNumber(request *http.Request, key string, required bool, def, min, max int64) (int64, *schema.Error) {
	// Extract the raw string value
	value := request.URL.Query().Get(key)
	if value == "" {
		if required {
			return 0, errQueryParameterMissing(key)
		}
		return def, nil
	}

	// Try to parse the value
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, errQueryParameterInvalidType(key, value, "number")
	}

	// Check if the parsed value is in the required range
	if parsed < min || parsed > max {
		return 0, errQueryParameterNumberOutOfRange(key, parsed, min, max)
	}

	return parsed, nil
}

// QueryBool extracts a boolean flag out of the query parameters of the given request
func QueryBool(request *http.Request, key string, def bool) (bool, *schema.Error) {
	value := request.URL.Query().Get(key)
	if value == "" {
		return def, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, errQueryParameterInvalidType(key, value, "boolean")
	}
	return parsed, nil
}

// QueryString extracts a trimmed string value out of the query parameters of the given request
func QueryString(request *http.Request, key string, required bool, maxLength int) (string, *schema.Error) {
	value := strings.TrimSpace(request.URL.Query().Get(key))
	if value == "" && required {
		return "", errQueryParameterMissing(key)
	}
	if maxLength > 0 && len(value) > maxLength {
		return "", errQueryParameterTooLong(key, len(value), maxLength)
	}
	return value, nil
}
