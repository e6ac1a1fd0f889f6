package batch

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStringOrArray parses a parameter that can be either a single string or an array of strings
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Models sometimes send a JSON encoded array as a string
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			var items []interface{}
			if err := json.Unmarshal([]byte(v), &items); err == nil {
				return ParseStringOrArray(items, paramName)
			}
		}
		result = []string{v}
	case []string:
		return ParseStringOrArray(toInterfaces(v), paramName)
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// ParseList is like ParseStringOrArray but also splits a single string on commas.
// Blank entries are dropped.
func ParseList(param interface{}, paramName string) ([]string, error) {
	values, err := ParseStringOrArray(param, paramName)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	return result, nil
}

// ParseOptionalList returns nil for a missing parameter and otherwise behaves like ParseList
func ParseOptionalList(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, nil
	}
	if s, ok := param.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return ParseList(param, paramName)
}

func toInterfaces(v []string) []interface{} {
	out := make([]interface{}, len(v))
	for i, s := range v {
		out[i] = s
	}
	return out
}
