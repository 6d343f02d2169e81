package parse

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrEmptyContent is returned when there is nothing to decode.
var ErrEmptyContent = errors.New("parse: empty content")

// ParseStringAs decodes content into T. String targets receive the content
// unchanged. Everything else goes through encoding/json, retried once on the
// output of jsonrepair.JSONRepair.
//
//	queries, err := parse.ParseStringAs[SearchQueryList](`{query: ['a', 'b'],}`)
func ParseStringAs[T any](content string) (T, error) {
	var result T
	if reflect.TypeFor[T]().Kind() == reflect.String {
		reflect.ValueOf(&result).Elem().SetString(content)
		return result, nil
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return result, ErrEmptyContent
	}

	err := json.Unmarshal([]byte(content), &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(content)
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}
	result = *new(T)
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (repaired: %s)", result, err, repaired)
	}
	return result, nil
}
