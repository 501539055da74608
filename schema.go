/*
Copyright © 2026 the SeekMap authors.
This file is part of SeekMap.

SeekMap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SeekMap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SeekMap.  If not, see <http://www.gnu.org/licenses/>.*/

package seekmap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// questionSchema is the JSON Schema of an exported question list.
const questionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "latlng": {
      "type": "object",
      "required": ["lat", "lng"],
      "properties": {
        "lat": {"type": "number", "minimum": -90, "maximum": 90},
        "lng": {"type": "number", "minimum": -180, "maximum": 180}
      }
    },
    "distance": {"type": "number", "exclusiveMinimum": 0},
    "unit": {"type": "string", "enum": ["miles", "mi", "mile", "kilometers", "km", "kilometer", "meters", "m", "meter", "feet", "ft", "foot"]},
    "selector": {
      "properties": {
        "category": {"type": "string", "minLength": 1},
        "ids": {"type": "array", "items": {"type": "string", "minLength": 1}, "minItems": 1}
      }
    },
    "radius": {
      "type": "object",
      "required": ["center", "distance", "unit"],
      "properties": {
        "center": {"$ref": "#/definitions/latlng"},
        "distance": {"$ref": "#/definitions/distance"},
        "unit": {"$ref": "#/definitions/unit"},
        "within": {"type": ["boolean", "null"]}
      }
    },
    "thermometer": {
      "type": "object",
      "required": ["a", "b"],
      "properties": {
        "a": {"$ref": "#/definitions/latlng"},
        "b": {"$ref": "#/definitions/latlng"},
        "closer": {"enum": ["a", "b", null]}
      }
    },
    "tentacle": {
      "type": "object",
      "required": ["center", "distance", "unit", "candidates"],
      "properties": {
        "center": {"$ref": "#/definitions/latlng"},
        "distance": {"$ref": "#/definitions/distance"},
        "unit": {"$ref": "#/definitions/unit"},
        "candidates": {
          "type": "array",
          "minItems": 1,
          "items": {
            "type": "object",
            "required": ["id", "point"],
            "properties": {
              "id": {"type": "string", "minLength": 1},
              "name": {"type": "string"},
              "point": {"$ref": "#/definitions/latlng"},
              "distance": {"$ref": "#/definitions/distance"}
            }
          }
        },
        "chosen": {"type": ["string", "null"]}
      }
    },
    "matching": {
      "type": "object",
      "required": ["reference"],
      "allOf": [{"$ref": "#/definitions/selector"}],
      "properties": {
        "reference": {"$ref": "#/definitions/latlng"},
        "same": {"type": ["boolean", "null"]}
      }
    },
    "measuring": {
      "type": "object",
      "allOf": [{"$ref": "#/definitions/selector"}],
      "properties": {
        "reference": {"$ref": "#/definitions/latlng"},
        "closer": {"type": ["boolean", "null"]},
        "range": {
          "type": "object",
          "required": ["min", "unit"],
          "properties": {
            "min": {"type": "number", "minimum": 0},
            "max": {"$ref": "#/definitions/distance"},
            "unit": {"$ref": "#/definitions/unit"}
          }
        }
      }
    }
  },
  "type": "array",
  "items": {
    "type": "object",
    "required": ["key", "kind", "data"],
    "properties": {
      "key": {"type": "integer", "minimum": 0},
      "kind": {"enum": ["radius", "thermometer", "tentacle", "matching", "measuring"]},
      "finalized": {"type": "boolean"},
      "data": {"type": "object"}
    },
    "allOf": [
      {"if": {"properties": {"kind": {"const": "radius"}}}, "then": {"properties": {"data": {"$ref": "#/definitions/radius"}}}},
      {"if": {"properties": {"kind": {"const": "thermometer"}}}, "then": {"properties": {"data": {"$ref": "#/definitions/thermometer"}}}},
      {"if": {"properties": {"kind": {"const": "tentacle"}}}, "then": {"properties": {"data": {"$ref": "#/definitions/tentacle"}}}},
      {"if": {"properties": {"kind": {"const": "matching"}}}, "then": {"properties": {"data": {"$ref": "#/definitions/matching"}}}},
      {"if": {"properties": {"kind": {"const": "measuring"}}}, "then": {"properties": {"data": {"$ref": "#/definitions/measuring"}}}}
    ]
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(questionSchema)

// ValidateSchema checks a JSON question list against the question schema.
// The most specific failure is returned as a *SchemaError naming the
// offending field and, when it can be read, the key of the offending
// question.
func ValidateSchema(b []byte) error {
	var doc interface{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return schemaErrorf("(root)", "%v", err)
	}
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("seekmap: validating questions: %v", err)
	}
	if result.Valid() {
		return nil
	}
	re := deepest(result.Errors())
	field, key := splitField(re.Field(), doc)
	return &SchemaError{Key: key, Field: field, Reason: re.Description()}
}

// summaryErrors only report that a nested schema failed; the nested
// failure itself is reported separately.
var summaryErrors = map[string]bool{
	"condition_then": true,
	"condition_else": true,
	"number_all_of":  true,
	"number_any_of":  true,
	"number_one_of":  true,
}

// deepest returns the error with the longest field path, preferring the
// first among equals and skipping summaries of nested failures.
func deepest(errs []gojsonschema.ResultError) gojsonschema.ResultError {
	best, depth := errs[0], -1
	for _, e := range errs {
		if summaryErrors[e.Type()] {
			continue
		}
		if d := strings.Count(e.Field(), ".") + 1; d > depth {
			best, depth = e, d
		}
	}
	return best
}

// splitField separates the array index from a schema error field such as
// "2.data.center.lat" and looks up the key of that question in doc.
func splitField(f string, doc interface{}) (string, int) {
	parts := strings.SplitN(f, ".", 2)
	i, err := strconv.Atoi(parts[0])
	if err != nil {
		return f, NoKey
	}
	field := "question"
	if len(parts) == 2 {
		field = parts[1]
	}
	items, ok := doc.([]interface{})
	if !ok || i < 0 || i >= len(items) {
		return field, NoKey
	}
	item, ok := items[i].(map[string]interface{})
	if !ok {
		return field, NoKey
	}
	k, ok := item["key"].(float64)
	if !ok || k < 0 || k != float64(int(k)) {
		return field, NoKey
	}
	return field, int(k)
}

// ImportQuestions reads a question list exported by ExportQuestions,
// typically pasted from the clipboard. The input is checked against the
// question schema and every question is validated; nothing is coerced.
func ImportQuestions(b []byte) ([]Question, error) {
	if err := ValidateSchema(b); err != nil {
		return nil, err
	}
	var qs []Question
	if err := json.Unmarshal(b, &qs); err != nil {
		if se, ok := err.(*SchemaError); ok {
			return nil, se
		}
		return nil, schemaErrorf("(root)", "%v", err)
	}
	seen := make(map[int]bool, len(qs))
	for _, q := range qs {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		if seen[q.Key] {
			return nil, &SchemaError{Key: q.Key, Field: "key", Reason: "duplicate key"}
		}
		seen[q.Key] = true
	}
	return qs, nil
}

// ExportQuestions writes qs in the interchange format read by
// ImportQuestions.
func ExportQuestions(qs []Question) ([]byte, error) {
	if qs == nil {
		qs = []Question{}
	}
	return json.MarshalIndent(qs, "", "  ")
}
