package schema

import (
	"reflect"
	"testing"
)

func TestSanitizeStripsRejectedKeywords(t *testing.T) {
	in := map[string]interface{}{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "https://example.com/schema.json",
		"title":   "Widget",
		"type":    "object",
	}
	out := Sanitize(in)

	for _, k := range []string{"$schema", "$id", "title"} {
		if _, ok := out[k]; ok {
			t.Errorf("expected %q to be stripped, got %v", k, out[k])
		}
	}
	if out["type"] != "object" {
		t.Errorf("expected type to survive, got %v", out["type"])
	}
}

func TestSanitizeDropsRejectedFormat(t *testing.T) {
	in := map[string]interface{}{"type": "string", "format": "uuid"}
	out := Sanitize(in)
	if _, ok := out["format"]; ok {
		t.Errorf("expected format to be dropped, got %v", out["format"])
	}

	in2 := map[string]interface{}{"type": "string", "format": "date-time"}
	out2 := Sanitize(in2)
	if out2["format"] != "date-time" {
		t.Errorf("expected date-time format to survive, got %v", out2["format"])
	}
}

func TestSanitizeNormalizesNullableType(t *testing.T) {
	in := map[string]interface{}{
		"type": []interface{}{"string", "null"},
	}
	out := Sanitize(in)
	if out["type"] != "string" {
		t.Errorf("expected type to collapse to string, got %v", out["type"])
	}
	if out["nullable"] != true {
		t.Errorf("expected nullable=true, got %v", out["nullable"])
	}
}

func TestSanitizeDropsVacuousAdditionalProperties(t *testing.T) {
	in := map[string]interface{}{
		"type":                 "object",
		"properties":           map[string]interface{}{},
		"additionalProperties": false,
	}
	out := Sanitize(in)
	if _, ok := out["additionalProperties"]; ok {
		t.Errorf("expected additionalProperties to be dropped, got %v", out["additionalProperties"])
	}
}

func TestSanitizeRecursesIntoProperties(t *testing.T) {
	in := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id": map[string]interface{}{"type": "string", "format": "uuid"},
		},
	}
	out := Sanitize(in)
	props := out["properties"].(map[string]interface{})
	id := props["id"].(map[string]interface{})
	if _, ok := id["format"]; ok {
		t.Errorf("expected nested format to be dropped, got %v", id["format"])
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	in := map[string]interface{}{
		"$schema": "x",
		"type":    []interface{}{"integer", "null"},
		"properties": map[string]interface{}{
			"nested": map[string]interface{}{"format": "email", "type": "string"},
		},
	}
	once := Sanitize(in)
	twice := Sanitize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Sanitize is not idempotent:\nonce=%#v\ntwice=%#v", once, twice)
	}
}

func TestSanitizeNilInput(t *testing.T) {
	out := Sanitize(nil)
	if out == nil || len(out) != 0 {
		t.Errorf("expected empty map for nil input, got %#v", out)
	}
}
