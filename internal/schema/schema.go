// Package schema implements a JSON-schema sanitizer: given a tool
// input_schema, produce a copy the Cloud Code upstream will accept.
//
// The recursive map-walking style performs map[string]interface{}
// surgery on schema documents the same way argument-sanitizing code
// elsewhere in this proxy walks tool call arguments.
package schema

// rejectedKeywords are stripped unconditionally wherever they occur in a
// schema, since the upstream's schema dialect doesn't recognise them.
var rejectedKeywords = map[string]bool{
	"$schema": true,
	"$id":     true,
	"title":   true,
}

// rejectedFormats are `format` values the upstream doesn't recognise;
// the format key is dropped entirely rather than passed through.
var rejectedFormats = map[string]bool{
	"uuid":      true,
	"date-time": false, // upstream does understand this one
	"email":     true,
	"hostname":  true,
	"ipv4":      true,
	"ipv6":      true,
}

// Sanitize returns a copy of the schema with unsupported keywords
// removed and null-union types normalised, recursing into properties,
// items and anyOf/oneOf/allOf; nested schemas there are copied, while
// other values (such as required or enum lists) are shared with the
// input. It is idempotent: Sanitize(Sanitize(s)) deep-equals Sanitize(s).
func Sanitize(s map[string]interface{}) map[string]interface{} {
	if s == nil {
		return map[string]interface{}{}
	}
	return sanitizeNode(s)
}

func sanitizeNode(node map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(node))
	for k, v := range node {
		if rejectedKeywords[k] {
			continue
		}
		out[k] = v
	}

	if format, ok := out["format"].(string); ok && rejectedFormats[format] {
		delete(out, "format")
	}

	normalizeNullableType(out)
	dropVacuousAdditionalProperties(out)

	if props, ok := out["properties"].(map[string]interface{}); ok {
		out["properties"] = sanitizeProperties(props)
	}
	if items, ok := out["items"].(map[string]interface{}); ok {
		out["items"] = sanitizeNode(items)
	}
	for _, combinator := range []string{"anyOf", "oneOf", "allOf"} {
		if list, ok := out[combinator].([]interface{}); ok {
			out[combinator] = sanitizeList(list)
		}
	}

	return out
}

func sanitizeProperties(props map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(props))
	for name, raw := range props {
		if child, ok := raw.(map[string]interface{}); ok {
			out[name] = sanitizeNode(child)
		} else {
			out[name] = raw
		}
	}
	return out
}

func sanitizeList(list []interface{}) []interface{} {
	out := make([]interface{}, len(list))
	for i, raw := range list {
		if child, ok := raw.(map[string]interface{}); ok {
			out[i] = sanitizeNode(child)
		} else {
			out[i] = raw
		}
	}
	return out
}

// normalizeNullableType turns `"type": ["string", "null"]` into
// `"type": "string", "nullable": true`, the shape the upstream expects.
func normalizeNullableType(node map[string]interface{}) {
	arr, ok := node["type"].([]interface{})
	if !ok {
		return
	}

	var nonNull []interface{}
	hasNull := false
	for _, t := range arr {
		if s, ok := t.(string); ok && s == "null" {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, t)
	}

	if !hasNull {
		return
	}
	node["nullable"] = true
	switch len(nonNull) {
	case 0:
		delete(node, "type")
	case 1:
		node["type"] = nonNull[0]
	default:
		node["type"] = nonNull
	}
}

// dropVacuousAdditionalProperties removes `additionalProperties: false`
// when paired with an empty `properties: {}`, a combination that some
// upstream schema validators reject as unsatisfiable.
func dropVacuousAdditionalProperties(node map[string]interface{}) {
	ap, hasAP := node["additionalProperties"].(bool)
	props, hasProps := node["properties"].(map[string]interface{})
	if hasAP && !ap && hasProps && len(props) == 0 {
		delete(node, "additionalProperties")
	}
}
