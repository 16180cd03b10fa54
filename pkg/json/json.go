// Package json wraps github.com/goccy/go-json behind the standard
// library's Marshal/Unmarshal signatures so every JSON touchpoint in the
// translator and SSE pipeline goes through the faster codec without
// callers needing to know it.
package json

import (
	gojson "github.com/goccy/go-json"
)

func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

func Valid(data []byte) bool {
	return gojson.Valid(data)
}

type RawMessage = gojson.RawMessage
type Number = gojson.Number
type Encoder = gojson.Encoder
type Decoder = gojson.Decoder

func NewEncoder(w interface{ Write([]byte) (int, error) }) *Encoder {
	return gojson.NewEncoder(w)
}

func NewDecoder(r interface{ Read([]byte) (int, error) }) *Decoder {
	return gojson.NewDecoder(r)
}
