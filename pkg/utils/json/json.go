// Package json is a thin wrapper over bytedance/sonic, the JSON codec
// already used across echoryn's gin/eino stack, so the conductor runtime's
// event and document persistence paths share one marshaling strategy
// instead of mixing encoding/json call sites.
package json

import (
	stdjson "encoding/json"
	"io"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
)

var api = sonic.ConfigStd

// Marshal encodes v to JSON.
func Marshal(v interface{}) ([]byte, error) { return api.Marshal(v) }

// MarshalIndent encodes v to indented JSON.
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes JSON into v.
func Unmarshal(data []byte, v interface{}) error { return api.Unmarshal(data, v) }

// NewEncoder returns a streaming encoder writing to w.
func NewEncoder(w io.Writer) *encoder.StreamEncoder { return api.NewEncoder(w) }

// NewDecoder returns a streaming decoder reading from r.
func NewDecoder(r io.Reader) *decoder.StreamDecoder { return api.NewDecoder(r) }

// RawMessage defers JSON decoding; sonic's wire format is a strict superset
// of encoding/json's, so the stdlib type is reused directly.
type RawMessage = stdjson.RawMessage

// Marshaler mirrors encoding/json.Marshaler for types providing custom JSON.
type Marshaler = stdjson.Marshaler

// SyntaxError mirrors encoding/json.SyntaxError for error-type assertions.
type SyntaxError = stdjson.SyntaxError

// Number mirrors encoding/json.Number.
type Number = stdjson.Number
