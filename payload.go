package bytrofront

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Payload is an insertion-ordered set of request parameters. The canonical
// string and the signature both depend on iteration order being exactly the
// order keys were added, so order is recorded as part of the type rather
// than left to map iteration.
type Payload struct {
	keys   []string
	values map[string]interface{}
}

// NewPayload returns an empty payload.
func NewPayload() *Payload {
	return &Payload{values: make(map[string]interface{})}
}

// Set adds a parameter, keeping the position of an existing key. It returns
// the payload for chaining.
func (p *Payload) Set(key string, value interface{}) *Payload {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return p
}

// Get returns the value stored under key.
func (p *Payload) Get(key string) (interface{}, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p *Payload) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Len returns the number of parameters.
func (p *Payload) Len() int {
	return len(p.keys)
}

// Keys returns the parameter names in insertion order.
func (p *Payload) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// EncodedForm renders the payload as a percent-encoded key=value&... string.
// This is the plaintext of the transmitted body and the open-mode signature
// input. An empty payload yields an empty string.
func (p *Payload) EncodedForm() string {
	parts := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		parts = append(parts, encodeURIComponent(k)+"="+encodeURIComponent(formatValue(p.values[k])))
	}
	return strings.Join(parts, "&")
}

// PlainForm renders the payload as an unencoded key=value&... string in the
// same key order as EncodedForm. It is used only as authenticated-mode
// signature input.
func (p *Payload) PlainForm() string {
	parts := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		parts = append(parts, k+"="+formatValue(p.values[k]))
	}
	return strings.Join(parts, "&")
}

// MarshalJSON renders the payload as a JSON object preserving insertion
// order.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.values[k])
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
