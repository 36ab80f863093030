// Package codec implements the single process-wide JSON policy that spec.md
// §9 requires be passed explicitly to both the store adapter and the queue
// adapter, rather than letting each layer build its own encoder.
//
// No JSON library beyond encoding/json appears anywhere in the retrieved
// corpus (none of the seven example repos import goccy/go-json, easyjson,
// or jsoniter), so the policy wraps the standard library rather than
// reaching for a third-party encoder.
package codec

import "encoding/json"

// Policy is the shared JSON encoding/decoding strategy: camelCase field
// names (enforced by struct tags on the types that flow through it, not by
// the policy itself, since encoding/json has no case-conversion hook),
// option types serialized as present-or-absent fields via `omitempty`, and
// tagged unions represented as the Envelope type below.
type Policy struct{}

// Default is the process-wide policy instance. Components take a Policy by
// value (it is stateless) so construction sites stay explicit about which
// policy they use, even though today there is only one.
var Default = Policy{}

// Marshal encodes v using the shared policy.
func (Policy) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data into v using the shared policy.
func (Policy) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Envelope is the wire representation of a tagged union: a case discriminator
// plus its fields, matching spec.md §4.D's "{case, fields}" requirement.
type Envelope struct {
	Case   string          `json:"case"`
	Fields json.RawMessage `json:"fields"`
}

// EncodeTagged wraps a payload as a {case, fields} envelope.
func (p Policy) EncodeTagged(caseName string, payload any) ([]byte, error) {
	fields, err := p.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return p.Marshal(Envelope{Case: caseName, Fields: fields})
}

// DecodeTagged unwraps a {case, fields} envelope, returning the case name
// and the still-encoded fields for the caller to decode into its concrete type.
func (p Policy) DecodeTagged(data []byte) (string, json.RawMessage, error) {
	var env Envelope
	if err := p.Unmarshal(data, &env); err != nil {
		return "", nil, err
	}
	return env.Case, env.Fields, nil
}
