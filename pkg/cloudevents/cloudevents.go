// Package cloudevents implements the CloudEvents v1.0 command ingress
// (component G): envelope validation, schema-driven aggregate extraction,
// and the HTTP surface for both the synchronous and queued delivery modes.
package cloudevents

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jade/eventcore/pkg/schema"
)

// CloudEvent is the v1.0 subset this ingress accepts: the required
// envelope attributes, the optional ones it reads, structured JSON data,
// and the jade extension carrying correlation/causation/user/tenant.
type CloudEvent struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	SpecVersion     string          `json:"specversion"`
	Type            string          `json:"type"`
	DataContentType string          `json:"datacontenttype,omitempty"`
	DataSchema      string          `json:"dataschema,omitempty"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
	Jade            *JadeExtension  `json:"jade,omitempty"`
}

// JadeExtension is this system's CloudEvents extension attribute, carrying
// the fields pkg/metadata.Envelope needs but the base spec doesn't define.
type JadeExtension struct {
	CorrelationID string `json:"correlationid,omitempty"`
	CausationID   string `json:"causationid,omitempty"`
	UserID        string `json:"userid,omitempty"`
	TenantID      string `json:"tenantid,omitempty"`
}

// EnvelopeInvalid reports a CloudEvents v1.0 envelope validation failure.
type EnvelopeInvalid struct {
	Reason string
}

func (e *EnvelopeInvalid) Error() string { return "cloudevents: envelope invalid: " + e.Reason }

const specVersion1_0 = "1.0"

// Validate checks the required attributes and returns the schema URN's
// aggregate segment extracted from dataschema. Per spec: id/source/type/
// specversion non-empty, specversion exactly "1.0", dataschema present and
// matching the command URN grammar, data present.
func Validate(ce CloudEvent) (aggregate string, urn schema.URN, err error) {
	if ce.ID == "" {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: "id is required"}
	}
	if ce.Source == "" {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: "source is required"}
	}
	if ce.Type == "" {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: "type is required"}
	}
	if ce.SpecVersion != specVersion1_0 {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: fmt.Sprintf("specversion must be %q, got %q", specVersion1_0, ce.SpecVersion)}
	}
	if ce.DataSchema == "" {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: "dataschema is required"}
	}

	parsed, perr := schema.Parse(ce.DataSchema)
	if perr != nil || parsed.Kind != schema.Command {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: fmt.Sprintf("dataschema %q is not a valid command schema urn", ce.DataSchema)}
	}

	if len(ce.Data) == 0 {
		return "", schema.URN{}, &EnvelopeInvalid{Reason: "data is required"}
	}

	return parsed.Aggregate, parsed, nil
}
