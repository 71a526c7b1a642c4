package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema returns the JSON Schema a payload of this node type must satisfy.
func (t NodeType) Schema() map[string]any {
	switch t {
	case NodeTypeMessage:
		return map[string]any{
			"type":  "object",
			"title": "Message",
			"properties": map[string]any{
				"text": map[string]any{
					"type":        "string",
					"description": "Message sent to the user",
				},
			},
			"additionalProperties": false,
		}
	default:
		return nil
	}
}

// ValidatePayload checks a raw payload against the node type schema.
func (t NodeType) ValidatePayload(payload map[string]any) error {
	schema := t.Schema()
	if schema == nil {
		return fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}

	if payload == nil {
		return nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(payload))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
