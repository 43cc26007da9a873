package models

import (
	"github.com/xeipuuv/gojsonschema"
)

// automationSchema is the structural contract one automation entry must meet
// before the typed decode runs. It deliberately checks shape only; the
// NodeConfig union enforces per-type config semantics afterwards.
const automationSchema = `{
	"type": "object",
	"required": ["id", "name"],
	"properties": {
		"id":   {"type": "string", "minLength": 1},
		"name": {"type": "string", "minLength": 1},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "type"],
				"properties": {
					"id":     {"type": "string", "minLength": 1},
					"type":   {"type": "string", "enum": ["trigger", "action", "delay", "condition", "note"]},
					"name":   {"type": "string"},
					"config": {"type": "object"}
				}
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["from", "to"],
				"properties": {
					"from":      {"type": "string", "minLength": 1},
					"from_port": {"type": "string", "enum": ["", "out", "true", "false"]},
					"to":        {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

var automationSchemaLoader = gojsonschema.NewStringLoader(automationSchema)

// ValidateAutomationJSON checks one raw automation entry against the document
// schema. A non-nil error means the entry must be dropped, not that loading fails.
func ValidateAutomationJSON(raw []byte) error {
	result, err := gojsonschema.Validate(automationSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return err
	}

	if !result.Valid() {
		return &SchemaError{Causes: result.Errors()}
	}

	return nil
}

// SchemaError reports why an automation entry failed schema validation.
type SchemaError struct {
	Causes []gojsonschema.ResultError
}

func (e *SchemaError) Error() string {
	if len(e.Causes) == 0 {
		return "automation entry failed schema validation"
	}

	return "automation entry failed schema validation: " + e.Causes[0].String()
}
