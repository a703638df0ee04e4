package engine

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// ConfigJSONSchema returns the JSON schema describing the strategy
// configuration, used by the CLI to document the recognized options.
func ConfigJSONSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(DefaultConfig())

	jsonSchemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}
