package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	procschema "github.com/Paintersrp/procsup/schema"
)

// validateAgainstSchema checks the raw YAML document before it is decoded
// into Config, so unknown keys and wrong types are reported by location.
func validateAgainstSchema(doc map[string]any) error {
	normalized, err := normalizeForSchema(doc)
	if err != nil {
		return fmt.Errorf("prepare config for schema validation: %w", err)
	}
	if err := procschema.Config.Validate(normalized); err != nil {
		return fmt.Errorf("schema validation failed:\n%w", err)
	}
	return nil
}

// normalizeForSchema round-trips doc through JSON so YAML scalars take the
// shapes the schema validator expects.
func normalizeForSchema(doc map[string]any) (any, error) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(doc); err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(buf)
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
