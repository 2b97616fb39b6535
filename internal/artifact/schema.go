package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchema only constrains the envelope. Section values are not typed
// here: a null or non-string section is skipped by parsePayload, it does not
// void the sections next to it.
var payloadSchema = mustCompilePayloadSchema()

func mustCompilePayloadSchema() *gojsonschema.Schema {
	raw, err := json.Marshal(map[string]any{
		"type":     "object",
		"required": []string{"files"},
		"properties": map[string]any{
			"files": map[string]any{"type": "object"},
		},
	})
	if err != nil {
		panic(fmt.Sprintf("artifact: marshal payload schema: %v", err))
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("artifact: compile payload schema: %v", err))
	}
	return schema
}

// validatePayload checks a decoded payload against payloadSchema.
func validatePayload(doc map[string]any) error {
	result, err := payloadSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("payload does not match schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
