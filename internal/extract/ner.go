package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Entity is one hit from the external NER collaborator. The collaborator is
// optional; when absent or invalid the extractors run regex-only.
type Entity struct {
	Text      string `json:"text"`
	Label     string `json:"label"` // PER | ORG | LOC | DATE | MONEY
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// entitySchema is the collaborator's output contract. Payloads that do not
// match are rejected wholesale rather than partially trusted.
const entitySchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["text", "label", "start_char", "end_char"],
    "additionalProperties": true,
    "properties": {
      "text": {"type": "string", "minLength": 1},
      "label": {"type": "string", "enum": ["PER", "ORG", "LOC", "DATE", "MONEY"]},
      "start_char": {"type": "integer", "minimum": 0},
      "end_char": {"type": "integer", "minimum": 0}
    }
  }
}`

var compiledEntitySchema = mustCompileSchema(entitySchema)

func mustCompileSchema(src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("entities.json", bytes.NewReader([]byte(src))); err != nil {
		panic(err)
	}
	return compiler.MustCompile("entities.json")
}

// ParseEntities validates a raw NER payload against the contract and decodes
// it. Any contract violation fails the whole payload.
func ParseEntities(raw []byte) ([]Entity, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("ner payload: decode: %w", err)
	}
	if err := compiledEntitySchema.Validate(v); err != nil {
		return nil, fmt.Errorf("ner payload does not match contract: %w", err)
	}
	var entities []Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("ner payload: decode entities: %w", err)
	}
	for _, e := range entities {
		if e.EndChar < e.StartChar {
			return nil, fmt.Errorf("ner payload: entity %q has end_char before start_char", e.Text)
		}
	}
	return entities, nil
}

// entitiesByLabel returns the texts of every entity with the given label, in
// document order.
func entitiesByLabel(entities []Entity, label string) []string {
	var out []string
	for _, e := range entities {
		if e.Label == label {
			out = append(out, e.Text)
		}
	}
	return out
}

func firstEntity(entities []Entity, label string) string {
	for _, e := range entities {
		if e.Label == label {
			return e.Text
		}
	}
	return ""
}
