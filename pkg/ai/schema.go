package ai

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"google.golang.org/genai"
)

//go:embed schemas/planet.json
var planetSchema []byte

// PlanetSchema returns the built-in planet schema.
func PlanetSchema() json.RawMessage {
	out := make([]byte, len(planetSchema))
	copy(out, planetSchema)
	return out
}

// LoadSchema reads a JSON schema file. An empty path selects PlanetSchema.
func LoadSchema(path string) (json.RawMessage, error) {
	if path == "" {
		return PlanetSchema(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("schema %s is not valid JSON", path)
	}
	return data, nil
}

// jsonSchema is the subset of JSON Schema the model API understands.
type jsonSchema struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Comment     string                 `json:"$comment"`
	Type        string                 `json:"type"`
	Properties  map[string]*jsonSchema `json:"properties"`
	Items       *jsonSchema            `json:"items"`
	Required    []string               `json:"required"`
	Enum        []string               `json:"enum"`
}

// SchemaTitle returns the schema's title, or "schema" when it has none.
func SchemaTitle(schema json.RawMessage) string {
	var s jsonSchema
	if err := json.Unmarshal(schema, &s); err != nil || s.Title == "" {
		return "schema"
	}
	return s.Title
}

// ToGenaiSchema converts a JSON schema document into a response schema.
func ToGenaiSchema(schema json.RawMessage) (*genai.Schema, error) {
	var s jsonSchema
	if err := json.Unmarshal(schema, &s); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return convertSchema(&s, "$")
}

func convertSchema(s *jsonSchema, path string) (*genai.Schema, error) {
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
	}
	if out.Description == "" {
		out.Description = s.Comment
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
		if len(s.Properties) > 0 {
			out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		}
		for name, p := range s.Properties {
			ps, err := convertSchema(p, path+"."+name)
			if err != nil {
				return nil, err
			}
			out.Properties[name] = ps
		}
	case "array":
		out.Type = genai.TypeArray
		if s.Items == nil {
			return nil, fmt.Errorf("schema %s: array without items", path)
		}
		items, err := convertSchema(s.Items, path+"[]")
		if err != nil {
			return nil, err
		}
		out.Items = items
	case "string":
		out.Type = genai.TypeString
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("schema %s: unsupported type %q", path, s.Type)
	}
	return out, nil
}
