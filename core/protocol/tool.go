package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Tool describes a function the model may call. Parameters is a JSON Schema
// document.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// NewTool creates a tool whose parameter schema is reflected from T.
func NewTool[T any](name, description string) (Tool, error) {
	reflector := jsonschema.Reflector{DoNotReference: true, Anonymous: true}

	var params T
	var schema *jsonschema.Schema
	if t := reflect.TypeOf(params); t != nil && t.Kind() == reflect.Ptr {
		schema = reflector.ReflectFromType(t.Elem())
	} else {
		schema = reflector.Reflect(params)
	}
	schema.Version = ""

	parameters, err := schema.MarshalJSON()
	if err != nil {
		return Tool{}, fmt.Errorf("failed to marshal parameters schema for tool %q: %w", name, err)
	}

	return Tool{Name: name, Description: description, Parameters: parameters}, nil
}
