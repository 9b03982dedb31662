package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// validator checks tool arguments against their JSON schema. Compiled
// schemas are cached by their serialized form.
type validator struct {
	cache sync.Map // map[string]*gojsonschema.Schema
}

func (v *validator) validate(schemaData map[string]any, argsJSON string) error {
	schema, err := v.compile(schemaData)
	if err != nil {
		return fmt.Errorf("invalid schema definition: %w", err)
	}

	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(argsJSON))
	if err != nil {
		return fmt.Errorf("validating arguments: %w", err)
	}
	if result.Valid() {
		return nil
	}

	descs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descs = append(descs, desc.String())
	}
	if len(descs) > 3 {
		descs = append(descs[:3], fmt.Sprintf("and %d more", len(descs)-3))
	}
	return fmt.Errorf("arguments rejected: %s", strings.Join(descs, "; "))
}

func (v *validator) compile(schemaData map[string]any) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(schemaData)
	if err != nil {
		return nil, err
	}
	key := string(raw)

	if cached, ok := v.cache.Load(key); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, err
	}
	v.cache.Store(key, schema)
	return schema, nil
}
