package apiv1

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// DefaultSpecPath is where the document lives relative to the project root.
const DefaultSpecPath = "docs/v1/openapi.yml"

// LoadSpec reads and validates the OpenAPI document served under /docs/api/v1.
func LoadSpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document %s: %w", path, err)
	}
	return doc, nil
}
