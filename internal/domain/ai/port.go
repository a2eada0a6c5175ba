package ai

import (
	"context"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// Request is a schema-constrained prompt.
type Request struct {
	// Name identifies the schema, e.g. "entity_resolution".
	Name   string
	System string
	Prompt string
	Schema jsonschema.Definition
}

// Client returns the raw text the model produced for req. It must not
// interpret the output; shape validation happens in the application layer.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
