package prompt

import (
	"fmt"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
)

const SchemaEntity = "entity_resolution"

const resolverSystem = `You identify software products for a security review. You must produce one valid JSON object only (no markdown, no commentary) that follows the supplied schema. Do not include code fences.

Requirements:
- Output must be a single JSON object describing exactly ONE product, never a list.
- confidence is an integer from 0 to 100.
- website is the vendor's primary site as an absolute https URL.
- If you cannot identify the product confidently, set confidence below 50 and explain why in reasoning.`

// EntitySchema is the shape expected from the resolution call.
func EntitySchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"product":           {Type: jsonschema.String, Description: "Official product name"},
			"vendor":            {Type: jsonschema.String, Description: "Company that makes it"},
			"website":           {Type: jsonschema.String, Description: "Primary vendor website URL"},
			"confidence":        {Type: jsonschema.Number, Description: "0-100"},
			"reasoning":         {Type: jsonschema.String},
			"alternative_names": {Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.String}},
		},
		Required: []string{"product", "vendor", "website", "confidence"},
	}
}

// Entity builds the resolution request. domain is an optional hint extracted
// from URL-shaped input.
func Entity(input, domain string) ai.Request {
	user := fmt.Sprintf("Given this input: %q\n", input)
	if domain != "" {
		user += fmt.Sprintf("Extracted domain: %s\n", domain)
	}
	user += "\nIdentify the SOFTWARE PRODUCT and the VENDOR company that makes it."
	return ai.Request{
		Name:   SchemaEntity,
		System: resolverSystem,
		Prompt: user,
		Schema: EntitySchema(),
	}
}
