package prompt

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

const SchemaAlternatives = "alternative_suggestion"

const alternativesSystem = `You are a cybersecurity advisor recommending safer alternatives for enterprise software. You must produce one valid JSON object only (no markdown, no commentary) that follows the supplied schema.

Rules:
- Recommend at most 2 alternatives in the same category, ordered by confidence (highest first).
- Only recommend products with a demonstrably better public security posture: SOC 2, ISO 27001, transparent vulnerability disclosure, few or no known exploited vulnerabilities.
- confidence and recommendation_confidence are integers from 0 to 100.
- If you cannot confidently recommend anything, return an empty alternatives array and explain why in rationale.`

// AlternativesSchema is the shape expected from the suggestion call.
func AlternativesSchema() jsonschema.Definition {
	strs := &jsonschema.Definition{Type: jsonschema.String}
	alt := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"product":             {Type: jsonschema.String},
			"vendor":              {Type: jsonschema.String},
			"website":             {Type: jsonschema.String},
			"confidence":          {Type: jsonschema.Number},
			"rationale":           {Type: jsonschema.String},
			"security_advantage":  {Type: jsonschema.String},
			"security_highlights": {Type: jsonschema.Array, Items: strs},
			"trade_offs":          {Type: jsonschema.Array, Items: strs},
		},
		Required: []string{"product", "vendor", "confidence", "rationale"},
	}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"alternatives":              {Type: jsonschema.Array, Items: &alt},
			"recommendation_confidence": {Type: jsonschema.Number},
			"rationale":                 {Type: jsonschema.String},
			"note":                      {Type: jsonschema.String},
		},
		Required: []string{"alternatives"},
	}
}

// Alternatives builds the suggestion request for a classified entity.
func Alternatives(e assessment.ResolvedEntity, c assessment.TaxonomyClassification, kev assessment.KevStatus) ai.Request {
	functions := "general software functionality"
	if len(c.KeyFunctions) > 0 {
		functions = strings.Join(c.KeyFunctions, ", ")
	}
	risk := "No critical risk signals detected"
	if kev.Listed() {
		risk = fmt.Sprintf("Found in CISA KEV with %d exploited vulnerabilities", kev.Count)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "CURRENT PRODUCT: %s by %s\n", e.Product, e.Vendor)
	fmt.Fprintf(&sb, "CATEGORY: %s / %s\n", c.PrimaryCategory, c.PrimarySubcategory)
	fmt.Fprintf(&sb, "KEY FUNCTIONS: %s\n", functions)
	fmt.Fprintf(&sb, "DEPLOYMENT: %s\n", c.DeploymentModel)
	fmt.Fprintf(&sb, "DATA ACCESS: %s\n", c.DataAccess)
	fmt.Fprintf(&sb, "RISK SIGNALS: %s\n\n", risk)
	sb.WriteString("Recommend 1-2 SAFER alternatives with similar functionality, citing specific security advantages.")

	return ai.Request{
		Name:   SchemaAlternatives,
		System: alternativesSystem,
		Prompt: sb.String(),
		Schema: AlternativesSchema(),
	}
}
