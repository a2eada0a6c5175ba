package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

const SchemaTaxonomy = "taxonomy_classification"

// excerptLen caps each source excerpt placed in the prompt.
const excerptLen = 500

const classifierSystem = `You are a cybersecurity expert classifying software for risk assessment. You must produce one valid JSON object only (no markdown, no commentary) that follows the supplied schema.

Requirements:
- Choose ONE primary category and subcategory from the taxonomy given by the user.
- List up to 2 secondary categories if the product has multiple functions.
- confidence is an integer from 0 to 100 reflecting evidence quality.
- deployment_model is one of: SaaS, on-prem, hybrid, unknown.
- data_access_level is one of: low, medium, high.
- If evidence is insufficient or contradictory, set confidence below 50 and say "Insufficient public evidence" in reasoning.`

// TaxonomySchema is the shape expected from the classification call.
func TaxonomySchema() jsonschema.Definition {
	ref := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"category":    {Type: jsonschema.String},
			"subcategory": {Type: jsonschema.String},
		},
		Required: []string{"category", "subcategory"},
	}
	strs := &jsonschema.Definition{Type: jsonschema.String}
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"primary_category":     {Type: jsonschema.String},
			"primary_subcategory":  {Type: jsonschema.String},
			"secondary_categories": {Type: jsonschema.Array, Items: &ref},
			"deployment_model":     {Type: jsonschema.String, Enum: []string{"SaaS", "on-prem", "hybrid", "unknown"}},
			"data_access_level":    {Type: jsonschema.String, Enum: []string{"low", "medium", "high"}},
			"confidence":           {Type: jsonschema.Number},
			"reasoning":            {Type: jsonschema.String},
			"key_functions":        {Type: jsonschema.Array, Items: strs},
			"source_citations":     {Type: jsonschema.Array, Items: strs},
		},
		Required: []string{"primary_category", "primary_subcategory", "deployment_model", "data_access_level", "confidence"},
	}
}

// Taxonomy builds the classification request from the resolved entity and
// whatever evidence the prober gathered.
func Taxonomy(e assessment.ResolvedEntity, sources []assessment.DiscoveredSource, kev assessment.KevStatus) ai.Request {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PRODUCT: %s\nVENDOR: %s\n\n", e.Product, e.Vendor)

	sb.WriteString("EVIDENCE FROM SOURCES:\n")
	n := 0
	for _, s := range sources {
		if s.Outcome != assessment.OutcomeFound || s.Content == nil {
			continue
		}
		fmt.Fprintf(&sb, "[%s - %s] %s...\n", strings.ToUpper(string(s.Label)), s.Kind, truncate(*s.Content, excerptLen))
		n++
	}
	if kev.Listed() {
		fmt.Fprintf(&sb, "[INDEPENDENT - CISA KEV] Product appears %d time(s) in the Known Exploited Vulnerabilities catalog\n", kev.Count)
		n++
	}
	if n == 0 {
		sb.WriteString("No source evidence available\n")
	}

	sb.WriteString("\nAVAILABLE TAXONOMY CATEGORIES:\n")
	sb.WriteString(TaxonomyText())
	return ai.Request{
		Name:   SchemaTaxonomy,
		System: classifierSystem,
		Prompt: sb.String(),
		Schema: TaxonomySchema(),
	}
}

// TaxonomyText renders the fixed taxonomy as an indented list.
func TaxonomyText() string {
	var sb strings.Builder
	for _, c := range assessment.Taxonomy {
		fmt.Fprintf(&sb, "  %s:\n", c.Name)
		for _, s := range c.Subcategories {
			fmt.Fprintf(&sb, "    - %s\n", s)
		}
	}
	return sb.String()
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
