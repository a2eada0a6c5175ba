package assess

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bryanwahyu/trustbrief/internal/application"
	aiapp "github.com/bryanwahyu/trustbrief/internal/application/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/prompt"
)

const maxSecondary = 2

type taxonomyOutput struct {
	PrimaryCategory    string                   `json:"primary_category"`
	PrimarySubcategory string                   `json:"primary_subcategory"`
	Secondary          []assessment.CategoryRef `json:"secondary_categories"`
	DeploymentModel    string                   `json:"deployment_model"`
	DataAccess         string                   `json:"data_access_level"`
	Confidence         float64                  `json:"confidence"`
	Reasoning          string                   `json:"reasoning"`
	KeyFunctions       []string                 `json:"key_functions"`
	Citations          []string                 `json:"source_citations"`
}

// Classifier places a resolved entity in the fixed taxonomy.
type Classifier struct {
	AI    *aiapp.Service
	Clock application.Clock
}

// Classify fails closed: a weakly resolved entity, or a low-confidence answer
// with no supporting sources, yields the Insufficient Evidence classification
// rather than an error.
func (c *Classifier) Classify(ctx context.Context, e assessment.ResolvedEntity, sources []assessment.DiscoveredSource, kev assessment.KevStatus) (*assessment.TaxonomyClassification, error) {
	if e.Confidence < minConfidence {
		return c.insufficient("Cannot classify - entity resolution confidence too low"), nil
	}

	out, err := aiapp.Decode[taxonomyOutput](ctx, c.AI, prompt.Taxonomy(e, sources, kev))
	if err != nil {
		return nil, err
	}

	conf := score(out.Confidence)
	basis := assessment.DeriveBasis(sources, kev)
	if basis == assessment.BasisInsufficient && conf < minConfidence {
		reason := strings.TrimSpace(out.Reasoning)
		if reason == "" {
			reason = "Insufficient public evidence"
		}
		return c.insufficient(reason), nil
	}

	category, sub := canonicalPair(out.PrimaryCategory, out.PrimarySubcategory)
	if category == "" {
		slog.Warn("model category outside taxonomy", "product", e.Product, "category", out.PrimaryCategory, "subcategory", out.PrimarySubcategory)
		category = strings.TrimSpace(out.PrimaryCategory)
	}

	cls := &assessment.TaxonomyClassification{
		PrimaryCategory:    category,
		PrimarySubcategory: sub,
		Secondary:          secondary(out.Secondary, category, sub),
		DeploymentModel:    deploymentModel(out.DeploymentModel),
		DataAccess:         dataAccess(out.DataAccess),
		EvidenceBasis:      basis,
		Confidence:         conf,
		Reasoning:          out.Reasoning,
		KeyFunctions:       out.KeyFunctions,
		Citations:          out.Citations,
		ClassifiedAt:       c.Clock.Now(),
	}
	slog.Info("entity classified", "product", e.Product, "category", cls.PrimaryCategory, "subcategory", cls.PrimarySubcategory, "basis", basis, "confidence", conf)
	return cls, nil
}

func (c *Classifier) insufficient(reason string) *assessment.TaxonomyClassification {
	return &assessment.TaxonomyClassification{
		PrimaryCategory:    assessment.InsufficientEvidence,
		PrimarySubcategory: assessment.InsufficientEvidence,
		Secondary:          []assessment.CategoryRef{},
		DeploymentModel:    assessment.DeploymentUnknown,
		DataAccess:         assessment.DataAccessHigh,
		EvidenceBasis:      assessment.BasisInsufficient,
		Confidence:         0,
		Reasoning:          reason,
		ClassifiedAt:       c.Clock.Now(),
	}
}

// canonicalPair snaps names onto the taxonomy. A known subcategory decides
// its category. category is "" when neither name is recognised.
func canonicalPair(category, sub string) (string, string) {
	if cat, s, ok := assessment.CanonicalSubcategory(sub); ok {
		return cat, s
	}
	if cat, ok := assessment.CanonicalCategory(category); ok {
		return cat, strings.TrimSpace(sub)
	}
	return "", strings.TrimSpace(sub)
}

func secondary(refs []assessment.CategoryRef, primary, primarySub string) []assessment.CategoryRef {
	out := []assessment.CategoryRef{}
	for _, r := range refs {
		cat, sub := canonicalPair(r.Category, r.Subcategory)
		if cat == "" || (cat == primary && sub == primarySub) {
			continue
		}
		out = append(out, assessment.CategoryRef{Category: cat, Subcategory: sub})
		if len(out) == maxSecondary {
			break
		}
	}
	return out
}

func deploymentModel(s string) assessment.DeploymentModel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "saas", "cloud", "cloud-based":
		return assessment.DeploymentSaaS
	case "on-prem", "on-premise", "on-premises", "self-hosted":
		return assessment.DeploymentOnPrem
	case "hybrid":
		return assessment.DeploymentHybrid
	default:
		return assessment.DeploymentUnknown
	}
}

// dataAccess treats anything unrecognised as high.
func dataAccess(s string) assessment.DataAccessLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return assessment.DataAccessLow
	case "medium":
		return assessment.DataAccessMedium
	default:
		return assessment.DataAccessHigh
	}
}
