package assess

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bryanwahyu/trustbrief/internal/application"
	aiapp "github.com/bryanwahyu/trustbrief/internal/application/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/prompt"
)

const maxAlternatives = 2

type alternativeOutput struct {
	Product           string   `json:"product"`
	Vendor            string   `json:"vendor"`
	Website           string   `json:"website"`
	Confidence        float64  `json:"confidence"`
	Rationale         string   `json:"rationale"`
	SecurityAdvantage string   `json:"security_advantage"`
	Highlights        []string `json:"security_highlights"`
	TradeOffs         []string `json:"trade_offs"`
}

type suggestionOutput struct {
	Alternatives             []alternativeOutput `json:"alternatives"`
	RecommendationConfidence float64             `json:"recommendation_confidence"`
	Rationale                string              `json:"rationale"`
	Note                     string              `json:"note"`
}

// Suggester proposes up to two safer alternatives in the same category.
type Suggester struct {
	AI    *aiapp.Service
	Clock application.Clock
}

// Suggest makes no model call when the classification failed closed.
func (s *Suggester) Suggest(ctx context.Context, e assessment.ResolvedEntity, c assessment.TaxonomyClassification, kev assessment.KevStatus) (*assessment.Suggestions, error) {
	if c.Insufficient() {
		out := &assessment.Suggestions{
			Alternatives: []assessment.Alternative{},
			Rationale:    "Insufficient public evidence to recommend alternatives",
			Note:         "Classification failed closed; no alternatives were requested",
			SuggestedAt:  s.Clock.Now(),
		}
		out.Recommendation = Recommend(kev, *out)
		return out, nil
	}

	raw, err := aiapp.Decode[suggestionOutput](ctx, s.AI, prompt.Alternatives(e, c, kev))
	if err != nil {
		return nil, err
	}

	alts := make([]assessment.Alternative, 0, len(raw.Alternatives))
	for _, a := range raw.Alternatives {
		name := strings.TrimSpace(a.Product)
		if name == "" {
			continue
		}
		alts = append(alts, assessment.Alternative{
			Product:           name,
			Vendor:            strings.TrimSpace(a.Vendor),
			Website:           strings.TrimSpace(a.Website),
			Confidence:        score(a.Confidence),
			Rationale:         a.Rationale,
			SecurityAdvantage: a.SecurityAdvantage,
			Highlights:        a.Highlights,
			TradeOffs:         a.TradeOffs,
		})
	}
	sort.SliceStable(alts, func(i, j int) bool { return alts[i].Confidence > alts[j].Confidence })
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}

	out := &assessment.Suggestions{
		Alternatives:             alts,
		RecommendationConfidence: score(raw.RecommendationConfidence),
		Rationale:                raw.Rationale,
		Note:                     raw.Note,
		SuggestedAt:              s.Clock.Now(),
	}
	out.Recommendation = Recommend(kev, *out)
	slog.Info("alternatives suggested", "product", e.Product, "count", len(alts), "confidence", out.RecommendationConfidence)
	return out, nil
}

// Recommend derives the one-line switching advice shown with an assessment.
func Recommend(kev assessment.KevStatus, s assessment.Suggestions) string {
	if s.RecommendationConfidence < minConfidence || len(s.Alternatives) == 0 {
		return "Insufficient evidence to recommend switching. Current product may be appropriate."
	}
	top := s.Alternatives[0]
	if kev.Listed() {
		return fmt.Sprintf("Consider switching to %s - current product has %d CISA KEV entries. Alternative shows stronger security posture.", top.Product, kev.Count)
	}
	if top.Confidence > 70 {
		basis := top.SecurityAdvantage
		if basis == "" {
			basis = "strong evidence basis"
		}
		return fmt.Sprintf("%s recommended - better security track record: %s.", top.Product, strings.TrimSuffix(basis, "."))
	}
	return "Review alternatives carefully. Both current and suggested products have trade-offs."
}
