package assess

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/bryanwahyu/trustbrief/internal/application"
	aiapp "github.com/bryanwahyu/trustbrief/internal/application/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/prompt"
)

type entityOutput struct {
	Product          string   `json:"product"`
	Vendor           string   `json:"vendor"`
	Website          string   `json:"website"`
	Confidence       float64  `json:"confidence"`
	Reasoning        string   `json:"reasoning"`
	AlternativeNames []string `json:"alternative_names"`
}

// Resolver turns free-text input into a ResolvedEntity plus the sources and
// KEV status gathered for it.
type Resolver struct {
	AI       *aiapp.Service
	Cache    assessment.Cache
	Prober   assessment.Prober
	KEV      assessment.KEVChecker
	Clock    application.Clock
	TTL      time.Duration
	Observer Observer
}

// Resolve is cache-first. A fresh hit returns without any model or network
// call; a miss, stale entry or forced refresh resolves again and caches the
// new record.
func (r *Resolver) Resolve(ctx context.Context, raw string, forceRefresh bool) (*assessment.EntityRecord, error) {
	if err := assessment.CheckInput(raw); err != nil {
		return nil, err
	}
	key := assessment.CacheKey(raw)
	rec, cached, err := r.lookup(ctx, raw, key, forceRefresh)
	if err != nil || cached {
		return rec, err
	}
	if err := r.Cache.PutEntity(ctx, key, rec); err != nil {
		slog.Error("cache entity write failed", "key", key, "error", err)
	}
	return rec, nil
}

// lookup returns a usable cached record, or resolves one without writing it.
func (r *Resolver) lookup(ctx context.Context, raw, key string, forceRefresh bool) (*assessment.EntityRecord, bool, error) {
	if !forceRefresh {
		rec, err := r.Cache.GetEntity(ctx, key)
		switch {
		case err == nil && !assessment.IsStale(rec.CreatedAt, r.TTL, r.Clock.Now()):
			r.observeLookup("hit")
			return rec, true, nil
		case err == nil:
			r.observeLookup("stale")
		case errors.Is(err, assessment.ErrCacheMiss):
			r.observeLookup("miss")
		default:
			r.observeLookup("error")
			slog.Warn("cache entity read failed", "key", key, "error", err)
		}
	}

	rec, err := r.resolve(ctx, raw, key)
	return rec, false, err
}

func (r *Resolver) resolve(ctx context.Context, raw, key string) (*assessment.EntityRecord, error) {
	input := strings.TrimSpace(raw)
	hint := ""
	if assessment.LooksLikeURL(input) {
		hint = assessment.HostOf(input)
	}

	out, err := aiapp.Decode[entityOutput](ctx, r.AI, prompt.Entity(input, hint))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Product) == "" {
		return nil, &ai.ShapeError{Schema: prompt.SchemaEntity, Path: "product", Expected: "non-empty string", Got: "empty string"}
	}

	now := r.Clock.Now()
	entity := assessment.ResolvedEntity{
		Product:          strings.TrimSpace(out.Product),
		Vendor:           strings.TrimSpace(out.Vendor),
		Website:          strings.TrimSpace(out.Website),
		Confidence:       score(out.Confidence),
		Reasoning:        out.Reasoning,
		AlternativeNames: out.AlternativeNames,
		ResolvedAt:       now,
	}
	if entity.Website == "" && hint != "" {
		entity.Website = "https://" + hint
	}

	rec := &assessment.EntityRecord{
		Input:     input,
		Key:       key,
		Entity:    entity,
		Sources:   []assessment.DiscoveredSource{},
		Kev:       assessment.KevStatus{State: assessment.KevUnknown, CheckedAt: now},
		CreatedAt: now,
	}

	// confidence rendah: jangan probe vendor yang belum tentu benar
	if entity.Confidence < minConfidence {
		slog.Info("skip source discovery, low resolution confidence", "input", input, "confidence", entity.Confidence)
		rec.Kev.Error = "entity resolution confidence too low"
		return rec, nil
	}

	if host := assessment.HostOf(entity.Website); host != "" {
		report := r.Prober.Probe(ctx, host)
		rec.Sources = report.Sources
		rec.Attempts = report.Attempts
	}
	rec.Kev = r.KEV.Check(ctx, entity.Vendor, entity.Product)

	slog.Info("entity resolved",
		"input", input,
		"product", entity.Product,
		"vendor", entity.Vendor,
		"confidence", entity.Confidence,
		"sources", len(rec.Sources),
		"kev", rec.Kev.State,
	)
	return rec, nil
}

func (r *Resolver) observeLookup(result string) {
	if r.Observer != nil {
		r.Observer.ObserveCacheLookup("entity", result)
	}
}
