package assess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/trustbrief/internal/application"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
)

// Observer receives pipeline measurements. Every method must be safe for
// concurrent use.
type Observer interface {
	ObserveCacheLookup(kind, result string)
	ObserveStage(stage string, seconds float64, err error)
	ObservePipeline(status string, seconds float64)
}

// Timeouts bounds each pipeline stage.
type Timeouts struct {
	Resolve  time.Duration
	Classify time.Duration
	Suggest  time.Duration
}

// DefaultTimeouts are used for zero fields.
var DefaultTimeouts = Timeouts{
	Resolve:  2 * time.Minute,
	Classify: time.Minute,
	Suggest:  time.Minute,
}

// Service runs the four-stage assessment pipeline.
// Service is designed to be used concurrently and is thread-safe
type Service struct {
	Resolver   *Resolver
	Classifier *Classifier
	Suggester  *Suggester
	Cache      assessment.Cache
	History    history.Repository
	Notifier   assessment.Notifier
	Observer   Observer
	Clock      application.Clock
	TTL        time.Duration
	Timeouts   Timeouts
}

// Assess returns the trust brief for raw. A fresh cached assessment is returned
// as-is unless forceRefresh is set. Stages run in order; any failure returns a
// *assessment.StageError and nothing is written to the cache.
func (s *Service) Assess(ctx context.Context, raw string, forceRefresh bool) (*assessment.Assessment, error) {
	started := time.Now()
	input := strings.TrimSpace(raw)

	if err := assessment.CheckInput(raw); err != nil {
		serr := &assessment.StageError{Stage: assessment.StageInput, Input: input, Err: err}
		s.finish(ctx, started, &history.Run{Input: input, Status: history.StatusFailed, ForceRefresh: forceRefresh}, serr)
		return nil, serr
	}
	key := assessment.CacheKey(raw)
	run := &history.Run{CacheKey: key, Input: input, ForceRefresh: forceRefresh}

	provenance := assessment.ProvenanceMiss
	if forceRefresh {
		provenance = assessment.ProvenanceRefresh
	} else if a := s.cached(ctx, key); a != nil {
		run.Product = a.Entity.Product
		run.Status = history.StatusCached
		s.finish(ctx, started, run, nil)
		return a, nil
	}

	var (
		rec    *assessment.EntityRecord
		cached bool
		cls    *assessment.TaxonomyClassification
		sugg   *assessment.Suggestions
	)
	err := s.stage(ctx, assessment.StageResolve, input, s.timeouts().Resolve, func(ctx context.Context) (err error) {
		rec, cached, err = s.Resolver.lookup(ctx, raw, key, forceRefresh)
		return err
	})
	if err == nil {
		run.Product = rec.Entity.Product
		err = s.stage(ctx, assessment.StageClassify, input, s.timeouts().Classify, func(ctx context.Context) (err error) {
			cls, err = s.Classifier.Classify(ctx, rec.Entity, rec.Sources, rec.Kev)
			return err
		})
	}
	if err == nil {
		err = s.stage(ctx, assessment.StageSuggest, input, s.timeouts().Suggest, func(ctx context.Context) (err error) {
			sugg, err = s.Suggester.Suggest(ctx, rec.Entity, *cls, rec.Kev)
			return err
		})
	}
	if err != nil {
		run.Status = history.StatusFailed
		s.finish(ctx, started, run, err)
		return nil, err
	}

	a := &assessment.Assessment{
		Input:           input,
		Entity:          rec.Entity,
		Sources:         rec.Sources,
		Attempts:        rec.Attempts,
		Kev:             rec.Kev,
		Classification:  *cls,
		Suggestions:     *sugg,
		EvidenceQuality: assessment.AssessEvidence(rec.Sources, rec.Kev),
		Cache: assessment.CacheMeta{
			Key:        key,
			CreatedAt:  s.Clock.Now(),
			TTLDays:    int(s.TTL / (24 * time.Hour)),
			Provenance: provenance,
		},
	}
	s.commit(ctx, key, rec, cached, a)

	run.Status = history.StatusCompleted
	s.finish(ctx, started, run, nil)
	s.notify(ctx, a)
	return a, nil
}

// Compare assesses both inputs independently, even when they name the same
// product.
func (s *Service) Compare(ctx context.Context, left, right string, forceRefresh bool) (*assessment.Comparison, error) {
	l, err := s.Assess(ctx, left, forceRefresh)
	if err != nil {
		return nil, err
	}
	r, err := s.Assess(ctx, right, forceRefresh)
	if err != nil {
		return nil, err
	}
	return &assessment.Comparison{Left: l, Right: r, ComparedAt: s.Clock.Now()}, nil
}

// Get returns the cached assessment stored under key, stale or not.
func (s *Service) Get(ctx context.Context, key string) (*assessment.Assessment, error) {
	return s.Cache.GetAssessment(ctx, strings.ToLower(strings.TrimSpace(key)))
}

// Entries lists cached assessments, newest first.
func (s *Service) Entries(ctx context.Context) ([]assessment.CacheEntry, error) {
	all, err := s.Cache.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	out := make([]assessment.CacheEntry, 0, len(all))
	for _, a := range all {
		out = append(out, assessment.CacheEntry{
			Key:       a.Cache.Key,
			Input:     a.Input,
			Product:   a.Entity.Product,
			Vendor:    a.Entity.Vendor,
			Category:  a.Classification.PrimaryCategory,
			Quality:   a.EvidenceQuality.Quality,
			CreatedAt: a.Cache.CreatedAt,
			Stale:     assessment.IsStale(a.Cache.CreatedAt, s.TTL, now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	return s.Cache.Delete(ctx, strings.ToLower(strings.TrimSpace(key)))
}

func (s *Service) Clear(ctx context.Context) (int, error) {
	return s.Cache.Clear(ctx)
}

// Runs returns the most recent pipeline runs.
func (s *Service) Runs(ctx context.Context, limit int) ([]*history.Run, error) {
	if s.History == nil {
		return []*history.Run{}, nil
	}
	return s.History.Latest(ctx, limit)
}

func (s *Service) cached(ctx context.Context, key string) *assessment.Assessment {
	a, err := s.Cache.GetAssessment(ctx, key)
	switch {
	case err == nil && !assessment.IsStale(a.Cache.CreatedAt, s.TTL, s.Clock.Now()):
		s.observeLookup("hit")
		a.Cache.Provenance = assessment.ProvenanceHit
		return a
	case err == nil:
		s.observeLookup("stale")
	case errors.Is(err, assessment.ErrCacheMiss):
		s.observeLookup("miss")
	default:
		s.observeLookup("error")
		slog.Warn("cache read failed, recomputing", "key", key, "error", err)
	}
	return nil
}

// stage runs fn under its own deadline and wraps any failure.
func (s *Service) stage(ctx context.Context, name assessment.Stage, input string, timeout time.Duration, fn func(context.Context) error) error {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	t := time.Now()
	err := fn(sctx)
	if err != nil && errors.Is(sctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	if s.Observer != nil {
		s.Observer.ObserveStage(string(name), time.Since(t).Seconds(), err)
	}
	if err != nil {
		slog.Error("pipeline stage failed", "stage", name, "input", input, "error", err)
		return &assessment.StageError{Stage: name, Input: input, Err: err}
	}
	return nil
}

// commit writes the entity record and the assessment together. Failures are
// logged; the caller still gets the computed assessment.
func (s *Service) commit(ctx context.Context, key string, rec *assessment.EntityRecord, entityCached bool, a *assessment.Assessment) {
	wctx := context.WithoutCancel(ctx)
	if !entityCached {
		if err := s.Cache.PutEntity(wctx, key, rec); err != nil {
			slog.Error("cache entity write failed", "key", key, "error", err)
		}
	}
	if err := s.Cache.PutAssessment(wctx, key, a); err != nil {
		slog.Error("cache assessment write failed", "key", key, "error", err)
	}
}

func (s *Service) finish(ctx context.Context, started time.Time, run *history.Run, err error) {
	elapsed := time.Since(started)
	if s.Observer != nil {
		s.Observer.ObservePipeline(string(run.Status), elapsed.Seconds())
	}
	if s.History == nil {
		return
	}

	run.ID = uuid.New().String()
	run.DurationMS = elapsed.Milliseconds()
	run.CreatedAt = s.Clock.Now()
	var serr *assessment.StageError
	if errors.As(err, &serr) {
		run.FailedStage = string(serr.Stage)
		run.Error = serr.Err.Error()
	} else if err != nil {
		run.Error = err.Error()
	}
	if herr := s.History.Save(context.WithoutCancel(ctx), run); herr != nil {
		slog.Warn("history record failed", "input", run.Input, "error", herr)
	}
}

func (s *Service) notify(ctx context.Context, a *assessment.Assessment) {
	if s.Notifier == nil || !a.Kev.Listed() {
		return
	}
	if err := s.Notifier.Notify(context.WithoutCancel(ctx), a); err != nil {
		slog.Warn("kev notification failed", "product", a.Entity.Product, "error", err)
	}
}

func (s *Service) observeLookup(result string) {
	if s.Observer != nil {
		s.Observer.ObserveCacheLookup("assessment", result)
	}
}

func (s *Service) timeouts() Timeouts {
	t := s.Timeouts
	if t.Resolve <= 0 {
		t.Resolve = DefaultTimeouts.Resolve
	}
	if t.Classify <= 0 {
		t.Classify = DefaultTimeouts.Classify
	}
	if t.Suggest <= 0 {
		t.Suggest = DefaultTimeouts.Suggest
	}
	return t
}
