package assess

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/prompt"
)

func TestAssessSlackEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.Assess(ctx, "  Slack ", false)
	require.NoError(t, err)

	assert.Equal(t, "Slack", a.Entity.Product)
	assert.Equal(t, 95, a.Entity.Confidence)
	assert.Equal(t, "Communication & Collaboration", a.Classification.PrimaryCategory)
	assert.Equal(t, "Team Chat/Messaging", a.Classification.PrimarySubcategory)
	assert.Equal(t, assessment.BasisVendorStated, a.Classification.EvidenceBasis)
	assert.Equal(t, assessment.DeploymentSaaS, a.Classification.DeploymentModel)
	require.Len(t, a.Suggestions.Alternatives, 2)
	assert.Equal(t, "Microsoft Teams", a.Suggestions.Alternatives[0].Product)
	assert.Equal(t, "Mattermost", a.Suggestions.Alternatives[1].Product)
	assert.Equal(t, assessment.ProvenanceMiss, a.Cache.Provenance)
	assert.Equal(t, 7, a.Cache.TTLDays)
	assert.Equal(t, "limited", a.EvidenceQuality.Quality)
	assert.Equal(t, 3, h.model.total())

	key := assessment.CacheKey("slack")
	assert.Equal(t, key, a.Cache.Key)
	stored, err := h.store.GetAssessment(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Slack", stored.Entity.Product)
	_, err = h.store.GetEntity(ctx, key)
	require.NoError(t, err)

	require.Len(t, h.history.runs, 1)
	assert.Equal(t, history.StatusCompleted, h.history.runs[0].Status)
	assert.Equal(t, "Slack", h.history.runs[0].Product)
	assert.Empty(t, h.notifier.products, "kev clear sends no alert")
}

func TestAssessCacheHitMakesNoCalls(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)
	require.Equal(t, 3, h.model.total())

	h.clock.Advance(24 * time.Hour)
	second, err := h.svc.Assess(ctx, "SLACK", false)
	require.NoError(t, err)
	third, err := h.svc.Assess(ctx, "slack\t", false)
	require.NoError(t, err)

	assert.Equal(t, 3, h.model.total())
	assert.Equal(t, 1, h.prober.calls)
	assert.Equal(t, assessment.ProvenanceHit, second.Cache.Provenance)

	b2, _ := json.Marshal(second)
	b3, _ := json.Marshal(third)
	assert.Equal(t, string(b2), string(b3))
	assert.Equal(t, history.StatusCached, h.history.runs[2].Status)
}

func TestAssessForceRefreshCallsModel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)
	a, err := h.svc.Assess(ctx, "Slack", true)
	require.NoError(t, err)

	assert.Equal(t, 6, h.model.total())
	assert.Equal(t, 2, h.model.calls[prompt.SchemaEntity])
	assert.Equal(t, assessment.ProvenanceRefresh, a.Cache.Provenance)
}

func TestAssessStaleEntryIsRecomputed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)
	h.clock.Advance(ttl + time.Minute)

	a, err := h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)
	assert.Equal(t, 6, h.model.total())
	assert.Equal(t, assessment.ProvenanceMiss, a.Cache.Provenance)
	assert.True(t, a.Cache.CreatedAt.Equal(h.clock.Now()))
}

func TestAssessReusesFreshEntityRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Resolver.Resolve(ctx, "Slack", false)
	require.NoError(t, err)
	require.Equal(t, 1, h.model.total())

	_, err = h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)
	assert.Equal(t, 1, h.model.calls[prompt.SchemaEntity])
	assert.Equal(t, 1, h.prober.calls)
}

func TestAssessStageFailureWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.model.errs[prompt.SchemaAlternatives] = errBoom

	_, err := h.svc.Assess(ctx, "Slack", false)
	require.Error(t, err)

	var serr *assessment.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, assessment.StageSuggest, serr.Stage)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, serr.Timeout())

	key := assessment.CacheKey("Slack")
	_, err = h.store.GetAssessment(ctx, key)
	assert.ErrorIs(t, err, assessment.ErrCacheMiss)
	_, err = h.store.GetEntity(ctx, key)
	assert.ErrorIs(t, err, assessment.ErrCacheMiss)

	require.Len(t, h.history.runs, 1)
	assert.Equal(t, history.StatusFailed, h.history.runs[0].Status)
	assert.Equal(t, "suggest", h.history.runs[0].FailedStage)
}

func TestAssessListShapedOutputFailsResolve(t *testing.T) {
	h := newHarness(t)
	h.model.set(prompt.SchemaEntity, `[{"product":"Slack","vendor":"Salesforce","website":"https://slack.com","confidence":90}]`)

	_, err := h.svc.Assess(context.Background(), "Slack", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrModelShape)

	var serr *assessment.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, assessment.StageResolve, serr.Stage)
	assert.Equal(t, 0, h.prober.calls)
}

func TestAssessRejectsMultipleEntities(t *testing.T) {
	h := newHarness(t)

	for _, in := range []string{`"Slack" and "Zoom"`, "Slack\nZoom", "", "   "} {
		_, err := h.svc.Assess(context.Background(), in, false)
		var serr *assessment.StageError
		require.True(t, errors.As(err, &serr), in)
		assert.Equal(t, assessment.StageInput, serr.Stage)
		assert.True(t, assessment.IsInputError(err))
	}
	assert.Zero(t, h.model.total())
}

func TestAssessStageTimeout(t *testing.T) {
	h := newHarness(t)
	h.model.block = true
	h.svc.Timeouts = Timeouts{Resolve: 50 * time.Millisecond}

	_, err := h.svc.Assess(context.Background(), "Slack", false)
	var serr *assessment.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, assessment.StageResolve, serr.Stage)
	assert.True(t, serr.Timeout())
}

func TestAssessLowConfidenceFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.model.set(prompt.SchemaEntity, `{"product":"Frobnicator","vendor":"Unknown","website":"","confidence":30,"reasoning":"No idea"}`)

	a, err := h.svc.Assess(context.Background(), "frobnicator 9000", false)
	require.NoError(t, err)

	assert.Equal(t, 1, h.model.total(), "classify and suggest skip the model")
	assert.Equal(t, 0, h.prober.calls)
	assert.True(t, a.Classification.Insufficient())
	assert.Equal(t, assessment.DataAccessHigh, a.Classification.DataAccess)
	assert.Equal(t, assessment.DeploymentUnknown, a.Classification.DeploymentModel)
	assert.Empty(t, a.Suggestions.Alternatives)
	assert.Equal(t, assessment.KevUnknown, a.Kev.State)
	assert.Empty(t, a.Sources)
}

func TestAssessNotifiesOnKEVListing(t *testing.T) {
	h := newHarness(t)
	h.withKEV(assessment.KevStatus{State: assessment.KevListed, Count: 3})

	a, err := h.svc.Assess(context.Background(), "Slack", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Slack"}, h.notifier.products)
	assert.Equal(t, assessment.BasisMixed, a.Classification.EvidenceBasis)
	assert.Contains(t, a.Suggestions.Recommendation, "Consider switching to Microsoft Teams")

	// cache hits are not re-alerted
	_, err = h.svc.Assess(context.Background(), "Slack", false)
	require.NoError(t, err)
	assert.Len(t, h.notifier.products, 1)
}

func TestCompareSameEntity(t *testing.T) {
	h := newHarness(t)

	cmp, err := h.svc.Compare(context.Background(), "Slack", "slack", false)
	require.NoError(t, err)
	require.NotNil(t, cmp.Left)
	require.NotNil(t, cmp.Right)
	assert.NotSame(t, cmp.Left, cmp.Right)
	assert.Equal(t, cmp.Left.Entity.Product, cmp.Right.Entity.Product)
	assert.Equal(t, cmp.Left.Cache.Key, cmp.Right.Cache.Key)
}

func TestCompareStopsOnFailure(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Compare(context.Background(), "Slack", `"a" "b"`, false)
	var serr *assessment.StageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, assessment.StageInput, serr.Stage)
}

func TestCacheAdministration(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Assess(ctx, "Slack", false)
	require.NoError(t, err)

	entries, err := h.svc.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Slack", entries[0].Product)
	assert.False(t, entries[0].Stale)

	key := assessment.CacheKey("Slack")
	got, err := h.svc.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Slack", got.Input)

	require.NoError(t, h.svc.Delete(ctx, key))
	_, err = h.svc.Get(ctx, key)
	assert.ErrorIs(t, err, assessment.ErrCacheMiss)

	n, err := h.svc.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	runs, err := h.svc.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
