package assessment

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyIdentity(t *testing.T) {
	want := CacheKey("slack")
	for _, v := range []string{"Slack", "  SLACK ", "\tslack\n", "sLaCk"} {
		assert.Equal(t, want, CacheKey(v), "variant %q", v)
	}
	assert.NotEqual(t, want, CacheKey("slack enterprise"))
	assert.Equal(t, CacheKey("google   drive"), CacheKey("Google Drive"))
	assert.True(t, IsCacheKey(want))
	assert.Len(t, want, 64)
}

func TestIsCacheKey(t *testing.T) {
	assert.False(t, IsCacheKey("abc"))
	assert.False(t, IsCacheKey(strings.Repeat("G", 64)))
	assert.False(t, IsCacheKey("../"+strings.Repeat("a", 61)))
	assert.True(t, IsCacheKey(strings.Repeat("0f", 32)))
}

func TestIsStale(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	week := 7 * 24 * time.Hour

	assert.False(t, IsStale(now.Add(-time.Hour), week, now))
	assert.False(t, IsStale(now.Add(-week), week, now), "exactly ttl old is still fresh")
	assert.True(t, IsStale(now.Add(-week-time.Second), week, now))
	assert.True(t, IsStale(now, 0, now), "zero ttl disables caching")
}

func TestCheckInput(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"Slack", nil},
		{"https://slack.com", nil},
		{`the "Slack" app`, nil},
		{"", ErrEmptyInput},
		{"   \n ", ErrEmptyInput},
		{strings.Repeat("x", MaxInputLength+1), ErrInputTooLong},
		{`"Slack" vs "Teams"`, ErrMultipleEntities},
		{"“Slack” or “Zoom”", ErrMultipleEntities},
		{"Slack\nZoom", ErrMultipleEntities},
		{"Slack\n\n", nil},
	}
	for _, tt := range tests {
		err := CheckInput(tt.in)
		if tt.want == nil {
			assert.NoError(t, err, tt.in)
			continue
		}
		assert.ErrorIs(t, err, tt.want, tt.in)
		assert.True(t, IsInputError(err))
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "slack.com", HostOf("https://Slack.com/security"))
	assert.Equal(t, "www.notion.so", HostOf("www.notion.so"))
	assert.Equal(t, "", HostOf("Unknown"))
	assert.Equal(t, "", HostOf("slack"))
	assert.Equal(t, "", HostOf(""))

	assert.True(t, LooksLikeURL("zoom.us"))
	assert.True(t, LooksLikeURL("http://example.org"))
	assert.False(t, LooksLikeURL("Microsoft Teams"))
}

func TestAssessEvidence(t *testing.T) {
	vendor := DiscoveredSource{Outcome: OutcomeFound, Label: LabelVendorStated}
	indep := DiscoveredSource{Outcome: OutcomeFound, Label: LabelIndependent}
	missed := DiscoveredSource{Outcome: OutcomeNotFound, Label: LabelVendorStated}
	listed := KevStatus{State: KevListed, Count: 2}

	assert.Equal(t, "insufficient", AssessEvidence(nil, KevStatus{State: KevUnknown}).Quality)
	assert.Equal(t, "limited", AssessEvidence([]DiscoveredSource{vendor, missed}, KevStatus{}).Quality)
	assert.Equal(t, "moderate", AssessEvidence([]DiscoveredSource{vendor, vendor, vendor}, KevStatus{}).Quality)

	q := AssessEvidence([]DiscoveredSource{vendor, vendor}, listed)
	assert.Equal(t, "good", q.Quality)
	assert.Equal(t, 3, q.SourcesFound)
	assert.Equal(t, 1, q.IndependentSources)

	assert.Equal(t, BasisMixed, DeriveBasis([]DiscoveredSource{vendor, indep}, KevStatus{}))
	assert.Equal(t, BasisIndependent, DeriveBasis(nil, listed))
	assert.Equal(t, BasisVendorStated, DeriveBasis([]DiscoveredSource{vendor}, KevStatus{State: KevClear}))
	assert.Equal(t, BasisInsufficient, DeriveBasis([]DiscoveredSource{missed}, KevStatus{}))
}

func TestTaxonomyLookup(t *testing.T) {
	name, ok := CanonicalCategory(" communication & collaboration ")
	assert.True(t, ok)
	assert.Equal(t, "Communication & Collaboration", name)

	cat, sub, ok := CanonicalSubcategory("team chat/messaging")
	assert.True(t, ok)
	assert.Equal(t, "Communication & Collaboration", cat)
	assert.Equal(t, "Team Chat/Messaging", sub)

	_, _, ok = CanonicalSubcategory("Quantum Toaster")
	assert.False(t, ok)

	assert.Equal(t, "high", RiskProfileFor("CRM System").DataSensitivity)
	assert.Equal(t, "medium", RiskProfileFor("Form/Survey").DataSensitivity)
}

func TestStageErrorTimeout(t *testing.T) {
	err := &StageError{Stage: StageClassify, Input: "Slack", Err: fmt.Errorf("model call: %w", context.DeadlineExceeded)}
	assert.True(t, err.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "classify stage failed")

	assert.False(t, (&StageError{Stage: StageResolve, Err: ErrCacheMiss}).Timeout())
}
