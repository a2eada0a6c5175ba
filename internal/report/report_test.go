package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
)

var created = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func slackAssessment() *assessment.Assessment {
	sec := "Slack security practices"
	return &assessment.Assessment{
		Input:  "Slack",
		Entity: assessment.ResolvedEntity{Product: "Slack", Vendor: "Salesforce", Website: "https://slack.com", Confidence: 95},
		Sources: []assessment.DiscoveredSource{
			{Kind: assessment.SourceSecurityPage, URL: "https://slack.com/security", Outcome: assessment.OutcomeFound, Label: assessment.LabelVendorStated, Content: &sec},
		},
		Kev: assessment.KevStatus{State: assessment.KevClear},
		Classification: assessment.TaxonomyClassification{
			PrimaryCategory:    "Communication & Collaboration",
			PrimarySubcategory: "Team Chat/Messaging",
			DeploymentModel:    assessment.DeploymentSaaS,
			DataAccess:         assessment.DataAccessHigh,
			EvidenceBasis:      assessment.BasisVendorStated,
			Confidence:         88,
			KeyFunctions:       []string{"Messaging", "File sharing"},
		},
		Suggestions: assessment.Suggestions{
			Alternatives: []assessment.Alternative{
				{Product: "Mattermost", Vendor: "Mattermost Inc", Confidence: 80, Rationale: "Self-hostable", Highlights: []string{"Self-hosted deployment"}},
			},
			RecommendationConfidence: 75,
			Recommendation:           "Consider Mattermost",
		},
		EvidenceQuality: assessment.EvidenceQuality{Quality: "limited", SourcesFound: 1, VendorSources: 1},
		Cache:           assessment.CacheMeta{Key: "k-slack", CreatedAt: created, TTLDays: 7, Provenance: assessment.ProvenanceMiss},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat(" Brief ")
	require.NoError(t, err)
	assert.Equal(t, FormatBrief, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, slackAssessment(), FormatText))
	out := buf.String()

	assert.Contains(t, out, "Product:          Slack")
	assert.Contains(t, out, "Primary Category: Communication & Collaboration")
	assert.Contains(t, out, "Evidence Basis:   VENDOR-STATED")
	assert.Contains(t, out, "Data retention issues")
	assert.Contains(t, out, "https://slack.com/security")
	assert.Contains(t, out, "ALTERNATIVE 1: Mattermost by Mattermost Inc")
	assert.Contains(t, out, "Recommendation: Consider Mattermost")
	assert.Contains(t, out, "Cache key:   k-slack (miss)")
}

func TestTextWithoutAlternatives(t *testing.T) {
	a := slackAssessment()
	a.Suggestions = assessment.Suggestions{Note: "Insufficient public evidence to recommend alternatives"}

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, a))
	assert.Contains(t, buf.String(), "No alternatives recommended")
	assert.Contains(t, buf.String(), "Insufficient public evidence")
}

func TestBrief(t *testing.T) {
	a := slackAssessment()
	var buf bytes.Buffer
	require.NoError(t, Brief(&buf, a))
	out := buf.String()
	assert.Contains(t, out, "Slack by Salesforce")
	assert.Contains(t, out, "[ok] CISA KEV")
	assert.Contains(t, out, "[!] Independent Evidence: 0 sources")
	assert.Contains(t, out, "Mattermost by Mattermost Inc (80% confidence)")
	assert.Contains(t, out, "Why: Self-hosted deployment")

	a.Kev = assessment.KevStatus{State: assessment.KevListed, Count: 2}
	buf.Reset()
	require.NoError(t, Brief(&buf, a))
	assert.Contains(t, buf.String(), "[!] CISA KEV: 2 known exploited")
}

func TestJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, slackAssessment(), FormatJSON))

	var back assessment.Assessment
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "Slack", back.Entity.Product)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  "))
}

func TestComparisonAndVerdict(t *testing.T) {
	left := slackAssessment()
	right := slackAssessment()
	right.Input = "Teams"
	right.Entity.Product = "Microsoft Teams"
	right.Kev = assessment.KevStatus{State: assessment.KevListed, Count: 3}

	c := &assessment.Comparison{Left: left, Right: right}
	var buf bytes.Buffer
	require.NoError(t, Comparison(&buf, c))
	out := buf.String()
	assert.Contains(t, out, "Dimension")
	assert.Contains(t, out, "LISTED (3 entries)")
	assert.Contains(t, out, "Slack appears safer")

	right.Kev = assessment.KevStatus{State: assessment.KevClear}
	right.EvidenceQuality.Quality = "good"
	assert.Contains(t, Verdict(c), "Microsoft Teams has better evidence quality")

	right.EvidenceQuality.Quality = "limited"
	assert.Equal(t, "Both products show similar risk profiles", Verdict(c))
}

func TestEntriesAndRuns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Entries(&buf, nil, created))
	assert.Contains(t, buf.String(), "No cached assessments")

	buf.Reset()
	entries := []assessment.CacheEntry{
		{Key: "k1", Product: "Slack", Category: "Communication & Collaboration", Quality: "limited", CreatedAt: created.Add(-3 * time.Hour)},
		{Key: "k2", Input: "zoom", Quality: "good", CreatedAt: created.Add(-9 * 24 * time.Hour), Stale: true},
	}
	require.NoError(t, Entries(&buf, entries, created))
	assert.Contains(t, buf.String(), "3h ago")
	assert.Contains(t, buf.String(), "9d ago (stale)")
	assert.Contains(t, buf.String(), "zoom")

	buf.Reset()
	runs := []*history.Run{{Input: "Slack", Status: history.StatusFailed, FailedStage: "classify", DurationMS: 12, CreatedAt: created}}
	require.NoError(t, Runs(&buf, runs))
	assert.Contains(t, buf.String(), "classify")
	assert.Contains(t, buf.String(), "12ms")
}

func TestAge(t *testing.T) {
	assert.Equal(t, "0h ago", Age(-time.Minute))
	assert.Equal(t, "5h ago", Age(5*time.Hour+10*time.Minute))
	assert.Equal(t, "2d ago", Age(50*time.Hour))
}
