package assessment

import (
	"time"
)

// SourceKind enum
type SourceKind string

const (
	SourceSecurityPage   SourceKind = "security_page"
	SourcePSIRTPage      SourceKind = "psirt_page"
	SourceTermsOfService SourceKind = "terms_of_service"
	SourcePrivacyPolicy  SourceKind = "privacy_policy"
)

// SourceKinds is the fixed probing order.
var SourceKinds = []SourceKind{
	SourceSecurityPage,
	SourcePSIRTPage,
	SourceTermsOfService,
	SourcePrivacyPolicy,
}

// FetchOutcome enum
type FetchOutcome string

const (
	OutcomeFound    FetchOutcome = "found"
	OutcomeNotFound FetchOutcome = "not_found"
	OutcomeError    FetchOutcome = "error"
)

// SourceLabel says who controls a source.
type SourceLabel string

const (
	LabelVendorStated SourceLabel = "vendor-stated"
	LabelIndependent  SourceLabel = "independent"
)

// ResolvedEntity is the canonical identity of the assessed product.
type ResolvedEntity struct {
	Product          string    `json:"product"`
	Vendor           string    `json:"vendor"`
	Website          string    `json:"website"`
	Confidence       int       `json:"confidence"`
	Reasoning        string    `json:"reasoning,omitempty"`
	AlternativeNames []string  `json:"alternative_names,omitempty"`
	ResolvedAt       time.Time `json:"resolved_at"`
}

// DiscoveredSource is a security-relevant page fetched from the vendor domain.
type DiscoveredSource struct {
	Kind      SourceKind   `json:"kind"`
	URL       string       `json:"url"`
	Outcome   FetchOutcome `json:"outcome"`
	Label     SourceLabel  `json:"label"`
	Content   *string      `json:"content"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// ProbeAttempt records a single template URL tried by the prober.
type ProbeAttempt struct {
	Kind       SourceKind   `json:"kind"`
	URL        string       `json:"url"`
	Outcome    FetchOutcome `json:"outcome"`
	StatusCode int          `json:"status_code,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// KevState enum
type KevState string

const (
	KevUnknown KevState = "unknown"
	KevClear   KevState = "clear"
	KevListed  KevState = "listed"
)

// KevMatch is one catalog entry matching the resolved product.
type KevMatch struct {
	CVEID             string `json:"cve_id"`
	VendorProject     string `json:"vendor_project"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerability_name"`
	DateAdded         string `json:"date_added,omitempty"`
	RequiredAction    string `json:"required_action,omitempty"`
}

// KevStatus value object
type KevStatus struct {
	State     KevState   `json:"state"`
	Count     int        `json:"count"`
	Matches   []KevMatch `json:"matches,omitempty"`
	CheckedAt time.Time  `json:"checked_at"`
	Error     string     `json:"error,omitempty"`
}

// Listed reports whether the catalog holds at least one match.
func (k KevStatus) Listed() bool { return k.State == KevListed && k.Count > 0 }

// EntityRecord is the cached output of the resolution stage.
type EntityRecord struct {
	Input     string             `json:"input"`
	Key       string             `json:"key"`
	Entity    ResolvedEntity     `json:"entity"`
	Sources   []DiscoveredSource `json:"sources"`
	Attempts  []ProbeAttempt     `json:"attempts,omitempty"`
	Kev       KevStatus          `json:"kev"`
	CreatedAt time.Time          `json:"created_at"`
}

// DeploymentModel enum
type DeploymentModel string

const (
	DeploymentSaaS    DeploymentModel = "SaaS"
	DeploymentOnPrem  DeploymentModel = "on-prem"
	DeploymentHybrid  DeploymentModel = "hybrid"
	DeploymentUnknown DeploymentModel = "unknown"
)

// DataAccessLevel enum
type DataAccessLevel string

const (
	DataAccessLow    DataAccessLevel = "low"
	DataAccessMedium DataAccessLevel = "medium"
	DataAccessHigh   DataAccessLevel = "high"
)

// EvidenceBasis enum
type EvidenceBasis string

const (
	BasisVendorStated EvidenceBasis = "vendor-stated"
	BasisIndependent  EvidenceBasis = "independent"
	BasisMixed        EvidenceBasis = "mixed"
	BasisInsufficient EvidenceBasis = "insufficient"
)

// InsufficientEvidence is the terminal category used when classification fails closed.
const InsufficientEvidence = "Insufficient Evidence"

// CategoryRef points at a taxonomy node.
type CategoryRef struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// TaxonomyClassification value object
type TaxonomyClassification struct {
	PrimaryCategory    string          `json:"primary_category"`
	PrimarySubcategory string          `json:"primary_subcategory"`
	Secondary          []CategoryRef   `json:"secondary_categories"`
	DeploymentModel    DeploymentModel `json:"deployment_model"`
	DataAccess         DataAccessLevel `json:"data_access_level"`
	EvidenceBasis      EvidenceBasis   `json:"evidence_basis"`
	Confidence         int             `json:"confidence"`
	Reasoning          string          `json:"reasoning,omitempty"`
	KeyFunctions       []string        `json:"key_functions,omitempty"`
	Citations          []string        `json:"source_citations,omitempty"`
	ClassifiedAt       time.Time       `json:"classified_at"`
}

// Insufficient reports whether the classification failed closed.
func (c TaxonomyClassification) Insufficient() bool {
	return c.PrimaryCategory == InsufficientEvidence
}

// Alternative is a competing product with a better security posture.
type Alternative struct {
	Product           string   `json:"product"`
	Vendor            string   `json:"vendor"`
	Website           string   `json:"website,omitempty"`
	Confidence        int      `json:"confidence"`
	Rationale         string   `json:"rationale"`
	SecurityAdvantage string   `json:"security_advantage,omitempty"`
	Highlights        []string `json:"security_highlights,omitempty"`
	TradeOffs         []string `json:"trade_offs,omitempty"`
}

// Suggestions is the output of the alternative suggestion stage.
type Suggestions struct {
	Alternatives             []Alternative `json:"alternatives"`
	RecommendationConfidence int           `json:"recommendation_confidence"`
	Rationale                string        `json:"rationale,omitempty"`
	Note                     string        `json:"note,omitempty"`
	Recommendation           string        `json:"recommendation,omitempty"`
	SuggestedAt              time.Time     `json:"suggested_at"`
}

// EvidenceQuality summarises how much public evidence was gathered.
type EvidenceQuality struct {
	Quality            string `json:"quality"`
	SourcesFound       int    `json:"sources_found"`
	IndependentSources int    `json:"independent_sources"`
	VendorSources      int    `json:"vendor_sources"`
}

// Provenance enum
type Provenance string

const (
	ProvenanceMiss    Provenance = "miss"
	ProvenanceHit     Provenance = "hit"
	ProvenanceRefresh Provenance = "refresh"
)

// CacheMeta describes where an assessment came from.
type CacheMeta struct {
	Key        string     `json:"key"`
	CreatedAt  time.Time  `json:"created_at"`
	TTLDays    int        `json:"ttl_days"`
	Provenance Provenance `json:"provenance"`
}

// Aggregate Root: Assessment
type Assessment struct {
	Input           string                 `json:"input"`
	Entity          ResolvedEntity         `json:"entity"`
	Sources         []DiscoveredSource     `json:"sources"`
	Attempts        []ProbeAttempt         `json:"attempts,omitempty"`
	Kev             KevStatus              `json:"kev"`
	Classification  TaxonomyClassification `json:"classification"`
	Suggestions     Suggestions            `json:"suggestions"`
	EvidenceQuality EvidenceQuality        `json:"evidence_quality"`
	Cache           CacheMeta              `json:"cache"`
}

// Comparison pairs two independently computed assessments.
type Comparison struct {
	Left       *Assessment `json:"left"`
	Right      *Assessment `json:"right"`
	ComparedAt time.Time   `json:"compared_at"`
}

// CacheEntry is a listing row for cache administration.
type CacheEntry struct {
	Key       string    `json:"key"`
	Input     string    `json:"input"`
	Product   string    `json:"product"`
	Vendor    string    `json:"vendor"`
	Category  string    `json:"category"`
	Quality   string    `json:"evidence_quality"`
	CreatedAt time.Time `json:"created_at"`
	Stale     bool      `json:"stale"`
}
