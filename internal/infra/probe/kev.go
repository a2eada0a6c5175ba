package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

const (
	// DefaultKEVURL is the CISA Known Exploited Vulnerabilities JSON feed.
	DefaultKEVURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

	maxKEVMatches = 5
)

type kevFeed struct {
	CatalogVersion  string     `json:"catalogVersion"`
	Count           int        `json:"count"`
	Vulnerabilities []kevEntry `json:"vulnerabilities"`
}

type kevEntry struct {
	CVEID             string `json:"cveID"`
	VendorProject     string `json:"vendorProject"`
	Product           string `json:"product"`
	VulnerabilityName string `json:"vulnerabilityName"`
	DateAdded         string `json:"dateAdded"`
	RequiredAction    string `json:"requiredAction"`
}

// KEVCatalog checks products against the CISA KEV feed. The feed is fetched
// lazily and reused until Refresh has elapsed.
type KEVCatalog struct {
	URL       string
	Client    *http.Client
	Refresh   time.Duration
	UserAgent string
	Now       func() time.Time

	mu        sync.Mutex
	entries   []kevEntry
	fetchedAt time.Time
}

func NewKEVCatalog(url string, timeout, refresh time.Duration) *KEVCatalog {
	if url == "" {
		url = DefaultKEVURL
	}
	return &KEVCatalog{
		URL:       url,
		Client:    &http.Client{Timeout: timeout},
		Refresh:   refresh,
		UserAgent: DefaultUserAgent,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Check counts catalog entries whose product equals or contains product,
// case-insensitively. Any fetch or parse failure yields state unknown.
func (k *KEVCatalog) Check(ctx context.Context, vendor, product string) assessment.KevStatus {
	status := assessment.KevStatus{State: assessment.KevUnknown, CheckedAt: k.now()}

	needle := strings.ToLower(strings.TrimSpace(product))
	if needle == "" {
		status.Error = "no product name"
		return status
	}

	entries, err := k.load(ctx)
	if err != nil {
		slog.Warn("kev catalog unavailable", "url", k.URL, "error", err)
		status.Error = err.Error()
		return status
	}

	status.State = assessment.KevClear
	for _, e := range entries {
		p := strings.ToLower(e.Product)
		if p != needle && !strings.Contains(p, needle) {
			continue
		}
		status.Count++
		if len(status.Matches) < maxKEVMatches {
			status.Matches = append(status.Matches, assessment.KevMatch{
				CVEID:             e.CVEID,
				VendorProject:     e.VendorProject,
				Product:           e.Product,
				VulnerabilityName: e.VulnerabilityName,
				DateAdded:         e.DateAdded,
				RequiredAction:    e.RequiredAction,
			})
		}
	}
	if status.Count > 0 {
		status.State = assessment.KevListed
	}
	slog.Debug("kev check", "vendor", vendor, "product", product, "state", status.State, "count", status.Count)
	return status
}

func (k *KEVCatalog) load(ctx context.Context) ([]kevEntry, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.entries != nil && (k.Refresh <= 0 || k.now().Sub(k.fetchedAt) < k.Refresh) {
		return k.entries, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", k.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := k.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kev feed returned status %d", resp.StatusCode)
	}

	var feed kevFeed
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode kev feed: %w", err)
	}
	if feed.Vulnerabilities == nil {
		return nil, fmt.Errorf("kev feed has no vulnerabilities array")
	}
	k.entries = feed.Vulnerabilities
	k.fetchedAt = k.now()
	return k.entries, nil
}

func (k *KEVCatalog) now() time.Time {
	if k.Now == nil {
		return time.Now().UTC()
	}
	return k.Now()
}
