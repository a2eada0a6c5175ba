package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
)

const (
	// DefaultUserAgent identifies probe traffic to vendor sites.
	DefaultUserAgent = "trustbrief/1.0 (Research Tool)"

	minBodyBytes  = 500
	soft404Window = 1000
	maxSnapshot   = 5000
	maxPageBytes  = 256 << 10
	maxRedirects  = 5
)

// Templates lists the paths tried per source kind, in order.
var Templates = map[assessment.SourceKind][]string{
	assessment.SourceSecurityPage:   {"/security", "/trust", "/trust-center", "/compliance"},
	assessment.SourcePSIRTPage:      {"/psirt", "/security/advisories", "/security/psirt"},
	assessment.SourceTermsOfService: {"/terms", "/tos", "/legal/terms"},
	assessment.SourcePrivacyPolicy:  {"/privacy", "/legal/privacy", "/privacy-policy"},
}

// IndependentHosts are sources not controlled by the vendor.
var IndependentHosts = []string{
	"nvd.nist.gov", "cve.mitre.org", "cisa.gov", "cert.org", "kb.cert.org", "securityscorecard",
}

// Observer is told the outcome of every probe attempt.
type Observer interface {
	ObserveProbe(kind, outcome string)
}

// Prober guesses well-known security pages on a vendor domain.
type Prober struct {
	Client    *http.Client
	Scheme    string
	UserAgent string
	Observer  Observer
	Now       func() time.Time

	// Guard, when set, vets each URL before it is fetched, including every
	// redirect target.
	Guard func(rawURL string) error

	// AddrGuard, when set, vets the resolved IP of every outgoing connection.
	// It only applies to clients built by NewProber.
	AddrGuard func(ip net.IP) error
}

// NewProber returns a Prober with a per-request timeout. Its client re-checks
// Guard on redirects and AddrGuard at dial time.
func NewProber(timeout time.Duration, observer Observer) *Prober {
	p := &Prober{
		Scheme:    "https",
		UserAgent: DefaultUserAgent,
		Observer:  observer,
		Now:       func() time.Time { return time.Now().UTC() },
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second, Control: p.checkAddr}
	transport.DialContext = dialer.DialContext
	p.Client = &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: p.checkRedirect,
	}
	return p
}

func (p *Prober) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if p.Guard != nil {
		if err := p.Guard(req.URL.String()); err != nil {
			return fmt.Errorf("redirect to %s blocked: %w", req.URL.Redacted(), err)
		}
	}
	return nil
}

// checkAddr runs after DNS resolution, so hostnames pointing at private
// ranges are caught too.
func (p *Prober) checkAddr(network, address string, _ syscall.RawConn) error {
	if p.AddrGuard == nil {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return errors.New("dial address is not an IP: " + address)
	}
	return p.AddrGuard(ip)
}

// Probe tries each kind's templates in order; the first success for a kind
// stops that kind. Kinds are probed concurrently but reported in
// SourceKinds order. Failures are recorded as attempts and never abort probing.
func (p *Prober) Probe(ctx context.Context, domain string) assessment.ProbeReport {
	report := assessment.ProbeReport{Sources: []assessment.DiscoveredSource{}}
	if assessment.HostOf(domain) == "" {
		return report
	}
	host := hostPort(domain)

	results := make([]kindResult, len(assessment.SourceKinds))
	var g errgroup.Group
	for i, kind := range assessment.SourceKinds {
		g.Go(func() error {
			results[i] = p.probeKind(ctx, host, kind)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		report.Attempts = append(report.Attempts, r.attempts...)
		if r.source != nil {
			report.Sources = append(report.Sources, *r.source)
		}
	}
	slog.Debug("probe finished", "host", host, "found", len(report.Sources), "attempts", len(report.Attempts))
	return report
}

type kindResult struct {
	attempts []assessment.ProbeAttempt
	source   *assessment.DiscoveredSource
}

func (p *Prober) probeKind(ctx context.Context, host string, kind assessment.SourceKind) kindResult {
	var res kindResult
	for _, path := range Templates[kind] {
		if ctx.Err() != nil {
			return res
		}
		url := fmt.Sprintf("%s://%s%s", p.scheme(), host, path)
		attempt, snapshot := p.fetch(ctx, kind, url)
		res.attempts = append(res.attempts, attempt)
		p.observe(kind, attempt.Outcome)
		if attempt.Outcome != assessment.OutcomeFound {
			continue
		}
		res.source = &assessment.DiscoveredSource{
			Kind:      kind,
			URL:       url,
			Outcome:   assessment.OutcomeFound,
			Label:     LabelFor(url),
			Content:   &snapshot,
			FetchedAt: p.now(),
		}
		return res
	}
	return res
}

func (p *Prober) fetch(ctx context.Context, kind assessment.SourceKind, url string) (assessment.ProbeAttempt, string) {
	attempt := assessment.ProbeAttempt{Kind: kind, URL: url, Outcome: assessment.OutcomeError}
	if p.Guard != nil {
		if err := p.Guard(url); err != nil {
			attempt.Error = err.Error()
			return attempt, ""
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		attempt.Error = err.Error()
		return attempt, ""
	}
	req.Header.Set("User-Agent", p.UserAgent)
	req.Header.Set("Accept", "text/html,application/json")

	resp, err := p.client().Do(req)
	if err != nil {
		attempt.Error = err.Error()
		return attempt, ""
	}
	defer resp.Body.Close()
	attempt.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		attempt.Outcome = assessment.OutcomeNotFound
		return attempt, ""
	}

	// cukup baca secukupnya, sisanya dibuang
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		attempt.Error = err.Error()
		return attempt, ""
	}
	if len(body) < minBodyBytes || isSoft404(body) {
		attempt.Outcome = assessment.OutcomeNotFound
		return attempt, ""
	}
	attempt.Outcome = assessment.OutcomeFound
	return attempt, Snapshot(body, resp.Header.Get("Content-Type"), maxSnapshot)
}

// isSoft404 detects "page not found" pages served with a 2xx status.
func isSoft404(body []byte) bool {
	head := body
	if len(head) > soft404Window {
		head = head[:soft404Window]
	}
	s := strings.ToLower(string(head))
	return strings.Contains(s, "404") || strings.Contains(s, "page not found")
}

// LabelFor classifies a source URL as independent or vendor-stated.
func LabelFor(url string) assessment.SourceLabel {
	host := assessment.HostOf(url)
	for _, ind := range IndependentHosts {
		if strings.Contains(host, ind) {
			return assessment.LabelIndependent
		}
	}
	return assessment.LabelVendorStated
}

// hostPort keeps an explicit port, which HostOf drops.
func hostPort(s string) string {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	rest := s[strings.Index(s, "://")+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

func (p *Prober) observe(kind assessment.SourceKind, outcome assessment.FetchOutcome) {
	if p.Observer != nil {
		p.Observer.ObserveProbe(string(kind), string(outcome))
	}
}

func (p *Prober) scheme() string {
	if p.Scheme == "" {
		return "https"
	}
	return p.Scheme
}

func (p *Prober) client() *http.Client {
	if p.Client == nil {
		return http.DefaultClient
	}
	return p.Client
}

func (p *Prober) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now()
}
