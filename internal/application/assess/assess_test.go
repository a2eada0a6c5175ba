package assess

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	aiapp "github.com/bryanwahyu/trustbrief/internal/application/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/ai"
	"github.com/bryanwahyu/trustbrief/internal/domain/assessment"
	"github.com/bryanwahyu/trustbrief/internal/domain/history"
	"github.com/bryanwahyu/trustbrief/internal/infra/ai/prompt"
	"github.com/bryanwahyu/trustbrief/internal/infra/cache"
	"github.com/bryanwahyu/trustbrief/internal/infra/storage"
)

const (
	slackEntity = `{"product":"Slack","vendor":"Salesforce","website":"https://slack.com","confidence":0.95,"reasoning":"Well known team chat product","alternative_names":["Slack Technologies"]}`

	slackTaxonomy = `{"primary_category":"communication & collaboration","primary_subcategory":"Team Chat/Messaging",
		"secondary_categories":[{"category":"Data & Storage","subcategory":"File Sharing/Storage"}],
		"deployment_model":"SaaS","data_access_level":"high","confidence":88,
		"reasoning":"Security page describes enterprise messaging","key_functions":["messaging","file sharing"],
		"source_citations":["https://slack.com/trust"]}`

	slackAlternatives = `{"alternatives":[
		{"product":"Mattermost","vendor":"Mattermost Inc","confidence":60,"rationale":"Self-hostable"},
		{"product":"","vendor":"Nobody","confidence":99,"rationale":"dropped"},
		{"product":"Microsoft Teams","vendor":"Microsoft","confidence":80,"rationale":"Enterprise controls","security_advantage":"Has SOC 2 Type II"},
		{"product":"Zulip","vendor":"Kandra Labs","confidence":60,"rationale":"Open source"}],
		"recommendation_confidence":75,"rationale":"Comparable messaging products"}`
)

type fakeModel struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	block     bool
	calls     map[string]int
}

func newFakeModel() *fakeModel {
	return &fakeModel{
		responses: map[string]string{
			prompt.SchemaEntity:       slackEntity,
			prompt.SchemaTaxonomy:     slackTaxonomy,
			prompt.SchemaAlternatives: slackAlternatives,
		},
		errs:  map[string]error{},
		calls: map[string]int{},
	}
}

func (f *fakeModel) Complete(ctx context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	f.calls[req.Name]++
	resp, err, block := f.responses[req.Name], f.errs[req.Name], f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return resp, err
}

func (f *fakeModel) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeModel) set(name, resp string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[name] = resp
}

type fakeProber struct {
	mu     sync.Mutex
	report assessment.ProbeReport
	calls  int
}

func (p *fakeProber) Probe(context.Context, string) assessment.ProbeReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.report
}

type fakeKEV struct{ status assessment.KevStatus }

func (k fakeKEV) Check(context.Context, string, string) assessment.KevStatus { return k.status }

type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memHistory struct {
	mu   sync.Mutex
	runs []*history.Run
}

func (h *memHistory) Save(_ context.Context, r *history.Run) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, r)
	return nil
}

func (h *memHistory) Latest(_ context.Context, limit int) ([]*history.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if limit > len(h.runs) {
		limit = len(h.runs)
	}
	return h.runs[len(h.runs)-limit:], nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	products []string
}

func (n *recordingNotifier) Notify(_ context.Context, a *assessment.Assessment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.products = append(n.products, a.Entity.Product)
	return nil
}

type harness struct {
	svc      *Service
	model    *fakeModel
	prober   *fakeProber
	store    *cache.Store
	clock    *stepClock
	history  *memHistory
	notifier *recordingNotifier
}

const ttl = 7 * 24 * time.Hour

func newHarness(t *testing.T) *harness {
	t.Helper()
	local, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	content := "Slack security: SOC 2 Type II, ISO 27001, encryption at rest and in transit."
	h := &harness{
		model: newFakeModel(),
		prober: &fakeProber{report: assessment.ProbeReport{
			Sources: []assessment.DiscoveredSource{{
				Kind:    assessment.SourceSecurityPage,
				URL:     "https://slack.com/trust",
				Outcome: assessment.OutcomeFound,
				Label:   assessment.LabelVendorStated,
				Content: &content,
			}},
			Attempts: []assessment.ProbeAttempt{
				{Kind: assessment.SourceSecurityPage, URL: "https://slack.com/security", Outcome: assessment.OutcomeNotFound, StatusCode: 404},
				{Kind: assessment.SourceSecurityPage, URL: "https://slack.com/trust", Outcome: assessment.OutcomeFound, StatusCode: 200},
			},
		}},
		store:    cache.NewStore(local),
		clock:    &stepClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		history:  &memHistory{},
		notifier: &recordingNotifier{},
	}

	svc := aiapp.NewService(h.model, nil)
	kev := fakeKEV{status: assessment.KevStatus{State: assessment.KevClear, CheckedAt: h.clock.Now()}}
	h.svc = &Service{
		Resolver:   &Resolver{AI: svc, Cache: h.store, Prober: h.prober, KEV: kev, Clock: h.clock, TTL: ttl},
		Classifier: &Classifier{AI: svc, Clock: h.clock},
		Suggester:  &Suggester{AI: svc, Clock: h.clock},
		Cache:      h.store,
		History:    h.history,
		Notifier:   h.notifier,
		Clock:      h.clock,
		TTL:        ttl,
	}
	return h
}

func (h *harness) withKEV(st assessment.KevStatus) {
	h.svc.Resolver.KEV = fakeKEV{status: st}
}

var errBoom = errors.New("boom")
