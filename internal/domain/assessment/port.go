package assessment

import "context"

// Cache port (interface untuk persistence hasil assessment)
type Cache interface {
	GetEntity(ctx context.Context, key string) (*EntityRecord, error)
	PutEntity(ctx context.Context, key string, rec *EntityRecord) error
	GetAssessment(ctx context.Context, key string) (*Assessment, error)
	PutAssessment(ctx context.Context, key string, a *Assessment) error

	List(ctx context.Context) ([]*Assessment, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) (int, error)
}

// ProbeReport is what the prober found on a vendor domain.
type ProbeReport struct {
	Sources  []DiscoveredSource
	Attempts []ProbeAttempt
}

// Prober port (interface untuk source discovery)
type Prober interface {
	Probe(ctx context.Context, domain string) ProbeReport
}

// KEVChecker port (interface untuk katalog known-exploited-vulnerability)
type KEVChecker interface {
	Check(ctx context.Context, vendor, product string) KevStatus
}

// Notifier is told about freshly computed assessments worth escalating.
type Notifier interface {
	Notify(ctx context.Context, a *Assessment) error
}
