package history

import "context"

// Repository port for persisting and querying pipeline runs
type Repository interface {
	Save(ctx context.Context, r *Run) error
	Latest(ctx context.Context, limit int) ([]*Run, error)
}

// Nop discards runs; used when no database is configured.
type Nop struct{}

func (Nop) Save(context.Context, *Run) error             { return nil }
func (Nop) Latest(context.Context, int) ([]*Run, error) { return []*Run{}, nil }
