package history

import "time"

// Status enum
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCached    Status = "cached"
	StatusFailed    Status = "failed"
)

// Run represents one pipeline invocation stored for auditing and retrieval
type Run struct {
	ID           string    `json:"id"`
	CacheKey     string    `json:"cache_key"`
	Input        string    `json:"input"`
	Product      string    `json:"product,omitempty"`
	Status       Status    `json:"status"`
	FailedStage  string    `json:"failed_stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	ForceRefresh bool      `json:"force_refresh"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
