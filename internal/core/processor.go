package core

import (
	"context"
	"time"
)

// Processor is the base interface that all processors must implement
type Processor interface {
	// Name returns the processor name
	Name() string
	// Validate checks if the processor configuration is valid
	Validate() error
}

type SnapshotConfig struct {
	Snapshot bool   `json:"snapshot" yaml:"snapshot"`
	Restore  bool   `json:"restore" yaml:"restore"`
	Path     string `json:"path" yaml:"path"`
}

// TriggerEvent represents a trigger firing
type TriggerEvent struct {
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// TriggerProcessor defines when a run happens in schedule mode.
type TriggerProcessor interface {
	Processor
	// Start begins the trigger and returns a channel of trigger events.
	// The processor manages its own lifecycle and stops when ctx is done.
	Start(ctx context.Context) (<-chan TriggerEvent, error)
	// Stop gracefully shuts down the trigger
	Stop() error
}

// SourceProcessor fetches the postings for the current run.
type SourceProcessor interface {
	Processor
	// Fetch performs at most one query against the source.
	Fetch(ctx context.Context) ([]Posting, error)
}

// QualityResult represents the verdict of a quality processor on one posting.
type QualityResult struct {
	ProcessorName string    `json:"processor_name" yaml:"processor_name"`
	Result        string    `json:"result" yaml:"result"` // "pass", "drop"
	Reason        string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	ProcessedAt   time.Time `json:"processed_at" yaml:"processed_at"`
}

const (
	QualityPass = "pass"
	QualityDrop = "drop"
)

// Passed reports whether the posting survived the processor.
func (r QualityResult) Passed() bool {
	return r.Result == QualityPass
}

// QualityProcessor decides whether a posting is relevant.
type QualityProcessor interface {
	Processor
	Evaluate(ctx context.Context, posting Posting) (QualityResult, error)
}

// OutputProcessor delivers notifications through a single messaging sink.
type OutputProcessor interface {
	Processor
	// Deliver formats and sends one posting.
	Deliver(ctx context.Context, posting Posting) error
	// DeliverNotice sends a free-form status message.
	DeliverNotice(ctx context.Context, body string) error
}
