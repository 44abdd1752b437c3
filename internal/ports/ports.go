package ports

import (
	"context"
	"time"

	"blogdigest/internal/domain"
)

// PostStore persists scraped posts and their categorization state.
type PostStore interface {
	// SavePosts batch-upserts posts keyed by source URL.
	SavePosts(ctx context.Context, posts []domain.Post) error
	PostsByDate(ctx context.Context, date string) ([]domain.Post, error)
	UnprocessedByDate(ctx context.Context, date string, limit int) ([]domain.Post, error)
	// UpdateClassification sets categories/summary and flips processed.
	// Re-applying the same result for the same id yields the same state.
	UpdateClassification(ctx context.Context, id string, categories []string, summary string) error
}

// SnapshotStore keeps at most one category snapshot per processing date.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot domain.CategorySnapshot) error
}

// SubscriberStore exposes the externally-owned subscriber list read-only.
type SubscriberStore interface {
	ActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error)
}

// JobStore records in-flight batch jobs so a restarted poller can resume
// them. Terminal jobs are deleted after result ingestion.
type JobStore interface {
	SaveJob(ctx context.Context, job domain.BatchJob) error
	PendingJob(ctx context.Context, date string) (*domain.BatchJob, error)
	DeleteJob(ctx context.Context, id string) error
}

// ObjectStore stages write-once line-delimited manifests for batch jobs.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// JobSpec describes a batch inference submission.
type JobSpec struct {
	Name      string
	Model     string
	InputKey  string
	OutputKey string
}

// InferenceRunner drives the managed inference capability.
type InferenceRunner interface {
	StartJob(ctx context.Context, spec JobSpec) (string, error)
	JobStatus(ctx context.Context, id string) (domain.JobStatus, error)
}

// Message is one outbound email bundling all matched posts for a subscriber.
type Message struct {
	To      string
	Name    string
	Subject string
	Body    string
}

// Mailer delivers a single message; fire-and-forget with an error result.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// AlertPayload is the structured error report pushed to the alert channel.
type AlertPayload struct {
	Stage  string `json:"stage"`
	Date   string `json:"date"`
	Reason string `json:"reason"`
	JobID  string `json:"job_id,omitempty"`
}

// Alerter surfaces stage failures to the operational alert channel.
type Alerter interface {
	Alert(ctx context.Context, payload AlertPayload) error
}

// Scheduler controls when the full pipeline executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
