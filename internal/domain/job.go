package domain

// JobStatus enumerates batch job lifecycle states. Succeeded, failed and
// timed-out are terminal.
type JobStatus string

const (
	JobBuilding  JobStatus = "building"
	JobSubmitted JobStatus = "submitted"
	JobPolling   JobStatus = "polling"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timed-out"
)

// Terminal reports whether no further transitions occur.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobTimedOut
}

// BatchJob tracks one asynchronous inference job over a batch of posts.
// It is persisted at submission so a restarted poller can resume an
// in-flight job instead of silently abandoning it.
type BatchJob struct {
	ID        string
	Date      string
	Status    JobStatus
	PostIDs   []string
	InputKey  string
	OutputKey string
}
