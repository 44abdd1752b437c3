package domain

// OutcomeStatus classifies how a stage invocation ended.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeNoContent OutcomeStatus = "no-content"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeTimedOut  OutcomeStatus = "timed-out"
)

// Outcome summarizes a single stage run over one processing date.
type Outcome struct {
	Stage  string
	Date   string
	Status OutcomeStatus
	Count  int
}

// Success reports whether the run may be treated as complete. A no-content
// day is not an error.
func (o Outcome) Success() bool {
	return o.Status == OutcomeSuccess || o.Status == OutcomeNoContent
}
