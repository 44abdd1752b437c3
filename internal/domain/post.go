package domain

// Post is one scraped blog announcement for a given calendar date.
type Post struct {
	ID          string
	Title       string
	URL         string
	Author      string
	Date        string // calendar day, MM/DD/YYYY
	Description string
	Categories  []string
	Summary     string
	Processed   bool
}

// CategorySnapshot holds the deduplicated category set observed across a
// date's posts. A date has at most one snapshot.
type CategorySnapshot struct {
	Date       string
	Categories []string
}

// Subscriber is owned by the external subscription service; the pipeline
// only reads active subscribers and never mutates them.
type Subscriber struct {
	ID         string
	Email      string
	Name       string
	Categories []string
	Active     bool
}
