package usecase

import (
	"fmt"
	"strings"

	"blogdigest/internal/domain"
)

// buildDigestBody renders the plain-text email body bundling every
// matched post for one subscriber.
func buildDigestBody(name, date string, posts []domain.Post) string {
	var b strings.Builder

	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}
	fmt.Fprintf(&b, "%s,\n\nHere are the posts from %s matching your interests:\n\n", greeting, date)

	for _, post := range posts {
		fmt.Fprintf(&b, "- %s\n  %s\n", post.Title, post.URL)
		if len(post.Categories) > 0 {
			fmt.Fprintf(&b, "  Categories: %s\n", strings.Join(post.Categories, ", "))
		}
		if post.Summary != "" {
			fmt.Fprintf(&b, "  %s\n", post.Summary)
		} else if post.Description != "" {
			fmt.Fprintf(&b, "  %s\n", post.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}
