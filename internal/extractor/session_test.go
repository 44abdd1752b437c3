package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func directoryPage(cards ...string) string {
	page := `<html><body><ul class="blog-directories-container">`
	for _, card := range cards {
		page += card
	}
	return page + `</ul></body></html>`
}

func cardHTML(title, href, info, description string) string {
	return fmt.Sprintf(`<li>
		<div class="m-card-info">%s</div>
		<div class="m-card-title"><a href="%s">%s</a></div>
		<div class="m-card-description">%s</div>
	</li>`, info, href, title, description)
}

func TestDirectorySessionPagination(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"1": directoryPage(
			cardHTML("Launching widgets", "/blogs/compute/widgets", "Jane Doe, 06/25/2025", "Widgets are here."),
			cardHTML("Query planner deep dive", "/blogs/database/planner", "Sam Lee, Ana Ruiz, 06/25/2025", "Plans explained."),
		),
		"2": directoryPage(
			cardHTML("Older news", "/blogs/aws/older", "Pat Kim, 06/24/2025", "From yesterday."),
		),
		"3": directoryPage(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("size"); got != "24" {
			t.Errorf("unexpected size param %q", got)
		}
		fmt.Fprint(w, pages[r.URL.Query().Get("page")])
	}))
	defer server.Close()

	session := NewDirectorySession(server.Client(), 24, time.Second, nil)
	ctx := context.Background()

	if err := session.Open(ctx, server.URL+"/blogs"); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer session.Close()

	cards, err := session.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards on first page, got %d", len(cards))
	}

	first := cards[0]
	if first.Title != "Launching widgets" || first.URL != "/blogs/compute/widgets" {
		t.Fatalf("unexpected first card: %+v", first)
	}
	if first.Author != "Jane Doe" || first.Date != "06/25/2025" {
		t.Fatalf("info line parsed wrong: %+v", first)
	}
	if cards[1].Author != "Sam Lee, Ana Ruiz" {
		t.Fatalf("multi-author info line parsed wrong: %+v", cards[1])
	}

	grew, err := session.LoadMore(ctx, len(cards))
	if err != nil {
		t.Fatalf("LoadMore error: %v", err)
	}
	if !grew {
		t.Fatalf("second page should grow the card set")
	}

	cards, err = session.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards error: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("expected 3 accumulated cards, got %d", len(cards))
	}
	if cards[2].URL != "/blogs/aws/older" {
		t.Fatalf("cards out of page order: %+v", cards)
	}

	grew, err = session.LoadMore(ctx, len(cards))
	if err != nil {
		t.Fatalf("LoadMore error: %v", err)
	}
	if grew {
		t.Fatalf("empty page must not report growth")
	}
}

func TestDirectorySessionSkipsMalformedCards(t *testing.T) {
	t.Parallel()

	page := directoryPage(
		`<li><div class="m-card-info"></div></li>`,
		cardHTML("Good", "/blogs/compute/good", "Jane Doe, 06/25/2025", "ok"),
		`<li><div class="m-card-info">no date here</div></li>`,
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	session := NewDirectorySession(server.Client(), 24, time.Second, nil)
	if err := session.Open(context.Background(), server.URL); err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer session.Close()

	cards, err := session.Cards(context.Background())
	if err != nil {
		t.Fatalf("Cards error: %v", err)
	}
	if len(cards) != 1 || cards[0].URL != "/blogs/compute/good" {
		t.Fatalf("unexpected cards: %+v", cards)
	}
}

func TestDirectorySessionOpenFailsOnServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	session := NewDirectorySession(server.Client(), 24, time.Second, nil)
	if err := session.Open(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	got, err := buildPageURL("https://blog.example.org/blogs?lang=en", 3, 24)
	if err != nil {
		t.Fatalf("buildPageURL error: %v", err)
	}
	want := "https://blog.example.org/blogs?lang=en&page=3&size=24"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
