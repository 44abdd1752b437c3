package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"blogdigest/internal/classify"
	"blogdigest/internal/config"
	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// PostExtractor produces the finite post set for a target date.
type PostExtractor interface {
	Run(ctx context.Context, date string) ([]domain.Post, error)
}

// RulePath is the fast deterministic categorization path.
type RulePath interface {
	Categories(rawURL string) []string
}

// BatchPath is the asynchronous batch categorization path.
type BatchPath interface {
	Process(ctx context.Context, date string) (classify.BatchResult, error)
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Extractor   PostExtractor
	Rule        RulePath
	Batch       BatchPath
	Posts       ports.PostStore
	Snapshots   ports.SnapshotStore
	Subscribers ports.SubscriberStore
	Mailer      ports.Mailer
	Alerter     ports.Alerter
	Mode        string
	Logger      *slog.Logger
}

// Pipeline implements the daily ingestion workflow as four independently
// triggerable stages communicating through the content store: extract,
// categorize, aggregate, notify.
type Pipeline struct {
	extractor   PostExtractor
	rule        RulePath
	batch       BatchPath
	posts       ports.PostStore
	snapshots   ports.SnapshotStore
	subscribers ports.SubscriberStore
	mailer      ports.Mailer
	alerter     ports.Alerter
	mode        string
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	mode := deps.Mode
	if mode == "" {
		mode = config.ModeRule
	}
	return &Pipeline{
		extractor:   deps.Extractor,
		rule:        deps.Rule,
		batch:       deps.Batch,
		posts:       deps.Posts,
		snapshots:   deps.Snapshots,
		subscribers: deps.Subscribers,
		mailer:      deps.Mailer,
		alerter:     deps.Alerter,
		mode:        mode,
		logger:      deps.Logger,
	}
}

// Extract scrapes the directory for the date and batch-writes the posts.
// If posts already exist for the date the scrape is skipped entirely.
func (p *Pipeline) Extract(ctx context.Context, date string) (domain.Outcome, error) {
	existing, err := p.posts.PostsByDate(ctx, date)
	if err != nil {
		return p.fail(ctx, "extract", date, "", fmt.Errorf("load existing posts: %w", err))
	}
	if len(existing) > 0 {
		p.info("posts already extracted for date", "date", date, "count", len(existing))
		return domain.Outcome{Stage: "extract", Date: date, Status: domain.OutcomeSuccess, Count: len(existing)}, nil
	}

	posts, err := p.extractor.Run(ctx, date)
	if err != nil {
		return p.fail(ctx, "extract", date, "", err)
	}
	if len(posts) == 0 {
		p.info("no posts found for date", "date", date)
		return domain.Outcome{Stage: "extract", Date: date, Status: domain.OutcomeNoContent}, nil
	}

	if err := p.posts.SavePosts(ctx, posts); err != nil {
		return p.fail(ctx, "extract", date, "", fmt.Errorf("save posts: %w", err))
	}

	p.info("extracted posts", "date", date, "count", len(posts))
	return domain.Outcome{Stage: "extract", Date: date, Status: domain.OutcomeSuccess, Count: len(posts)}, nil
}

// Categorize dispatches the date's unprocessed posts to the configured
// classification path.
func (p *Pipeline) Categorize(ctx context.Context, date string) (domain.Outcome, error) {
	if p.mode == config.ModeBatch {
		return p.categorizeBatch(ctx, date)
	}
	return p.categorizeRule(ctx, date)
}

func (p *Pipeline) categorizeRule(ctx context.Context, date string) (domain.Outcome, error) {
	posts, err := p.posts.UnprocessedByDate(ctx, date, 0)
	if err != nil {
		return p.fail(ctx, "categorize", date, "", fmt.Errorf("select unprocessed posts: %w", err))
	}
	if len(posts) == 0 {
		p.info("no unprocessed posts", "date", date)
		return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeNoContent}, nil
	}

	for _, post := range posts {
		categories := p.rule.Categories(post.URL)
		if err := p.posts.UpdateClassification(ctx, post.ID, categories, ""); err != nil {
			return p.fail(ctx, "categorize", date, "", fmt.Errorf("update post %s: %w", post.ID, err))
		}
	}

	p.info("rule-categorized posts", "date", date, "count", len(posts))
	return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeSuccess, Count: len(posts)}, nil
}

func (p *Pipeline) categorizeBatch(ctx context.Context, date string) (domain.Outcome, error) {
	result, err := p.batch.Process(ctx, date)
	switch {
	case errors.Is(err, classify.ErrJobTimeout):
		p.alert(ctx, "categorize", date, result.JobID, err)
		return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeTimedOut}, err
	case err != nil:
		p.alert(ctx, "categorize", date, result.JobID, err)
		return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeFailed}, err
	case result.JobID == "" && result.Submitted == 0:
		p.info("no unprocessed posts", "date", date)
		return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeNoContent}, nil
	}

	p.info("batch-categorized posts", "date", date, "job_id", result.JobID, "updated", result.Updated)
	return domain.Outcome{Stage: "categorize", Date: date, Status: domain.OutcomeSuccess, Count: result.Updated}, nil
}

// Aggregate snapshots the distinct category set present among the date's
// posts. Recomputation for the same post set is idempotent: the snapshot
// is an upsert keyed by date and the set is order-independent.
func (p *Pipeline) Aggregate(ctx context.Context, date string) (domain.Outcome, error) {
	posts, err := p.posts.PostsByDate(ctx, date)
	if err != nil {
		return p.fail(ctx, "aggregate", date, "", fmt.Errorf("load posts: %w", err))
	}
	if len(posts) == 0 {
		return domain.Outcome{Stage: "aggregate", Date: date, Status: domain.OutcomeNoContent}, nil
	}

	categories := CollectCategories(posts)
	if err := p.snapshots.SaveSnapshot(ctx, domain.CategorySnapshot{Date: date, Categories: categories}); err != nil {
		return p.fail(ctx, "aggregate", date, "", fmt.Errorf("save snapshot: %w", err))
	}

	p.info("aggregated categories", "date", date, "categories", len(categories))
	return domain.Outcome{Stage: "aggregate", Date: date, Status: domain.OutcomeSuccess, Count: len(categories)}, nil
}

// CollectCategories computes the deduplicated, sorted union of category
// labels across posts. Dedup is case-insensitive, first spelling wins.
func CollectCategories(posts []domain.Post) []string {
	seen := map[string]string{}
	for _, post := range posts {
		for _, category := range post.Categories {
			key := strings.ToLower(category)
			if _, ok := seen[key]; !ok {
				seen[key] = category
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Notify fans the date's categorized posts out to interested subscribers.
// Deliveries are issued concurrently and are best-effort: one failed
// delivery never blocks the rest.
func (p *Pipeline) Notify(ctx context.Context, date string) (domain.Outcome, error) {
	posts, err := p.posts.PostsByDate(ctx, date)
	if err != nil {
		return p.fail(ctx, "notify", date, "", fmt.Errorf("load posts: %w", err))
	}
	if len(posts) == 0 {
		p.info("no content for date, skipping notifications", "date", date)
		return domain.Outcome{Stage: "notify", Date: date, Status: domain.OutcomeNoContent}, nil
	}

	subscribers, err := p.subscribers.ActiveSubscribers(ctx)
	if err != nil {
		return p.fail(ctx, "notify", date, "", fmt.Errorf("load subscribers: %w", err))
	}

	var delivered atomic.Int64
	var wg sync.WaitGroup
	for _, sub := range subscribers {
		matched := matchPosts(posts, sub)
		if len(matched) == 0 {
			continue
		}

		wg.Add(1)
		go func(sub domain.Subscriber, matched []domain.Post) {
			defer wg.Done()
			msg := ports.Message{
				To:      sub.Email,
				Name:    sub.Name,
				Subject: fmt.Sprintf("Blog digest for %s: %d matching posts", date, len(matched)),
				Body:    buildDigestBody(sub.Name, date, matched),
			}
			if err := p.mailer.Send(ctx, msg); err != nil {
				p.warn("delivery failed", "subscriber", sub.Email, "error", err)
				return
			}
			delivered.Add(1)
		}(sub, matched)
	}
	wg.Wait()

	p.info("notifications sent", "date", date, "delivered", delivered.Load())
	return domain.Outcome{Stage: "notify", Date: date, Status: domain.OutcomeSuccess, Count: int(delivered.Load())}, nil
}

// matchPosts returns the subset of posts whose category set intersects
// the subscriber's interests, case-insensitively.
func matchPosts(posts []domain.Post, sub domain.Subscriber) []domain.Post {
	interests := map[string]struct{}{}
	for _, category := range sub.Categories {
		interests[strings.ToLower(category)] = struct{}{}
	}

	var matched []domain.Post
	for _, post := range posts {
		for _, category := range post.Categories {
			if _, ok := interests[strings.ToLower(category)]; ok {
				matched = append(matched, post)
				break
			}
		}
	}
	return matched
}

// Run executes all stages in order for one processing date, stopping at
// the first non-success outcome.
func (p *Pipeline) Run(ctx context.Context, date string) error {
	stages := []func(context.Context, string) (domain.Outcome, error){
		p.Extract,
		p.Categorize,
		p.Aggregate,
		p.Notify,
	}

	for _, stage := range stages {
		outcome, err := stage(ctx, date)
		p.info("stage finished", "stage", outcome.Stage, "date", date, "status", outcome.Status, "count", outcome.Count)
		if !outcome.Success() {
			return fmt.Errorf("stage %s ended with %s: %w", outcome.Stage, outcome.Status, err)
		}
	}
	return nil
}

// fail surfaces a stage-fatal error to the alert channel and wraps it in
// a failed outcome.
func (p *Pipeline) fail(ctx context.Context, stage, date, jobID string, err error) (domain.Outcome, error) {
	p.alert(ctx, stage, date, jobID, err)
	return domain.Outcome{Stage: stage, Date: date, Status: domain.OutcomeFailed}, err
}

func (p *Pipeline) alert(ctx context.Context, stage, date, jobID string, err error) {
	if p.alerter == nil {
		return
	}
	payload := ports.AlertPayload{Stage: stage, Date: date, Reason: err.Error(), JobID: jobID}
	if alertErr := p.alerter.Alert(ctx, payload); alertErr != nil {
		p.warn("alert channel unavailable", "stage", stage, "error", alertErr)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
