package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blogdigest/internal/config"
	"blogdigest/internal/domain"
	"blogdigest/internal/ports"
)

// ErrJobTimeout marks a poll loop that exceeded the wall-clock bound
// before the job reached a terminal status. No post state is mutated; the
// affected posts are retried in a subsequent run.
var ErrJobTimeout = errors.New("batch job timed out")

// BatchResult reports how a batch pass ended.
type BatchResult struct {
	JobID     string
	Status    domain.JobStatus
	Submitted int
	Updated   int
}

// BatchClassifier runs the asynchronous job lifecycle: build manifests,
// stage them, submit the inference job, poll to a terminal status and
// ingest results. The job record is persisted immediately after
// submission so a restarted poller can resume instead of abandoning it.
type BatchClassifier struct {
	posts   ports.PostStore
	jobs    ports.JobStore
	objects ports.ObjectStore
	runner  ports.InferenceRunner
	cfg     config.BatchConfig
	logger  *slog.Logger
}

// NewBatchClassifier wires the stores and the inference runner.
func NewBatchClassifier(posts ports.PostStore, jobs ports.JobStore, objects ports.ObjectStore, runner ports.InferenceRunner, cfg config.BatchConfig, log *slog.Logger) *BatchClassifier {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Hour
	}
	return &BatchClassifier{posts: posts, jobs: jobs, objects: objects, runner: runner, cfg: cfg, logger: log}
}

// Process categorizes the date's unprocessed posts through the batch
// path. A persisted in-flight job for the date is resumed before any new
// submission is considered. A zero Submitted count with an empty JobID
// means there was nothing to do.
func (b *BatchClassifier) Process(ctx context.Context, date string) (BatchResult, error) {
	pending, err := b.jobs.PendingJob(ctx, date)
	if err != nil {
		return BatchResult{}, fmt.Errorf("look up pending job: %w", err)
	}
	if pending != nil {
		b.info("resuming in-flight job", "job_id", pending.ID, "date", date)
		return b.await(ctx, *pending)
	}

	posts, err := b.posts.UnprocessedByDate(ctx, date, b.cfg.Limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("select unprocessed posts: %w", err)
	}
	if len(posts) == 0 {
		return BatchResult{}, nil
	}

	job, err := b.submit(ctx, date, posts)
	if err != nil {
		return BatchResult{Status: domain.JobFailed, Submitted: len(posts)}, err
	}

	return b.await(ctx, job)
}

// submit builds and stages both manifests, starts the job, and persists
// the job record. Submission failure is not retried.
func (b *BatchClassifier) submit(ctx context.Context, date string, posts []domain.Post) (domain.BatchJob, error) {
	target, err := domain.ParseDate(date)
	if err != nil {
		return domain.BatchJob{}, err
	}

	jobName := fmt.Sprintf("blog-batch-%d", target.Unix())
	inputKey := fmt.Sprintf("%s/%s", b.cfg.Prefix, jobName)
	outputKey := inputKey + "/output"

	catManifest, sumManifest, err := buildManifests(posts)
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("build manifests: %w", err)
	}

	if err := b.objects.Put(ctx, inputKey+"/categorization.jsonl", catManifest); err != nil {
		return domain.BatchJob{}, fmt.Errorf("stage categorization manifest: %w", err)
	}
	if err := b.objects.Put(ctx, inputKey+"/summarization.jsonl", sumManifest); err != nil {
		return domain.BatchJob{}, fmt.Errorf("stage summarization manifest: %w", err)
	}

	jobID, err := b.runner.StartJob(ctx, ports.JobSpec{
		Name:      jobName,
		Model:     b.cfg.Model,
		InputKey:  inputKey,
		OutputKey: outputKey,
	})
	if err != nil {
		return domain.BatchJob{}, fmt.Errorf("submit batch job: %w", err)
	}

	ids := make([]string, len(posts))
	for i, post := range posts {
		ids[i] = post.ID
	}

	job := domain.BatchJob{
		ID:        jobID,
		Date:      date,
		Status:    domain.JobSubmitted,
		PostIDs:   ids,
		InputKey:  inputKey,
		OutputKey: outputKey,
	}
	if err := b.jobs.SaveJob(ctx, job); err != nil {
		return domain.BatchJob{}, fmt.Errorf("persist job %s: %w", jobID, err)
	}

	b.info("submitted batch job", "job_id", jobID, "posts", len(posts))
	return job, nil
}

// await polls the job to a terminal status and ingests results on
// success. The loop ends only through a terminal status or the
// wall-clock bound.
func (b *BatchClassifier) await(ctx context.Context, job domain.BatchJob) (BatchResult, error) {
	result := BatchResult{JobID: job.ID, Submitted: len(job.PostIDs)}

	status, err := b.poll(ctx, job.ID)
	result.Status = status
	switch {
	case err != nil:
		return result, err
	case status == domain.JobTimedOut:
		// Abandon the record so a later run resubmits the posts.
		if delErr := b.jobs.DeleteJob(ctx, job.ID); delErr != nil {
			b.warn("delete timed-out job record", "job_id", job.ID, "error", delErr)
		}
		return result, fmt.Errorf("job %s: %w", job.ID, ErrJobTimeout)
	case status == domain.JobFailed:
		return result, fmt.Errorf("job %s reported failure", job.ID)
	}

	updated, err := b.ingest(ctx, job)
	if err != nil {
		result.Status = domain.JobFailed
		return result, err
	}

	if err := b.jobs.DeleteJob(ctx, job.ID); err != nil {
		b.warn("delete finished job record", "job_id", job.ID, "error", err)
	}

	result.Updated = updated
	return result, nil
}

func (b *BatchClassifier) poll(ctx context.Context, jobID string) (domain.JobStatus, error) {
	deadline := time.Now().Add(b.cfg.MaxWait)

	for {
		status, err := b.runner.JobStatus(ctx, jobID)
		if err != nil {
			return domain.JobFailed, fmt.Errorf("poll job %s: %w", jobID, err)
		}

		b.debug("job status", "job_id", jobID, "status", status)
		if status.Terminal() {
			return status, nil
		}

		if time.Now().After(deadline) {
			return domain.JobTimedOut, nil
		}

		select {
		case <-time.After(b.cfg.PollInterval):
		case <-ctx.Done():
			return domain.JobTimedOut, nil
		}
	}
}

// ingest fetches both result manifests and applies every parsed result to
// its post. Posts absent from the results stay unprocessed; that is not
// an error. Re-applying the same result set is idempotent.
func (b *BatchClassifier) ingest(ctx context.Context, job domain.BatchJob) (int, error) {
	catKey := fmt.Sprintf("%s/%s/categorization.jsonl.out", job.OutputKey, job.ID)
	sumKey := fmt.Sprintf("%s/%s/summarization.jsonl.out", job.OutputKey, job.ID)

	catData, err := b.objects.Get(ctx, catKey)
	if err != nil {
		return 0, fmt.Errorf("fetch categorization results: %w", err)
	}

	sumData, err := b.objects.Get(ctx, sumKey)
	if err != nil {
		b.warn("summarization results unavailable", "job_id", job.ID, "error", err)
		sumData = nil
	}

	inputs := map[string]struct{}{}
	for _, id := range job.PostIDs {
		inputs[id] = struct{}{}
	}

	updated := 0
	for id, entry := range parseResults(catData, sumData) {
		if _, ok := inputs[id]; !ok {
			b.warn("result for unknown post", "job_id", job.ID, "post_id", id)
			continue
		}
		if entry.Categories == nil {
			// Summary-only result; categorization never arrived.
			continue
		}
		if err := b.posts.UpdateClassification(ctx, id, entry.Categories, entry.Summary); err != nil {
			return updated, fmt.Errorf("update post %s: %w", id, err)
		}
		updated++
	}

	b.info("ingested batch results", "job_id", job.ID, "updated", updated)
	return updated, nil
}

func (b *BatchClassifier) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *BatchClassifier) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *BatchClassifier) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
