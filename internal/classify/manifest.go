package classify

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"blogdigest/internal/domain"
)

// BatchUncategorized is the literal category assigned when the model
// matches a post to none of the known categories.
const BatchUncategorized = "Uncategorized"

const (
	maxBatchCategories   = 3
	maxSummarySentences  = 5
	catDescriptionLimit  = 1000
	sumDescriptionLimit  = 2000
	catRecordSuffix      = "_cat"
	sumRecordSuffix      = "_sum"
	categorizationPrompt = `You are an expert on this blog's product taxonomy. Analyze the post below and determine which categories it belongs to.
Choose from these categories only: %s.
If the post does not fit any of these categories, return 'Uncategorized'.
You can select multiple categories if applicable, but limit to the %d most relevant ones.

Post title: %s
Post content: %s

Return only the category names separated by commas, nothing else.`
	summarizationPrompt = `Create a concise summary (maximum %d sentences) of this blog post.
Focus on the key announcements, features, or changes described.

Post title: %s
Post content: %s

Return only the summary, nothing else.`
)

// manifestRecord is one line of a batch input manifest.
type manifestRecord struct {
	RecordID string     `json:"recordId"`
	Input    modelInput `json:"modelInput"`
}

type modelInput struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

// resultRecord is one line of a batch output manifest.
type resultRecord struct {
	RecordID string      `json:"recordId"`
	Output   modelOutput `json:"modelOutput"`
}

type modelOutput struct {
	Text string `json:"text"`
}

// classification is the parsed per-post result of a succeeded job.
type classification struct {
	Categories []string
	Summary    string
}

// buildManifests renders the categorization and summarization input
// manifests as line-delimited JSON records.
func buildManifests(posts []domain.Post) (cat, sum []byte, err error) {
	categories := strings.Join(KnownCategories(), ", ")

	var catBuf, sumBuf bytes.Buffer
	for _, post := range posts {
		catRecord := manifestRecord{
			RecordID: post.ID + catRecordSuffix,
			Input: modelInput{
				Prompt:    fmt.Sprintf(categorizationPrompt, categories, maxBatchCategories, post.Title, truncate(post.Description, catDescriptionLimit)),
				MaxTokens: 100,
			},
		}
		if err := writeRecord(&catBuf, catRecord); err != nil {
			return nil, nil, err
		}

		sumRecord := manifestRecord{
			RecordID: post.ID + sumRecordSuffix,
			Input: modelInput{
				Prompt:    fmt.Sprintf(summarizationPrompt, maxSummarySentences, post.Title, truncate(post.Description, sumDescriptionLimit)),
				MaxTokens: 300,
			},
		}
		if err := writeRecord(&sumBuf, sumRecord); err != nil {
			return nil, nil, err
		}
	}

	return catBuf.Bytes(), sumBuf.Bytes(), nil
}

func writeRecord(buf *bytes.Buffer, record manifestRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal manifest record %s: %w", record.RecordID, err)
	}
	buf.Write(line)
	buf.WriteByte('\n')
	return nil
}

// parseResults merges categorization and summarization result manifests
// into per-post classifications. Category lists are capped at the three
// most relevant entries in the order the model returned them; an empty
// category answer becomes Uncategorized. Unparseable lines are skipped.
func parseResults(catData, sumData []byte) map[string]classification {
	results := map[string]classification{}

	forEachLine(catData, func(record resultRecord) {
		id, ok := strings.CutSuffix(record.RecordID, catRecordSuffix)
		if !ok {
			return
		}
		entry := results[id]
		entry.Categories = splitCategories(record.Output.Text)
		results[id] = entry
	})

	forEachLine(sumData, func(record resultRecord) {
		id, ok := strings.CutSuffix(record.RecordID, sumRecordSuffix)
		if !ok {
			return
		}
		entry := results[id]
		entry.Summary = strings.TrimSpace(record.Output.Text)
		results[id] = entry
	})

	return results
}

func forEachLine(data []byte, fn func(resultRecord)) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record resultRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		fn(record)
	}
}

func splitCategories(text string) []string {
	var categories []string
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		categories = append(categories, part)
		if len(categories) == maxBatchCategories {
			break
		}
	}
	if len(categories) == 0 {
		return []string{BatchUncategorized}
	}
	return categories
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
