package classify

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdigest/internal/domain"
)

func decodeManifest(t *testing.T, data []byte) []manifestRecord {
	t.Helper()

	var records []manifestRecord
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		var record manifestRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		records = append(records, record)
	}
	return records
}

func TestBuildManifestsPairsRecordsPerPost(t *testing.T) {
	t.Parallel()

	posts := []domain.Post{
		{ID: "p1", Title: "Widgets launch", Description: "Widgets everywhere."},
		{ID: "p2", Title: "Planner deep dive", Description: "Plans explained."},
	}

	catData, sumData, err := buildManifests(posts)
	require.NoError(t, err)

	catRecords := decodeManifest(t, catData)
	sumRecords := decodeManifest(t, sumData)
	require.Len(t, catRecords, 2)
	require.Len(t, sumRecords, 2)

	assert.Equal(t, "p1_cat", catRecords[0].RecordID)
	assert.Equal(t, "p1_sum", sumRecords[0].RecordID)
	assert.Contains(t, catRecords[0].Input.Prompt, "Widgets launch")
	assert.Contains(t, catRecords[0].Input.Prompt, "compute")
	assert.Contains(t, sumRecords[1].Input.Prompt, "Plans explained.")
}

func TestBuildManifestsTruncatesLongDescriptions(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 3000)
	catData, sumData, err := buildManifests([]domain.Post{{ID: "p1", Title: "T", Description: long}})
	require.NoError(t, err)

	catPrompt := decodeManifest(t, catData)[0].Input.Prompt
	sumPrompt := decodeManifest(t, sumData)[0].Input.Prompt

	assert.Contains(t, catPrompt, strings.Repeat("x", 1000))
	assert.NotContains(t, catPrompt, strings.Repeat("x", 1001))
	assert.Contains(t, sumPrompt, strings.Repeat("x", 2000))
	assert.NotContains(t, sumPrompt, strings.Repeat("x", 2001))
}

func TestParseResultsMergesCategoriesAndSummaries(t *testing.T) {
	t.Parallel()

	catData := []byte(`{"recordId":"p1_cat","modelOutput":{"text":"compute, storage"}}
{"recordId":"p2_cat","modelOutput":{"text":""}}
`)
	sumData := []byte(`{"recordId":"p1_sum","modelOutput":{"text":" A short summary. "}}
`)

	results := parseResults(catData, sumData)
	require.Len(t, results, 2)

	assert.Equal(t, []string{"compute", "storage"}, results["p1"].Categories)
	assert.Equal(t, "A short summary.", results["p1"].Summary)

	assert.Equal(t, []string{BatchUncategorized}, results["p2"].Categories)
	assert.Empty(t, results["p2"].Summary)
}

func TestParseResultsCapsCategoriesAtThree(t *testing.T) {
	t.Parallel()

	catData := []byte(`{"recordId":"p1_cat","modelOutput":{"text":"compute, storage, database, security, iot"}}
`)

	results := parseResults(catData, nil)
	assert.Equal(t, []string{"compute", "storage", "database"}, results["p1"].Categories)
}

func TestParseResultsSkipsGarbageLines(t *testing.T) {
	t.Parallel()

	catData := []byte(`not json at all
{"recordId":"no-suffix","modelOutput":{"text":"compute"}}
{"recordId":"p1_cat","modelOutput":{"text":"compute"}}
`)

	results := parseResults(catData, nil)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"compute"}, results["p1"].Categories)
}
