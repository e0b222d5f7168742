package reporting

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiharness/api-contract-tests/framework"
)

func readAllureResults(t *testing.T, dir string) []allureResult {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var results []allureResult
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), "-result.json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		var r allureResult
		require.NoError(t, json.Unmarshal(data, &r))
		results = append(results, r)
	}
	return results
}

func TestAllureWriterRecordsPassedTest(t *testing.T) {
	dir := t.TempDir()
	w, err := NewAllureWriter(dir, nil)
	require.NoError(t, err)

	id := framework.TestID{Path: []string{"users", "list users"}}
	result := testResult(id)
	result.Labels = []framework.Label{{Name: "severity", Value: "critical"}}
	w.TestFinished(id, result, nil)

	results := readAllureResults(t, dir)
	require.Len(t, results, 1)
	r := results[0]
	assert.NotEmpty(t, r.UUID)
	assert.Equal(t, "list users", r.Name)
	assert.Equal(t, "users/list users", r.FullName)
	assert.Equal(t, "passed", r.Status)
	assert.Equal(t, "finished", r.Stage)
	assert.Equal(t, result.Start.UnixMilli(), r.Start)
	assert.Equal(t, result.Stop.UnixMilli(), r.Stop)
	assert.Contains(t, r.Labels, allureLabel{Name: "suite", Value: "users"})
	assert.Contains(t, r.Labels, allureLabel{Name: "severity", Value: "critical"})
	assert.Nil(t, r.StatusDetails)
	assert.Empty(t, r.Attachments)
}

func TestAllureWriterRecordsFailureDetails(t *testing.T) {
	dir := t.TempDir()
	w, err := NewAllureWriter(dir, nil)
	require.NoError(t, err)

	id := framework.TestID{Path: []string{"orders", "create order"}}
	w.TestFinished(id, testResult(id,
		errors.New("expected HTTP 201, got 500\nbody: {}"),
		errors.New("missing Location header")), nil)

	results := readAllureResults(t, dir)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "failed", r.Status)
	require.NotNil(t, r.StatusDetails)
	assert.Equal(t, "expected HTTP 201, got 500", r.StatusDetails.Message)
	assert.Contains(t, r.StatusDetails.Trace, "body: {}")
	assert.Contains(t, r.StatusDetails.Trace, "missing Location header")
}

func TestAllureWriterAttachesDebugOutput(t *testing.T) {
	dir := t.TempDir()
	w, err := NewAllureWriter(dir, nil)
	require.NoError(t, err)

	var capture framework.CapturingLogger
	capture.Printf("curl -X GET http://localhost/api/users")

	id := framework.TestID{Path: []string{"users", "list users"}}
	w.TestFinished(id, testResult(id), capture.Output())

	results := readAllureResults(t, dir)
	require.Len(t, results, 1)
	require.Len(t, results[0].Attachments, 1)
	att := results[0].Attachments[0]
	assert.Equal(t, "debug log", att.Name)
	assert.Equal(t, "text/plain", att.Type)
	assert.Equal(t, results[0].UUID+"-attachment.txt", att.Source)

	content, err := os.ReadFile(filepath.Join(dir, att.Source))
	require.NoError(t, err)
	assert.Contains(t, string(content), "curl -X GET http://localhost/api/users")
}

func TestAllureWriterRecordsSkippedTest(t *testing.T) {
	dir := t.TempDir()
	w, err := NewAllureWriter(dir, nil)
	require.NoError(t, err)

	id := framework.TestID{Path: []string{"security", "rate limiting"}}
	w.TestSkipped(id, "excluded by filter parameters")

	results := readAllureResults(t, dir)
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "skipped", r.Status)
	require.NotNil(t, r.StatusDetails)
	assert.Equal(t, "excluded by filter parameters", r.StatusDetails.Message)
}

func TestAllureWriterUsesDistinctFilesPerTest(t *testing.T) {
	dir := t.TempDir()
	w, err := NewAllureWriter(dir, nil)
	require.NoError(t, err)

	id := framework.TestID{Path: []string{"users", "list users"}}
	w.TestFinished(id, testResult(id), nil)
	w.TestFinished(id, testResult(id), nil)

	assert.Len(t, readAllureResults(t, dir), 2)
}
