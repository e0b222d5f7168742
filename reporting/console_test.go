package reporting

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/apiharness/api-contract-tests/framework"
)

func disableColor(t *testing.T) {
	t.Helper()
	was := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = was })
}

func testResult(id framework.TestID, errs ...error) framework.TestResult {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return framework.TestResult{
		TestID: id,
		Errors: errs,
		Start:  start,
		Stop:   start.Add(40 * time.Millisecond),
	}
}

func TestConsoleLoggerShowsProgressAndFailures(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Output: &buf}

	id := framework.TestID{Path: []string{"users", "create"}}
	logger.TestStarted(id)
	logger.TestError(id, errors.New("boom"))
	logger.TestFinished(id, testResult(id, errors.New("boom")), nil)

	out := buf.String()
	assert.Contains(t, out, "[users/create]\n")
	assert.Contains(t, out, "  boom\n")
	assert.Contains(t, out, "  FAILED: users/create\n")
}

func TestConsoleLoggerMultiLineErrorsAreIndented(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Output: &buf}

	id := framework.TestID{Path: []string{"x"}}
	logger.TestError(id, errors.New("first line\nsecond line"))

	assert.Contains(t, buf.String(), "  first line\n  second line\n")
}

func TestConsoleLoggerDebugOutputRules(t *testing.T) {
	disableColor(t)
	id := framework.TestID{Path: []string{"x"}}

	var capture framework.CapturingLogger
	capture.Printf("saw request %d", 1)
	output := capture.Output()

	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Output: &buf}
	logger.TestFinished(id, testResult(id), output)
	assert.NotContains(t, buf.String(), "saw request")

	buf.Reset()
	logger = &ConsoleTestLogger{Output: &buf, DebugOutputOnSuccess: true}
	logger.TestFinished(id, testResult(id), output)
	assert.Contains(t, buf.String(), "DEBUG")
	assert.Contains(t, buf.String(), "saw request 1")

	buf.Reset()
	logger = &ConsoleTestLogger{Output: &buf, DebugOutputOnFailure: true}
	logger.TestFinished(id, testResult(id, errors.New("bad")), output)
	assert.Contains(t, buf.String(), "saw request 1")
}

func TestConsoleLoggerSkipped(t *testing.T) {
	disableColor(t)
	var buf bytes.Buffer
	logger := &ConsoleTestLogger{Output: &buf}

	id := framework.TestID{Path: []string{"x"}}
	logger.TestSkipped(id, "")
	logger.TestSkipped(id, "not supported here")

	assert.Contains(t, buf.String(), "  SKIPPED: x\n")
	assert.Contains(t, buf.String(), "  SKIPPED: x (not supported here)\n")
}

func TestPrintResultsWhenAllPassed(t *testing.T) {
	disableColor(t)
	passing := testResult(framework.TestID{Path: []string{"a"}})
	skipped := testResult(framework.TestID{Path: []string{"b"}})
	skipped.Skipped = true

	var buf bytes.Buffer
	PrintResults(&buf, framework.Results{Tests: []framework.TestResult{passing, skipped}})

	assert.Contains(t, buf.String(), "All tests passed (1 run, 1 skipped)")
}

func TestPrintResultsListsFailures(t *testing.T) {
	disableColor(t)
	passing := testResult(framework.TestID{Path: []string{"users", "list"}})
	failing := testResult(framework.TestID{Path: []string{"orders", "cancel"}},
		errors.New("expected HTTP 200, got 500\nbody: {}"))
	results := framework.Results{
		Tests:    []framework.TestResult{passing, failing},
		Failures: []framework.TestResult{failing},
	}

	var buf bytes.Buffer
	PrintResults(&buf, results)

	out := buf.String()
	assert.Contains(t, out, "Ran 2 tests: 1 passed, 1 failed, 0 skipped")
	assert.Contains(t, out, "FAILED TESTS (1):")
	assert.Contains(t, out, "  * orders/cancel\n")
	assert.Contains(t, out, "      expected HTTP 200, got 500\n      body: {}\n")
}

type countingTestLogger struct {
	started, errored, finished, skipped int
}

func (c *countingTestLogger) TestStarted(framework.TestID)         { c.started++ }
func (c *countingTestLogger) TestError(framework.TestID, error)    { c.errored++ }
func (c *countingTestLogger) TestSkipped(framework.TestID, string) { c.skipped++ }

func (c *countingTestLogger) TestFinished(framework.TestID, framework.TestResult,
	framework.CapturedOutput) {
	c.finished++
}

func TestMultiTestLoggerFansOut(t *testing.T) {
	first, second := &countingTestLogger{}, &countingTestLogger{}
	multi := NewMultiTestLogger(first, second)

	id := framework.TestID{Path: []string{"x"}}
	multi.TestStarted(id)
	multi.TestError(id, errors.New("e"))
	multi.TestFinished(id, testResult(id), nil)
	multi.TestSkipped(id, "r")

	for _, l := range []*countingTestLogger{first, second} {
		assert.Equal(t, 1, l.started)
		assert.Equal(t, 1, l.errored)
		assert.Equal(t, 1, l.finished)
		assert.Equal(t, 1, l.skipped)
	}
}
