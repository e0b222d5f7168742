package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	started  []string
	skipped  map[string]string
	finished map[string]TestResult
	output   map[string]CapturedOutput
}

func newRecordingTestLogger() *recordingTestLogger {
	return &recordingTestLogger{
		skipped:  make(map[string]string),
		finished: make(map[string]TestResult),
		output:   make(map[string]CapturedOutput),
	}
}

func (l *recordingTestLogger) TestStarted(id TestID) {
	l.started = append(l.started, id.String())
}

func (l *recordingTestLogger) TestError(id TestID, err error) {}

func (l *recordingTestLogger) TestFinished(id TestID, result TestResult, debugOutput CapturedOutput) {
	l.finished[id.String()] = result
	l.output[id.String()] = debugOutput
}

func (l *recordingTestLogger) TestSkipped(id TestID, reason string) {
	l.skipped[id.String()] = reason
}

func testNames(results Results) []string {
	var names []string
	for _, r := range results.Tests {
		names = append(names, r.TestID.String())
	}
	return names
}

func TestRunExecutesAllSubtests(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("first", func(c *Context) {})
		c.Run("group", func(c *Context) {
			c.Run("nested", func(c *Context) {})
		})
	})

	assert.True(t, results.OK())
	assert.Equal(t, []string{"first", "group/nested", "group"}, testNames(results))
}

func TestErrorfRecordsFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("bad", func(c *Context) {
			c.Errorf("value was %d", 3)
		})
		c.Run("good", func(c *Context) {})
	})

	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "bad", results.Failures[0].TestID.String())
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Equal(t, "value was 3", results.Failures[0].Errors[0].Error())
}

func TestRequireFailureAbortsTestButNotRun(t *testing.T) {
	reachedAfterFailure := false
	results := Run(nil, nil, func(c *Context) {
		c.Run("aborts early", func(c *Context) {
			require.Fail(c, "stopping here")
			reachedAfterFailure = true
		})
		c.Run("still runs", func(c *Context) {})
	})

	assert.False(t, reachedAfterFailure)
	assert.Len(t, results.Failures, 1)
	assert.Len(t, results.Tests, 2)
}

func TestSkippedTestIsRecordedButNotFailed(t *testing.T) {
	logger := newRecordingTestLogger()
	results := Run(nil, logger, func(c *Context) {
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not applicable here")
			c.Errorf("should never get here")
		})
	})

	assert.True(t, results.OK())
	require.Len(t, results.Tests, 1)
	assert.True(t, results.Tests[0].Skipped)
	assert.Equal(t, 1, results.SkipCount())
	assert.Equal(t, "not applicable here", logger.skipped["skipped"])
}

func TestUnexpectedPanicIsReportedAsFailure(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic("boom")
		})
	})

	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "boom")
}

func TestFilterExcludesTests(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("flaky"))

	logger := newRecordingTestLogger()
	results := Run(filters.AsFilter, logger, func(c *Context) {
		c.Run("solid", func(c *Context) {})
		c.Run("flaky thing", func(c *Context) {})
	})

	assert.Equal(t, []string{"solid"}, testNames(results))
	assert.Equal(t, "excluded by filter parameters", logger.skipped["flaky thing"])
}

func TestLabelsAndDebugOutputArriveWithResult(t *testing.T) {
	logger := newRecordingTestLogger()
	Run(nil, logger, func(c *Context) {
		c.Run("annotated", func(c *Context) {
			c.Label("severity", "critical")
			c.Debug("checking %d things", 2)
		})
	})

	result, ok := logger.finished["annotated"]
	require.True(t, ok)
	assert.Equal(t, []Label{{Name: "severity", Value: "critical"}}, result.Labels)
	assert.False(t, result.Stop.Before(result.Start))

	out := logger.output["annotated"]
	require.Len(t, out, 1)
	assert.Equal(t, "checking 2 things", out[0].Message)
}

func TestRootContextFailureIsRecorded(t *testing.T) {
	results := Run(nil, nil, func(c *Context) {
		c.Errorf("setup exploded")
	})

	assert.False(t, results.OK())
	require.Len(t, results.Tests, 1)
	assert.Equal(t, "", results.Tests[0].TestID.String())
}

func TestChildIDsDoNotShareStorage(t *testing.T) {
	parent := TestID{Path: []string{"a"}}
	first := parent.Child("b")
	second := parent.Child("c")

	assert.Equal(t, "a/b", first.String())
	assert.Equal(t, "a/c", second.String())
}
