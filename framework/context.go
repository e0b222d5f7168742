package framework

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

type environment struct {
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context represents a running test. It is used the way *testing.T is used in
// regular Go tests: it implements the TestingT interfaces of testify's assert
// and require packages, so standard assertions work against it, and it has a
// Run method for subtests. A require failure or an explicit FailNow aborts the
// current test by panicking with the context itself; the runner recovers and
// records the result.
type Context struct {
	env         *environment
	id          TestID
	debugLogger CapturingLogger
	start       time.Time
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	labels      []Label
}

// Run executes a tree of tests and returns the accumulated results. The
// action normally calls Context.Run one or more times to define the tests;
// the root context itself is recorded as a result only if it fails directly,
// for instance in setup code.
func Run(
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env, start: time.Now()}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) (result TestResult) {
	defer func() {
		r := recover()
		if r != nil && !c.skipped {
			c.failed = true
			var addError error
			if _, ok := r.(*Context); ok {
				if len(c.errors) == 0 {
					addError = errors.New("test failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				c.errors = append(c.errors, addError)
				c.env.testLogger.TestError(c.id, addError)
			}
		}
		result = TestResult{
			TestID:  c.id,
			Errors:  c.errors,
			Skipped: c.skipped,
			Labels:  c.labels,
			Start:   c.start,
			Stop:    time.Now(),
		}
		if len(c.id.Path) == 0 && len(c.errors) == 0 {
			return
		}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
	return
}

func (c *Context) ID() TestID {
	return c.id
}

// Run executes a subtest within this context. Failures and skips in the
// subtest do not affect the parent.
func (c *Context) Run(name string, action func(*Context)) {
	id := c.id.Child(name)

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.testLogger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	c1 := &Context{
		id:    id,
		env:   c.env,
		start: time.Now(),
	}
	result := c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, result, c1.debugLogger.Output())
	}
}

func (c *Context) Errorf(format string, args ...any) {
	c.failed = true
	err := fmt.Errorf(format, args...)
	c.errors = append(c.errors, err)
	c.env.testLogger.TestError(c.id, reformatError(err))
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Label attaches a name/value annotation to this test's result, such as a
// severity level or a feature tag. Report writers decide how to render them.
func (c *Context) Label(name, value string) {
	c.labels = append(c.labels, Label{Name: name, Value: value})
}

func (c *Context) Debug(message string, args ...any) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() Logger {
	return &c.debugLogger
}

// reformatError cleans up multi-line assertion messages (testify indents them
// heavily for *testing.T output) so they read well under our own prefixes.
func reformatError(err error) error {
	lines := strings.Split(err.Error(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" && len(cleaned) == 0 {
			continue
		}
		cleaned = append(cleaned, line)
	}
	if len(cleaned) == 0 {
		return err
	}
	return errors.New(strings.Join(cleaned, "\n"))
}
