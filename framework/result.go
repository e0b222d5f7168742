package framework

import (
	"strings"
	"time"
)

// Results is the accumulated outcome of a whole test run.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

// TestResult describes the outcome of one test.
type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
	Labels  []Label
	Start   time.Time
	Stop    time.Time
}

// Label is an arbitrary name/value annotation attached to a test, such as a
// severity or a feature tag. Report writers decide how to render them.
type Label struct {
	Name  string
	Value string
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// SkipCount returns how many of the recorded tests were skipped.
func (r Results) SkipCount() int {
	n := 0
	for _, t := range r.Tests {
		if t.Skipped {
			n++
		}
	}
	return n
}

// TestID identifies a test by its path of names, from the outermost group
// down to the test itself.
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Child returns the TestID of a subtest. The path slice is always copied so
// that sibling IDs never share backing storage.
func (t TestID) Child(name string) TestID {
	path := make([]string, 0, len(t.Path)+1)
	path = append(path, t.Path...)
	return TestID{Path: append(path, name)}
}
