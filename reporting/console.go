// Package reporting contains the TestLogger implementations that turn test
// events into output: live console progress, an end-of-run summary, and
// Allure-compatible result files.
package reporting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/apiharness/api-contract-tests/framework"
)

// ConsoleTestLogger prints test progress as it happens. Debug output captured
// by tests is echoed according to the two flags.
type ConsoleTestLogger struct {
	Output               io.Writer
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c *ConsoleTestLogger) out() io.Writer {
	if c.Output == nil {
		return os.Stdout
	}
	return c.Output
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Fprintf(c.out(), "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(c.out(), "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, result framework.TestResult,
	debugOutput framework.CapturedOutput) {
	failed := len(result.Errors) > 0
	if failed {
		fmt.Fprintf(c.out(), "  %s: %s\n", color.RedString("FAILED"), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.out(), "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		fmt.Fprintf(c.out(), "  %s: %s\n", color.YellowString("SKIPPED"), id)
	} else {
		fmt.Fprintf(c.out(), "  %s: %s (%s)\n", color.YellowString("SKIPPED"), id, reason)
	}
}
