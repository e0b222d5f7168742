package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/apiharness/api-contract-tests/framework"
)

// PrintResults writes the end-of-run summary, listing every failed test with
// its errors.
func PrintResults(w io.Writer, results framework.Results) {
	total := len(results.Tests)
	skipped := results.SkipCount()
	failed := len(results.Failures)
	passed := total - skipped - failed

	if results.OK() {
		fmt.Fprintf(w, "%s (%d run, %d skipped)\n",
			color.GreenString("All tests passed"), passed, skipped)
		return
	}

	fmt.Fprintf(w, "Ran %d tests: %d passed, %d failed, %d skipped\n",
		total, passed, failed, skipped)
	fmt.Fprintf(w, "\n%s\n", color.RedString("FAILED TESTS (%d):", failed))
	for _, f := range results.Failures {
		fmt.Fprintf(w, "  * %s\n", f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
}
