package framework

// TestLogger receives test progress and outcome events during a run. The
// console reporter, the report file writer, and test doubles all implement
// this.
//
// TestError may be called any number of times between TestStarted and
// TestFinished; the finished result carries the full error list again, so an
// implementation can ignore either one of the two.
type TestLogger interface {
	TestStarted(id TestID)
	TestError(id TestID, err error)
	TestFinished(id TestID, result TestResult, debugOutput CapturedOutput)
	TestSkipped(id TestID, reason string)
}

type nullTestLogger struct{}

// NullTestLogger returns a TestLogger that discards all events.
func NullTestLogger() TestLogger { return nullTestLogger{} }

func (n nullTestLogger) TestStarted(TestID)                              {}
func (n nullTestLogger) TestError(TestID, error)                         {}
func (n nullTestLogger) TestFinished(TestID, TestResult, CapturedOutput) {}
func (n nullTestLogger) TestSkipped(TestID, string)                      {}
