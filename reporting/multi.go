package reporting

import "github.com/apiharness/api-contract-tests/framework"

// MultiTestLogger fans every test event out to several loggers, so a run can
// report to the console and to result files at the same time.
type MultiTestLogger struct {
	loggers []framework.TestLogger
}

func NewMultiTestLogger(loggers ...framework.TestLogger) *MultiTestLogger {
	return &MultiTestLogger{loggers: loggers}
}

func (m *MultiTestLogger) TestStarted(id framework.TestID) {
	for _, l := range m.loggers {
		l.TestStarted(id)
	}
}

func (m *MultiTestLogger) TestError(id framework.TestID, err error) {
	for _, l := range m.loggers {
		l.TestError(id, err)
	}
}

func (m *MultiTestLogger) TestFinished(id framework.TestID, result framework.TestResult,
	debugOutput framework.CapturedOutput) {
	for _, l := range m.loggers {
		l.TestFinished(id, result, debugOutput)
	}
}

func (m *MultiTestLogger) TestSkipped(id framework.TestID, reason string) {
	for _, l := range m.loggers {
		l.TestSkipped(id, reason)
	}
}
