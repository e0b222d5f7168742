package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apiharness/api-contract-tests/framework"
)

// AllureWriter records each finished test as an Allure result file, one JSON
// document per test plus a text attachment for any captured debug output. The
// output directory can be rendered directly with `allure generate`. Reporting
// problems are logged, never allowed to fail the run.
type AllureWriter struct {
	dir    string
	logger framework.Logger
}

// NewAllureWriter creates the output directory if needed.
func NewAllureWriter(dir string, logger framework.Logger) (*AllureWriter, error) {
	if logger == nil {
		logger = framework.NullLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating Allure output directory: %w", err)
	}
	return &AllureWriter{dir: dir, logger: logger}, nil
}

type allureResult struct {
	UUID          string               `json:"uuid"`
	Name          string               `json:"name"`
	FullName      string               `json:"fullName"`
	Status        string               `json:"status"`
	StatusDetails *allureStatusDetails `json:"statusDetails,omitempty"`
	Stage         string               `json:"stage"`
	Start         int64                `json:"start"`
	Stop          int64                `json:"stop"`
	Labels        []allureLabel        `json:"labels,omitempty"`
	Attachments   []allureAttachment   `json:"attachments,omitempty"`
}

type allureStatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

type allureLabel struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type allureAttachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

func (a *AllureWriter) TestStarted(id framework.TestID) {}

func (a *AllureWriter) TestError(id framework.TestID, err error) {}

func (a *AllureWriter) TestFinished(id framework.TestID, result framework.TestResult,
	debugOutput framework.CapturedOutput) {
	r := a.newResult(id)
	r.Start = result.Start.UnixMilli()
	r.Stop = result.Stop.UnixMilli()
	for _, l := range result.Labels {
		r.Labels = append(r.Labels, allureLabel{Name: l.Name, Value: l.Value})
	}
	if len(result.Errors) == 0 {
		r.Status = "passed"
	} else {
		r.Status = "failed"
		r.StatusDetails = &allureStatusDetails{
			Message: firstLine(result.Errors[0].Error()),
			Trace:   joinErrors(result.Errors),
		}
	}
	if len(debugOutput) > 0 {
		source := r.UUID + "-attachment.txt"
		if err := os.WriteFile(filepath.Join(a.dir, source), []byte(debugOutput.String()), 0o644); err != nil {
			a.logger.Printf("could not write Allure attachment for %s: %s", id, err)
		} else {
			r.Attachments = append(r.Attachments, allureAttachment{
				Name:   "debug log",
				Source: source,
				Type:   "text/plain",
			})
		}
	}
	a.write(id, r)
}

func (a *AllureWriter) TestSkipped(id framework.TestID, reason string) {
	r := a.newResult(id)
	now := time.Now().UnixMilli()
	r.Start, r.Stop = now, now
	r.Status = "skipped"
	if reason != "" {
		r.StatusDetails = &allureStatusDetails{Message: reason}
	}
	a.write(id, r)
}

func (a *AllureWriter) newResult(id framework.TestID) *allureResult {
	r := &allureResult{
		UUID:     uuid.New().String(),
		Name:     lastPathElement(id),
		FullName: id.String(),
		Stage:    "finished",
	}
	if len(id.Path) > 1 {
		r.Labels = append(r.Labels, allureLabel{Name: "suite", Value: id.Path[0]})
	}
	return r
}

func (a *AllureWriter) write(id framework.TestID, r *allureResult) {
	data, err := json.Marshal(r)
	if err != nil {
		a.logger.Printf("could not encode Allure result for %s: %s", id, err)
		return
	}
	if err := os.WriteFile(filepath.Join(a.dir, r.UUID+"-result.json"), data, 0o644); err != nil {
		a.logger.Printf("could not write Allure result for %s: %s", id, err)
	}
}

func lastPathElement(id framework.TestID) string {
	if len(id.Path) == 0 {
		return ""
	}
	return id.Path[len(id.Path)-1]
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func joinErrors(errs []error) string {
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "\n\n")
}
