package report

import (
	"time"

	"github.com/headline-goat/funnel-goat/internal/metrics"
)

// Status is the verdict the runner assigned to a run.
type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusTimedOut    Status = "timedOut"
	StatusSkipped     Status = "skipped"
	StatusInterrupted Status = "interrupted"
)

// SuiteInfo describes a suite at begin time.
type SuiteInfo struct {
	Name     string `json:"name"`
	RootDir  string `json:"rootDir"`
	RunCount int    `json:"runCount"`
}

// RunInfo identifies one run.
type RunInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Project string `json:"project"`
}

// Attachment is a named payload carried on a run result.
type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"-"`
}

// Annotation is a typed note on a run result, e.g. the resolved variant.
type Annotation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// RunResult is what a finished run hands to the reporter.
type RunResult struct {
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	Attachments []Attachment  `json:"attachments"`
	Annotations []Annotation  `json:"annotations,omitempty"`
}

// Attach implements metrics.AttachmentSink.
func (r *RunResult) Attach(name, contentType string, body []byte) {
	r.Attachments = append(r.Attachments, Attachment{Name: name, ContentType: contentType, Body: body})
}

// Annotate adds an annotation.
func (r *RunResult) Annotate(typ, description string) {
	r.Annotations = append(r.Annotations, Annotation{Type: typ, Description: description})
}

// Attachment returns the first attachment with the given name.
func (r *RunResult) Attachment(name string) (Attachment, bool) {
	for _, a := range r.Attachments {
		if a.Name == name {
			return a, true
		}
	}
	return Attachment{}, false
}

var _ metrics.AttachmentSink = (*RunResult)(nil)

// SuiteResult is the runner's verdict for the whole suite.
type SuiteResult struct {
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
}
