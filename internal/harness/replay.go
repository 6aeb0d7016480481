package harness

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/headline-goat/funnel-goat/internal/report"
)

// Record is one recorded run, as read from a results stream.
type Record struct {
	Run    report.RunInfo
	Result report.RunResult
}

type recordedAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Body        string `json:"body"`
}

type recordedResult struct {
	Status      report.Status        `json:"status"`
	Duration    float64              `json:"duration"` // ms
	Error       string               `json:"error,omitempty"`
	Attachments []recordedAttachment `json:"attachments"`
	Annotations []report.Annotation  `json:"annotations,omitempty"`
}

type recordedLine struct {
	Run    report.RunInfo `json:"run"`
	Result recordedResult `json:"result"`
}

// WriteResult appends one run as a JSON line.
func WriteResult(w io.Writer, info report.RunInfo, result report.RunResult) error {
	line := recordedLine{
		Run: info,
		Result: recordedResult{
			Status:      result.Status,
			Duration:    float64(result.Duration) / float64(time.Millisecond),
			Error:       result.Error,
			Annotations: result.Annotations,
		},
	}
	for _, a := range result.Attachments {
		line.Result.Attachments = append(line.Result.Attachments, recordedAttachment{
			Name:        a.Name,
			ContentType: a.ContentType,
			Body:        string(a.Body),
		})
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// ReadResults decodes a JSON-lines stream of recorded runs. Blank lines
// are skipped; any other undecodable line fails the whole read with its
// line number.
func ReadResults(r io.Reader) ([]Record, error) {
	var records []Record

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var line recordedLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNo, err)
		}

		res := report.RunResult{
			Status:      line.Result.Status,
			Duration:    time.Duration(line.Result.Duration * float64(time.Millisecond)),
			Error:       line.Result.Error,
			Annotations: line.Result.Annotations,
		}
		for _, a := range line.Result.Attachments {
			res.Attach(a.Name, a.ContentType, []byte(a.Body))
		}
		records = append(records, Record{Run: line.Run, Result: res})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	return records, nil
}

// Replay posts recorded runs through the queue as a complete suite.
func Replay(ctx context.Context, suite string, records []Record, queue chan<- report.Message) error {
	if err := post(ctx, queue, report.SuiteBegin{Suite: report.SuiteInfo{Name: suite, RunCount: len(records)}}); err != nil {
		return err
	}

	status := report.StatusPassed
	var total time.Duration
	for _, rec := range records {
		if rec.Result.Status != report.StatusPassed && rec.Result.Status != report.StatusSkipped {
			status = report.StatusFailed
		}
		total += rec.Result.Duration
		if err := post(ctx, queue, report.RunEnd{Run: rec.Run, Result: rec.Result}); err != nil {
			return err
		}
	}

	return post(ctx, queue, report.SuiteEnd{Result: report.SuiteResult{Status: status, Duration: total}})
}

// ReplayInto replays records straight into a reporter.
func ReplayInto(ctx context.Context, suite string, records []Record, rep *report.Reporter) (*report.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := make(chan report.Message, 16)
	replayErr := make(chan error, 1)
	go func() {
		replayErr <- Replay(ctx, suite, records, queue)
	}()

	out, err := report.Consume(ctx, rep, queue)
	if out == nil {
		cancel()
		<-replayErr
		return nil, err
	}
	<-replayErr
	return out, err
}
