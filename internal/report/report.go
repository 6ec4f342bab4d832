// Package report renders human-readable run summaries from a finished
// pipeline run. The canonical form is Markdown; an HTML rendering is
// produced from it for viewing in a browser.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
)

// Summary is the flattened view of a run used for rendering.
type Summary struct {
	RunID    string
	Status   pipeline.RunStatus
	Revision string
	Started  time.Time
	Duration time.Duration
	Stages   []StageSummary
	Failed   string // failing stage name, empty on success
	Err      string
}

// StageSummary is one row of the stage table.
type StageSummary struct {
	Name     string
	Attempts int
	Outcome  string
	ExitCode int
	Duration time.Duration
}

// FromRun builds a Summary from a terminal run. Stages that never started
// (the pipeline halted earlier) are listed as skipped.
func FromRun(run *pipeline.PipelineRun) Summary {
	s := Summary{
		RunID:    run.ID,
		Status:   run.Status,
		Revision: run.Revision,
		Started:  run.Started,
		Duration: run.Duration(),
		Failed:   run.FailedStage(),
	}
	if run.Err != nil {
		s.Err = run.Err.Error()
	}
	executed := make(map[string]pipeline.StageResult, len(run.Results))
	for _, res := range run.Results {
		executed[res.Stage] = res
	}
	for _, st := range run.Stages {
		res, ok := executed[st.Name]
		if !ok {
			s.Stages = append(s.Stages, StageSummary{Name: st.Name, Outcome: "skipped"})
			continue
		}
		s.Stages = append(s.Stages, StageSummary{
			Name:     res.Stage,
			Attempts: res.Attempts,
			Outcome:  outcomeOf(res),
			ExitCode: res.ExitCode,
			Duration: res.Duration,
		})
	}
	return s
}

func outcomeOf(res pipeline.StageResult) string {
	switch {
	case res.Succeeded:
		return "succeeded"
	case res.Cancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Markdown renders the summary as a Markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build %s\n\n", s.Status)
	fmt.Fprintf(&b, "- Run: `%s`\n", s.RunID)
	if s.Revision != "" {
		fmt.Fprintf(&b, "- Revision: `%s`\n", s.Revision)
	}
	fmt.Fprintf(&b, "- Started: %s\n", s.Started.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Duration: %s\n", s.Duration.Round(time.Millisecond))
	if s.Failed != "" {
		fmt.Fprintf(&b, "- Failed stage: `%s`\n", s.Failed)
	}
	if s.Err != "" {
		fmt.Fprintf(&b, "- Error: %s\n", s.Err)
	}

	b.WriteString("\n| Stage | Outcome | Attempts | Exit | Duration |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, st := range s.Stages {
		exit := "-"
		if st.Outcome == "failed" {
			exit = fmt.Sprintf("%d", st.ExitCode)
		}
		attempts := "-"
		if st.Attempts > 0 {
			attempts = fmt.Sprintf("%d", st.Attempts)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			st.Name, st.Outcome, attempts, exit, st.Duration.Round(time.Millisecond))
	}
	return b.String()
}

// HTML renders the Markdown summary to a standalone HTML fragment.
func (s Summary) HTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(s.Markdown()), &buf); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}
