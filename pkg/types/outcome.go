// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// Disposition is the terminal classification of one attachment in a run.
type Disposition string

const (
	DispositionWritten           Disposition = "written"
	DispositionSkippedExisting   Disposition = "skipped-existing"
	DispositionSkippedIneligible Disposition = "skipped-ineligible"
	DispositionPreviewed         Disposition = "previewed"
	DispositionFailed            Disposition = "failed"
)

// Dispositions lists every disposition in report order.
var Dispositions = []Disposition{
	DispositionWritten,
	DispositionSkippedExisting,
	DispositionSkippedIneligible,
	DispositionPreviewed,
	DispositionFailed,
}

// AttachmentOutcome records how one attachment left the pipeline.
type AttachmentOutcome struct {
	Key         string      `json:"key" yaml:"key"`
	Path        string      `json:"path,omitempty" yaml:"path,omitempty"`
	Disposition Disposition `json:"disposition" yaml:"disposition"`
	// Detail carries the failure message for DispositionFailed.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// ExportSummary is the result of one run: every outcome in arrival order
// and the count per disposition.
type ExportSummary struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	Counts     map[Disposition]int `json:"counts" yaml:"counts"`
	Outcomes   []AttachmentOutcome `json:"outcomes" yaml:"outcomes"`
}

// Count returns the number of outcomes with disposition d.
func (s ExportSummary) Count(d Disposition) int {
	return s.Counts[d]
}

// Total returns the number of attachments dispositioned.
func (s ExportSummary) Total() int {
	return len(s.Outcomes)
}

// HasFailures reports whether any attachment failed.
func (s ExportSummary) HasFailures() bool {
	return s.Counts[DispositionFailed] > 0
}

// Failures returns the failed outcomes in arrival order.
func (s ExportSummary) Failures() []AttachmentOutcome {
	var out []AttachmentOutcome
	for _, o := range s.Outcomes {
		if o.Disposition == DispositionFailed {
			out = append(out, o)
		}
	}
	return out
}

// String renders the one-line summary printed at the end of a run.
func (s ExportSummary) String() string {
	return fmt.Sprintf("Export summary: %d written, %d skipped (existing), %d skipped (ineligible), %d previewed, %d failed (total: %d)",
		s.Count(DispositionWritten),
		s.Count(DispositionSkippedExisting),
		s.Count(DispositionSkippedIneligible),
		s.Count(DispositionPreviewed),
		s.Count(DispositionFailed),
		s.Total())
}
