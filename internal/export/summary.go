// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/files2md/pkg/types"
)

// Aggregator collects outcomes in arrival order for one run.
type Aggregator struct {
	runID    string
	started  time.Time
	outcomes []types.AttachmentOutcome
	counts   map[types.Disposition]int
	now      func() time.Time
}

// NewAggregator starts a run record with a fresh run ID.
func NewAggregator() *Aggregator {
	a := &Aggregator{
		runID:  uuid.NewString(),
		counts: make(map[types.Disposition]int),
		now:    func() time.Time { return time.Now().UTC() },
	}
	a.started = a.now()
	return a
}

// Add appends one outcome.
func (a *Aggregator) Add(o types.AttachmentOutcome) {
	a.outcomes = append(a.outcomes, o)
	a.counts[o.Disposition]++
}

// Finish returns the summary. The summary owns copies of the collected
// data, so later calls to Add do not change it.
func (a *Aggregator) Finish() types.ExportSummary {
	counts := make(map[types.Disposition]int, len(types.Dispositions))
	for _, d := range types.Dispositions {
		counts[d] = 0
	}
	maps.Copy(counts, a.counts)
	return types.ExportSummary{
		RunID:      a.runID,
		StartedAt:  a.started,
		FinishedAt: a.now(),
		Counts:     counts,
		Outcomes:   slices.Clone(a.outcomes),
	}
}

// Report formats accepted by WriteReport.
const (
	ReportYAML = "yaml"
	ReportJSON = "json"
)

// WriteReport serializes the summary as YAML or JSON.
func WriteReport(w io.Writer, s types.ExportSummary, format string) error {
	switch format {
	case ReportYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	case ReportJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	default:
		return fmt.Errorf("unknown report format %q (want yaml or json)", format)
	}
}
