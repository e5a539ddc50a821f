// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export drives a library export: it walks the filtered attachment
// listing, decides what happens to each attachment, downloads and converts
// the eligible ones, and writes one Markdown file per attachment.
//
// Processing is strictly sequential. One attachment reaches its terminal
// disposition before the next is pulled from the listing, and listing pages
// are fetched only when needed.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/files2md/pkg/types"
)

// Downloader fetches the stored bytes of one attachment.
type Downloader interface {
	FetchBytes(ctx context.Context, sel types.LibrarySelector, key string) ([]byte, error)
}

// Converter turns document bytes into Markdown. Options are passed through
// from the export settings without interpretation.
type Converter interface {
	Convert(ctx context.Context, data []byte, contentType string, options map[string]string) (string, error)
}

// Exporter runs exports against one set of collaborators and settings.
type Exporter struct {
	lister     Lister
	downloader Downloader
	converter  Converter
	settings   types.ExportSettings
	w          io.Writer
	logger     *slog.Logger
}

// New returns an Exporter. Per-attachment status lines go to w; a nil w
// discards them. A nil logger uses slog.Default().
func New(l Lister, d Downloader, c Converter, settings types.ExportSettings, w io.Writer, logger *slog.Logger) *Exporter {
	if w == nil {
		w = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		lister:     l,
		downloader: d,
		converter:  c,
		settings:   settings,
		w:          w,
		logger:     logger,
	}
}

// Run exports every attachment selected by filter and returns the summary.
//
// Failures of individual attachments are recorded in the summary and do not
// stop the run. A listing failure or a cancelled context ends the run; the
// summary of what was processed so far is returned with the error. An
// invalid selector fails before anything is fetched.
func (e *Exporter) Run(ctx context.Context, sel types.LibrarySelector, filter types.AttachmentFilter) (types.ExportSummary, error) {
	if err := sel.Validate(); err != nil {
		return types.ExportSummary{}, err
	}

	agg := NewAggregator()
	resolver := NewPathResolver(e.settings.OutputDir)
	stream := NewStream(e.lister, sel, filter, e.settings.EffectivePageSize())

	e.logger.Info("export started",
		"library", sel.Prefix(), "output_dir", e.settings.OutputDir,
		"dry_run", e.settings.DryRun, "overwrite", e.settings.Overwrite,
		"skip_existing", e.settings.SkipExisting)

	for {
		// Cancellation is honoured between attachments only.
		if err := ctx.Err(); err != nil {
			return e.finish(agg), err
		}

		rec, ok, err := stream.Next(ctx)
		if err != nil {
			return e.finish(agg), fmt.Errorf("listing attachments: %w", err)
		}
		if !ok {
			break
		}

		agg.Add(e.process(ctx, sel, resolver, rec))
	}

	return e.finish(agg), nil
}

func (e *Exporter) finish(agg *Aggregator) types.ExportSummary {
	summary := agg.Finish()
	fmt.Fprintf(e.w, "\n%s\n", summary)
	e.logger.Info("export finished",
		"run_id", summary.RunID,
		"written", summary.Count(types.DispositionWritten),
		"failed", summary.Count(types.DispositionFailed),
		"total", summary.Total())
	return summary
}

// process carries one attachment to its terminal disposition.
func (e *Exporter) process(ctx context.Context, sel types.LibrarySelector, resolver *PathResolver, rec types.AttachmentRecord) types.AttachmentOutcome {
	log := e.logger.With("key", rec.Key, "mode", string(rec.Mode))
	out := types.AttachmentOutcome{Key: rec.Key}

	if !Eligible(rec.Mode) {
		fmt.Fprintf(e.w, "skipped: %s (%s has no stored content)\n", rec.Key, rec.Mode)
		log.Debug("attachment not eligible")
		out.Disposition = types.DispositionSkippedIneligible
		return out
	}

	out.Path = resolver.Resolve(rec)
	log = log.With("path", out.Path)

	if e.settings.DryRun {
		fmt.Fprintf(e.w, "preview: %s -> %s\n", rec.Key, out.Path)
		out.Disposition = types.DispositionPreviewed
		return out
	}

	// Overwrite takes precedence over SkipExisting when both are set.
	if e.settings.SkipExisting && !e.settings.Overwrite && exists(out.Path) {
		fmt.Fprintf(e.w, "skipped: %s (already exists)\n", out.Path)
		log.Debug("output exists, skipping")
		out.Disposition = types.DispositionSkippedExisting
		return out
	}

	fail := func(stage string, err error) types.AttachmentOutcome {
		out.Disposition = types.DispositionFailed
		out.Detail = fmt.Sprintf("%s: %v", stage, err)
		fmt.Fprintf(e.w, "failed:  %s (%s)\n", rec.Key, out.Detail)
		log.Warn("attachment failed", "stage", stage, "err", err)
		return out
	}

	log.Debug("downloading")
	data, err := e.downloader.FetchBytes(ctx, sel, rec.Key)
	if err != nil {
		return fail("download", err)
	}

	log.Debug("converting", "content_type", rec.ContentType, "bytes", len(data))
	markdown, err := e.converter.Convert(ctx, data, rec.ContentType, e.settings.ConverterOptions)
	if err != nil {
		return fail("convert", err)
	}
	if strings.TrimSpace(markdown) == "" {
		return fail("convert", fmt.Errorf("converter produced empty output for %s", rec.ContentType))
	}
	if e.settings.FrontMatter {
		if markdown, err = withFrontMatter(rec, markdown, time.Now()); err != nil {
			return fail("convert", err)
		}
	}

	if err := writeMarkdown(out.Path, markdown); err != nil {
		return fail("write", err)
	}

	fmt.Fprintf(e.w, "written: %s\n", out.Path)
	log.Info("attachment written")
	out.Disposition = types.DispositionWritten
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeMarkdown writes content to path through a temporary file in the same
// directory, replacing any existing file.
func writeMarkdown(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".files2md-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.WriteString(content)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
