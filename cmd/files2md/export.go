// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/files2md/internal/container"
	"github.com/pdiddy/files2md/internal/convert"
	"github.com/pdiddy/files2md/internal/export"
	"github.com/pdiddy/files2md/internal/zotero"
	"github.com/pdiddy/files2md/pkg/types"
)

const defaultTimeout = 60 * time.Second

var exportCmd = &cobra.Command{
	Use:   "export OUTPUT_DIR",
	Short: "Convert stored attachments to Markdown files",
	Long: `Export lists the attachments of a Zotero library, optionally restricted to
collections and tags, downloads each stored file or snapshot and writes it as
Markdown to OUTPUT_DIR/<parent>/<attachment>.md. Linked files and links are
skipped. Existing files are overwritten unless --skip-existing is set.

Failed attachments are reported and do not stop the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	f := exportCmd.Flags()
	addExportFlags(f)

	for _, c := range credentials {
		_ = viper.BindPFlag(c.key, f.Lookup(c.flag))
	}
	_ = viper.BindPFlag("timeout", f.Lookup("timeout"))
	_ = viper.BindPFlag("max_retries", f.Lookup("max-retries"))
	_ = viper.BindPFlag("markitdown_image", f.Lookup("markitdown-image"))

	rootCmd.AddCommand(exportCmd)
}

// addExportFlags registers the export flags on f.
func addExportFlags(f *pflag.FlagSet) {
	f.String("api-key", "", "Zotero API key (env ZOTERO_API_KEY)")
	f.String("library-id", "", "numeric user or group ID (env ZOTERO_LIBRARY_ID)")
	f.String("library-type", "user", "library type: user or group (env ZOTERO_LIBRARY_TYPE)")
	f.StringSlice("collection", nil, "restrict to a collection key (repeatable)")
	f.StringArray("tag", nil, "restrict to attachments carrying a tag (repeatable)")
	f.String("filter-mode", string(types.FilterAll), "combine --collection and --tag: all or any")
	f.Int("limit", 0, "process at most this many attachments, linked ones included")
	f.Int("chunk-size", types.MaxPageSize, "listing page size, 1 to 100")
	f.Bool("overwrite", false, "rewrite existing Markdown files (wins over --skip-existing)")
	f.Bool("skip-existing", false, "leave existing Markdown files untouched")
	f.Bool("dry-run", false, "show target paths without downloading or writing")
	f.Bool("front-matter", false, "prefix each Markdown file with YAML attachment metadata")
	f.StringArray("converter-option", nil, "converter option key=value (repeatable)")
	f.String("report", "", "write the run summary to this file")
	f.String("report-format", export.ReportYAML, "report format: yaml or json")
	f.Duration("timeout", 0, "HTTP request timeout (default 60s)")
	f.Int("max-retries", 0, "retries of rate-limited requests (default 5)")
	f.String("markitdown-image", convert.DefaultMarkitdownImage, "container image for formats without a native converter")
}

func runExport(cmd *cobra.Command, args []string) error {
	sel, err := librarySelector(viper.GetViper())
	if err != nil {
		return err
	}
	filter, err := attachmentFilter(cmd)
	if err != nil {
		return err
	}
	settings, err := exportSettings(cmd, args[0])
	if err != nil {
		return err
	}
	reportPath, _ := cmd.Flags().GetString("report")
	reportFormat, _ := cmd.Flags().GetString("report-format")
	if reportFormat != export.ReportYAML && reportFormat != export.ReportJSON {
		return fmt.Errorf("--report-format must be %s or %s, got %q", export.ReportYAML, export.ReportJSON, reportFormat)
	}

	cfg, err := httpConfig(viper.GetViper())
	if err != nil {
		return err
	}
	client := zotero.NewClient(&http.Client{Timeout: cfg.Timeout}, cfg)
	router := convert.NewRouter(markitdownLoader(viper.GetString("markitdown_image")), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp := export.New(client, client, router, settings, cmd.OutOrStdout(), logger)
	summary, runErr := exp.Run(ctx, sel, filter)

	if reportPath != "" && summary.RunID != "" {
		if err := writeReport(reportPath, summary, reportFormat); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d attachment(s) failed\n", summary.Count(types.DispositionFailed))
	}
	return nil
}

// librarySelector reads the resolved credentials. Missing values surface as
// selector validation errors before any request is made.
func librarySelector(v *viper.Viper) (types.LibrarySelector, error) {
	kind, err := types.ParseLibraryKind(strings.ToLower(strings.TrimSpace(v.GetString("library_type"))))
	if err != nil {
		return types.LibrarySelector{}, err
	}
	raw := strings.TrimSpace(v.GetString("library_id"))
	if raw == "" {
		return types.LibrarySelector{}, fmt.Errorf("%w: library id is required (--library-id or %s_LIBRARY_ID)", types.ErrInvalidSelector, envPrefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return types.LibrarySelector{}, fmt.Errorf("%w: library id %q is not a number", types.ErrInvalidSelector, raw)
	}
	sel := types.LibrarySelector{
		ID:     id,
		Kind:   kind,
		APIKey: strings.TrimSpace(v.GetString("api_key")),
	}
	return sel, sel.Validate()
}

// httpConfig reads the request settings shared by listing and download.
func httpConfig(v *viper.Viper) (types.HTTPConfig, error) {
	timeout := v.GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	maxRetries := v.GetInt("max_retries")
	if maxRetries < 0 {
		return types.HTTPConfig{}, fmt.Errorf("--max-retries must not be negative, got %d", maxRetries)
	}
	return types.HTTPConfig{
		Timeout:    timeout,
		UserAgent:  "files2md/" + version,
		MaxRetries: maxRetries,
	}, nil
}

func attachmentFilter(cmd *cobra.Command) (types.AttachmentFilter, error) {
	collections, _ := cmd.Flags().GetStringSlice("collection")
	tags, _ := cmd.Flags().GetStringArray("tag")
	mode, _ := cmd.Flags().GetString("filter-mode")

	filter := types.AttachmentFilter{
		Collections: collections,
		Tags:        tags,
		Mode:        types.FilterMode(strings.ToLower(mode)),
	}
	if filter.Mode != types.FilterAll && filter.Mode != types.FilterAny {
		return filter, fmt.Errorf("--filter-mode must be %s or %s, got %q", types.FilterAll, types.FilterAny, mode)
	}
	if cmd.Flags().Changed("limit") {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return filter, fmt.Errorf("--limit must not be negative, got %d", limit)
		}
		filter.Limit = &limit
	}
	return filter, nil
}

func exportSettings(cmd *cobra.Command, outputDir string) (types.ExportSettings, error) {
	chunk, _ := cmd.Flags().GetInt("chunk-size")
	if chunk < 1 || chunk > types.MaxPageSize {
		return types.ExportSettings{}, fmt.Errorf("--chunk-size must be between 1 and %d, got %d", types.MaxPageSize, chunk)
	}
	rawOpts, _ := cmd.Flags().GetStringArray("converter-option")
	opts, err := parseConverterOptions(rawOpts)
	if err != nil {
		return types.ExportSettings{}, err
	}
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	skip, _ := cmd.Flags().GetBool("skip-existing")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	frontMatter, _ := cmd.Flags().GetBool("front-matter")

	return types.ExportSettings{
		OutputDir:        outputDir,
		Overwrite:        overwrite,
		SkipExisting:     skip,
		DryRun:           dryRun,
		FrontMatter:      frontMatter,
		PageSize:         chunk,
		ConverterOptions: opts,
	}, nil
}

// parseConverterOptions turns key=value pairs into a map. Later pairs win.
func parseConverterOptions(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	opts := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--converter-option %q: want key=value", p)
		}
		opts[k] = v
	}
	return opts, nil
}

// markitdownLoader defers container detection until a conversion needs it.
func markitdownLoader(image string) func() (convert.Converter, error) {
	return func() (convert.Converter, error) {
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		m, err := convert.NewMarkitdownConverter(rt, image)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func writeReport(path string, s types.ExportSummary, format string) error {
	var buf bytes.Buffer
	if err := export.WriteReport(&buf, s, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
