package types

import "time"

// HTTPConfig holds settings for requests to the remote library.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "files2md/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries of rate-limited requests. Zero means the
	// transport default.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// FilterMode selects how collection and tag restrictions combine.
type FilterMode string

const (
	// FilterAll requires both the collection and the tag restriction to hold.
	FilterAll FilterMode = "all"
	// FilterAny accepts an attachment matching either restriction.
	FilterAny FilterMode = "any"
)

// AttachmentFilter narrows the attachments considered by a run.
type AttachmentFilter struct {
	// Collections restricts to members of at least one collection key.
	Collections []string `json:"collections,omitempty" yaml:"collections,omitempty"`

	// Tags restricts to attachments carrying at least one tag.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Limit caps the number of eligible attachments processed. Nil means no cap.
	Limit *int `json:"limit,omitempty" yaml:"limit,omitempty"`

	// Mode combines collection and tag restrictions. Empty means FilterAll.
	Mode FilterMode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// Unrestricted reports whether the filter places no membership restriction.
func (f AttachmentFilter) Unrestricted() bool {
	return len(f.Collections) == 0 && len(f.Tags) == 0
}

// MaxPageSize is the largest page the remote listing accepts.
const MaxPageSize = 100

// ExportSettings controls where and how attachments are written.
type ExportSettings struct {
	// OutputDir is the root directory for Markdown output.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Overwrite rewrites existing output. It takes precedence over SkipExisting.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// SkipExisting leaves existing output untouched.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing"`

	// DryRun resolves paths without downloading or writing anything.
	DryRun bool `json:"dry_run" yaml:"dry_run"`

	// PageSize is the listing page size (default and maximum 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// FrontMatter prefixes each written file with a YAML block of
	// attachment metadata.
	FrontMatter bool `json:"front_matter,omitempty" yaml:"front_matter,omitempty"`

	// ConverterOptions is passed to the converter unexamined.
	ConverterOptions map[string]string `json:"converter_options,omitempty" yaml:"converter_options,omitempty"`
}

// EffectivePageSize returns PageSize clamped to [1, MaxPageSize].
func (s ExportSettings) EffectivePageSize() int {
	if s.PageSize <= 0 || s.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return s.PageSize
}
