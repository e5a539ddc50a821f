// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/files2md/pkg/types"
)

// placeholderSlug names a segment whose title has no usable characters.
const placeholderSlug = "untitled"

// Slugify renders a display title as a filesystem-safe path segment:
// lower-cased, with every run of characters other than letters, digits and
// hyphens replaced by a single hyphen, and no leading or trailing hyphen.
// Hyphens already in the title are kept as they are. Titles are
// NFC-normalized first so composed and decomposed spellings agree.
func Slugify(title string) string {
	if s := slug(title); s != "" {
		return s
	}
	return placeholderSlug
}

func slug(title string) string {
	s := cases.Lower(language.Und).String(norm.NFC.String(title))

	var b strings.Builder
	inRun := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			inRun = false
		case !inRun:
			b.WriteByte('-')
			inRun = true
		}
	}
	return strings.Trim(b.String(), "-")
}

// PathResolver assigns output paths for one run. Paths depend only on the
// parent title and the attachment title, with a numeric suffix when two
// attachments of the run would otherwise share a path.
type PathResolver struct {
	outputDir string
	owners    map[string]string // path -> attachment key
	byKey     map[string]string // attachment key -> path
}

// NewPathResolver returns a resolver with an empty registry rooted at outputDir.
func NewPathResolver(outputDir string) *PathResolver {
	return &PathResolver{
		outputDir: outputDir,
		owners:    make(map[string]string),
		byKey:     make(map[string]string),
	}
}

// Resolve returns the output path for rec, registering it for the run.
// Resolving the same attachment again returns the same path.
func (r *PathResolver) Resolve(rec types.AttachmentRecord) string {
	if p, ok := r.byKey[rec.Key]; ok {
		return p
	}

	dir := filepath.Join(r.outputDir, Slugify(rec.ParentTitle))
	name := attachmentSlug(rec)

	p := filepath.Join(dir, name+".md")
	for n := 2; ; n++ {
		if _, taken := r.owners[p]; !taken {
			break
		}
		p = filepath.Join(dir, fmt.Sprintf("%s-%d.md", name, n))
	}

	r.owners[p] = rec.Key
	r.byKey[rec.Key] = p
	return p
}

// attachmentSlug prefers the attachment title and falls back to the stored
// filename without its extension.
func attachmentSlug(rec types.AttachmentRecord) string {
	if s := slug(rec.Title); s != "" {
		return s
	}
	stem := strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename))
	return Slugify(stem)
}
