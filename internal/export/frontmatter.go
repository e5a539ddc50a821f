// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/files2md/pkg/types"
)

// withFrontMatter prefixes body with a YAML front matter block describing
// rec. Front matter already at the top of body, as Markdown attachments may
// carry, is merged into the block; the attachment's own keys win.
func withFrontMatter(rec types.AttachmentRecord, body string, exportedAt time.Time) (string, error) {
	meta := map[string]any{}
	rest, err := frontmatter.Parse(strings.NewReader(body), &meta)
	if err != nil {
		meta = map[string]any{}
		rest = []byte(body)
	}

	meta["zotero_key"] = rec.Key
	meta["exported_at"] = exportedAt.UTC().Format(time.RFC3339)
	if rec.ParentKey != "" {
		meta["parent_key"] = rec.ParentKey
	}
	if rec.ParentTitle != "" {
		meta["parent_title"] = rec.ParentTitle
	}
	if rec.Title != "" {
		meta["title"] = rec.Title
	}
	if rec.ContentType != "" {
		meta["content_type"] = rec.ContentType
	}
	if len(rec.Tags) > 0 {
		meta["tags"] = rec.Tags
	}
	if len(rec.Collections) > 0 {
		meta["collections"] = rec.Collections
	}

	var b strings.Builder
	b.WriteString("---\n")
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimLeft(string(rest), "\n"))
	return b.String(), nil
}
