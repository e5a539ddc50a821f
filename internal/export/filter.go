// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"

	"github.com/pdiddy/files2md/pkg/types"
)

// Lister returns one page of attachment records per call. The cursor of the
// first page is zero; subsequent cursors come from the previous page.
type Lister interface {
	ListAttachments(ctx context.Context, sel types.LibrarySelector, hints types.ListHints, cursor types.Cursor, pageSize int) (types.AttachmentPage, error)
}

// listingPass is one paginated listing walked from cursor zero to its end.
type listingPass struct {
	hints     types.ListHints
	checkTags bool
}

// planPasses turns a filter into the listings that cover it. Collection
// membership is enforced by scoping the listing; tag membership is checked
// against each record.
func planPasses(f types.AttachmentFilter) []listingPass {
	if f.Unrestricted() {
		return []listingPass{{}}
	}
	hasTags := len(f.Tags) > 0
	if len(f.Collections) == 0 {
		return []listingPass{{checkTags: true}}
	}

	var passes []listingPass
	orTags := f.Mode == types.FilterAny && hasTags
	for _, c := range f.Collections {
		passes = append(passes, listingPass{
			hints:     types.ListHints{Collection: c},
			checkTags: hasTags && !orTags,
		})
	}
	if orTags {
		passes = append(passes, listingPass{checkTags: true})
	}
	return passes
}

// Stream pulls attachment records page by page and yields those that pass
// the filter. Pages are requested only when the buffered page is used up,
// so a reached limit stops further listing calls.
type Stream struct {
	lister   Lister
	sel      types.LibrarySelector
	pageSize int
	tags     []string
	limit    *int

	passes    []listingPass
	pass      int
	cursor    types.Cursor
	exhausted bool
	buf       []types.AttachmentRecord

	seen    map[string]bool
	counted int
}

// NewStream prepares a stream over the library addressed by sel. Nothing is
// fetched until the first call to Next.
func NewStream(l Lister, sel types.LibrarySelector, f types.AttachmentFilter, pageSize int) *Stream {
	return &Stream{
		lister:   l,
		sel:      sel,
		pageSize: pageSize,
		tags:     f.Tags,
		limit:    f.Limit,
		passes:   planPasses(f),
		seen:     make(map[string]bool),
	}
}

// Next returns the next matching record. The boolean is false once the
// stream is finished; the error is any listing failure.
func (s *Stream) Next(ctx context.Context) (types.AttachmentRecord, bool, error) {
	for {
		if s.limit != nil && s.counted >= *s.limit {
			return types.AttachmentRecord{}, false, nil
		}

		if len(s.buf) > 0 {
			rec := s.buf[0]
			s.buf = s.buf[1:]
			if s.seen[rec.Key] {
				continue
			}
			if s.passes[s.pass].checkTags && !rec.HasAnyTag(s.tags) {
				continue
			}
			s.seen[rec.Key] = true
			s.counted++
			return rec, true, nil
		}

		if s.pass >= len(s.passes) {
			return types.AttachmentRecord{}, false, nil
		}
		if s.exhausted {
			s.pass++
			s.cursor = 0
			s.exhausted = false
			continue
		}

		page, err := s.lister.ListAttachments(ctx, s.sel, s.passes[s.pass].hints, s.cursor, s.pageSize)
		if err != nil {
			return types.AttachmentRecord{}, false, err
		}
		s.buf = page.Attachments
		if page.HasNext && len(page.Attachments) > 0 {
			s.cursor = page.Next
		} else {
			s.exhausted = true
		}
	}
}
