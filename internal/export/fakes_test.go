// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"errors"

	"github.com/pdiddy/files2md/pkg/types"
)

// listCall records one ListAttachments invocation.
type listCall struct {
	collection string
	cursor     types.Cursor
}

// fakeLister serves records from memory, split into pages of pageSize.
// Records are keyed by collection; "" is the whole library.
type fakeLister struct {
	records map[string][]types.AttachmentRecord
	errAt   map[listCall]error
	calls   []listCall
}

func newFakeLister(library ...types.AttachmentRecord) *fakeLister {
	return &fakeLister{records: map[string][]types.AttachmentRecord{"": library}}
}

func (f *fakeLister) ListAttachments(_ context.Context, _ types.LibrarySelector, hints types.ListHints, cursor types.Cursor, pageSize int) (types.AttachmentPage, error) {
	call := listCall{collection: hints.Collection, cursor: cursor}
	f.calls = append(f.calls, call)
	if err, ok := f.errAt[call]; ok {
		return types.AttachmentPage{}, err
	}

	all := f.records[hints.Collection]
	start := int(cursor)
	if start > len(all) {
		start = len(all)
	}
	end := min(start+pageSize, len(all))
	return types.AttachmentPage{
		Attachments: append([]types.AttachmentRecord(nil), all[start:end]...),
		Next:        types.Cursor(end),
		HasNext:     end < len(all),
	}, nil
}

// fakeDownloader returns canned bytes and records every key requested.
type fakeDownloader struct {
	data   map[string][]byte
	errs   map[string]error
	called []string
}

func (f *fakeDownloader) FetchBytes(_ context.Context, _ types.LibrarySelector, key string) ([]byte, error) {
	f.called = append(f.called, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if d, ok := f.data[key]; ok {
		return d, nil
	}
	return []byte("content of " + key), nil
}

// fakeConverter echoes its input as Markdown unless told to fail.
type fakeConverter struct {
	err      error
	output   string
	lastOpts map[string]string
	calls    int
}

func (f *fakeConverter) Convert(_ context.Context, data []byte, contentType string, options map[string]string) (string, error) {
	f.calls++
	f.lastOpts = options
	if f.err != nil {
		return "", f.err
	}
	if f.output != "" {
		return f.output, nil
	}
	return "# converted " + contentType + "\n\n" + string(data), nil
}

var errBoom = errors.New("boom")

var testSel = types.LibrarySelector{ID: 1, Kind: types.LibraryUser, APIKey: "k"}

func stored(key, parent, title string) types.AttachmentRecord {
	return types.AttachmentRecord{
		Key:         key,
		ParentKey:   "P-" + key,
		ParentTitle: parent,
		Title:       title,
		Mode:        types.ModeStoredFile,
		ContentType: "application/pdf",
	}
}

func linked(key string) types.AttachmentRecord {
	return types.AttachmentRecord{
		Key:         key,
		ParentTitle: "Linked Parent",
		Title:       "Linked " + key,
		Mode:        types.ModeLinkedFile,
		ContentType: "application/pdf",
	}
}

func intPtr(n int) *int { return &n }
