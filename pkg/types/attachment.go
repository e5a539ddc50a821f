// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StorageMode records how an attachment's content is held by the library.
// Values mirror the remote API's linkMode field.
type StorageMode string

const (
	// ModeStoredFile is a file uploaded into library storage.
	ModeStoredFile StorageMode = "imported_file"
	// ModeStoredSnapshot is a web page snapshot saved into library storage.
	ModeStoredSnapshot StorageMode = "imported_url"
	// ModeLinkedFile points at a file on some user's disk.
	ModeLinkedFile StorageMode = "linked_file"
	// ModeLinkedURL points at a web address.
	ModeLinkedURL StorageMode = "linked_url"
)

// AttachmentRecord describes one attachment as returned by the listing
// client. The export pipeline treats it as read-only.
type AttachmentRecord struct {
	// Key is the attachment's identifier in the library.
	Key string `json:"key" yaml:"key"`

	// ParentKey identifies the parent item; empty for standalone attachments.
	ParentKey string `json:"parent_key,omitempty" yaml:"parent_key,omitempty"`

	// ParentTitle is the parent item's display title.
	ParentTitle string `json:"parent_title,omitempty" yaml:"parent_title,omitempty"`

	Title       string      `json:"title" yaml:"title"`
	Filename    string      `json:"filename,omitempty" yaml:"filename,omitempty"`
	Mode        StorageMode `json:"mode" yaml:"mode"`
	ContentType string      `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Version     int         `json:"version" yaml:"version"`

	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Collections []string `json:"collections,omitempty" yaml:"collections,omitempty"`
}

// HasAnyTag reports whether the record carries at least one of tags.
func (r AttachmentRecord) HasAnyTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range r.Tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Cursor is an opaque pagination position understood by the listing client.
type Cursor int

// AttachmentPage is one page of a listing.
type AttachmentPage struct {
	Attachments []AttachmentRecord
	// Next is valid only when HasNext is true.
	Next    Cursor
	HasNext bool
}

// ListHints carries the filter restrictions a listing query can enforce
// server-side.
type ListHints struct {
	// Collection scopes the listing to one collection key. Empty lists the
	// whole library.
	Collection string
}
