// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zotero

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/pdiddy/files2md/pkg/types"
)

// ErrFileMissing means the attachment has no file in library storage (it was
// never synced, or storage quota prevented the upload).
var ErrFileMissing = errors.New("zotero: attachment file not in storage")

// MaxFileSize bounds a single download held in memory.
var MaxFileSize int64 = 256 << 20

// FetchBytes downloads the stored file of the attachment identified by key.
// The API answers with a redirect to the storage backend, which the HTTP
// client follows.
func (c *Client) FetchBytes(ctx context.Context, sel types.LibrarySelector, key string) ([]byte, error) {
	path := "/" + sel.Prefix() + "/items/" + url.PathEscape(key) + "/file"

	resp, err := c.get(ctx, sel, path, nil)
	if err != nil {
		if errors.Is(err, ErrLibraryNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, key)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading file for %s: %w", key, err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, fmt.Errorf("file for %s exceeds %d bytes", key, MaxFileSize)
	}
	return data, nil
}
