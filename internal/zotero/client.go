// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero talks to the Zotero Web API (v3): it lists attachment items
// page by page and downloads the stored file of a single attachment.
package zotero

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/files2md/internal/httputil"
	"github.com/pdiddy/files2md/pkg/types"
)

// apiBase is the Zotero Web API root. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.zotero.org"

const (
	apiVersion = "3"
	// parentBatchSize is the most item keys the API accepts in one itemKey query.
	parentBatchSize = 50
)

var (
	// ErrUnauthorized means the API key was rejected or lacks access.
	ErrUnauthorized = errors.New("zotero: credentials rejected")
	// ErrLibraryNotFound means the selected library does not exist.
	ErrLibraryNotFound = errors.New("zotero: library not found")
)

// Client reads a Zotero library. It is not safe for concurrent use; the
// export pipeline drives it from a single goroutine.
type Client struct {
	http *http.Client
	cfg  types.HTTPConfig

	// parentTitles memoizes parent item titles for the lifetime of the client.
	parentTitles map[string]string
}

// NewClient returns a Client that issues requests through httpClient.
func NewClient(httpClient *http.Client, cfg types.HTTPConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:         httpClient,
		cfg:          cfg,
		parentTitles: make(map[string]string),
	}
}

// Zotero API JSON structures.
type apiItem struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    itemData `json:"data"`
}

type itemData struct {
	ItemType    string   `json:"itemType"`
	ParentItem  string   `json:"parentItem"`
	Title       string   `json:"title"`
	CaseName    string   `json:"caseName"`
	NameOfAct   string   `json:"nameOfAct"`
	Subject     string   `json:"subject"`
	LinkMode    string   `json:"linkMode"`
	ContentType string   `json:"contentType"`
	Filename    string   `json:"filename"`
	Tags        []apiTag `json:"tags"`
	Collections []string `json:"collections"`
}

type apiTag struct {
	Tag string `json:"tag"`
}

// displayTitle mirrors how the Zotero clients label items whose type has no
// plain title field.
func (d itemData) displayTitle() string {
	for _, s := range []string{d.Title, d.CaseName, d.NameOfAct, d.Subject} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// ListAttachments fetches one page of attachment items starting at cursor.
// When hints.Collection is set, the listing is scoped to that collection.
// Parent titles for the page are resolved before returning.
func (c *Client) ListAttachments(ctx context.Context, sel types.LibrarySelector, hints types.ListHints, cursor types.Cursor, pageSize int) (types.AttachmentPage, error) {
	if pageSize <= 0 || pageSize > types.MaxPageSize {
		pageSize = types.MaxPageSize
	}

	path := "/" + sel.Prefix() + "/items"
	if hints.Collection != "" {
		path = "/" + sel.Prefix() + "/collections/" + url.PathEscape(hints.Collection) + "/items"
	}
	params := url.Values{
		"itemType":  {"attachment"},
		"format":    {"json"},
		"start":     {strconv.Itoa(int(cursor))},
		"limit":     {strconv.Itoa(pageSize)},
		"sort":      {"dateAdded"},
		"direction": {"asc"},
	}

	resp, err := c.get(ctx, sel, path, params)
	if err != nil {
		return types.AttachmentPage{}, err
	}
	defer resp.Body.Close()

	var items []apiItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return types.AttachmentPage{}, fmt.Errorf("parsing attachment listing: %w", err)
	}

	page := types.AttachmentPage{
		Attachments: make([]types.AttachmentRecord, 0, len(items)),
	}
	for _, it := range items {
		page.Attachments = append(page.Attachments, toRecord(it, hints))
	}

	next := int(cursor) + len(items)
	if total, err := strconv.Atoi(resp.Header.Get("Total-Results")); err == nil {
		page.HasNext = len(items) > 0 && next < total
	} else {
		page.HasNext = len(items) == pageSize
	}
	page.Next = types.Cursor(next)

	if err := c.resolveParents(ctx, sel, page.Attachments); err != nil {
		return types.AttachmentPage{}, err
	}

	slog.Debug("listed attachments",
		"library", sel.Prefix(), "collection", hints.Collection,
		"start", int(cursor), "count", len(items), "has_next", page.HasNext)
	return page, nil
}

func toRecord(it apiItem, hints types.ListHints) types.AttachmentRecord {
	rec := types.AttachmentRecord{
		Key:         it.Key,
		ParentKey:   it.Data.ParentItem,
		Title:       strings.TrimSpace(it.Data.Title),
		Filename:    it.Data.Filename,
		Mode:        types.StorageMode(it.Data.LinkMode),
		ContentType: it.Data.ContentType,
		Version:     it.Version,
		Collections: append([]string(nil), it.Data.Collections...),
	}
	for _, t := range it.Data.Tags {
		rec.Tags = append(rec.Tags, t.Tag)
	}
	// Child attachments inherit collection membership from their parent,
	// so the scoped listing is the only evidence of it.
	if hints.Collection != "" && !contains(rec.Collections, hints.Collection) {
		rec.Collections = append(rec.Collections, hints.Collection)
	}
	return rec
}

// resolveParents fills ParentTitle on each record, fetching unknown parents
// in batches.
func (c *Client) resolveParents(ctx context.Context, sel types.LibrarySelector, recs []types.AttachmentRecord) error {
	var missing []string
	seen := make(map[string]bool)
	for _, r := range recs {
		if r.ParentKey == "" || seen[r.ParentKey] {
			continue
		}
		seen[r.ParentKey] = true
		if _, ok := c.parentTitles[r.ParentKey]; !ok {
			missing = append(missing, r.ParentKey)
		}
	}

	for start := 0; start < len(missing); start += parentBatchSize {
		end := min(start+parentBatchSize, len(missing))
		batch := missing[start:end]
		if err := c.fetchParents(ctx, sel, batch); err != nil {
			return err
		}
		// Parents the API did not return (deleted, or in the trash) resolve
		// to an empty title rather than being requested again.
		for _, k := range batch {
			if _, ok := c.parentTitles[k]; !ok {
				c.parentTitles[k] = ""
			}
		}
	}

	for i := range recs {
		if recs[i].ParentKey != "" {
			recs[i].ParentTitle = c.parentTitles[recs[i].ParentKey]
		}
	}
	return nil
}

func (c *Client) fetchParents(ctx context.Context, sel types.LibrarySelector, keys []string) error {
	params := url.Values{
		"itemKey": {strings.Join(keys, ",")},
		"format":  {"json"},
	}
	resp, err := c.get(ctx, sel, "/"+sel.Prefix()+"/items", params)
	if err != nil {
		return fmt.Errorf("resolving parent items: %w", err)
	}
	defer resp.Body.Close()

	var items []apiItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("parsing parent items: %w", err)
	}
	for _, it := range items {
		c.parentTitles[it.Key] = it.Data.displayTitle()
	}
	return nil
}

// get issues an authenticated GET and maps error statuses. The caller owns
// the returned body.
func (c *Client) get(ctx context.Context, sel types.LibrarySelector, path string, params url.Values) (*http.Response, error) {
	reqURL := apiBase + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", apiVersion)
	req.Header.Set("Zotero-API-Key", sel.APIKey)
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("zotero API request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		drain(resp)
		return nil, fmt.Errorf("%w (HTTP %d for %s)", ErrUnauthorized, resp.StatusCode, sel.Prefix())
	case http.StatusNotFound:
		drain(resp)
		return nil, fmt.Errorf("%w: %s%s", ErrLibraryNotFound, sel.Prefix(), strings.TrimPrefix(path, "/"+sel.Prefix()))
	default:
		msg := readSnippet(resp)
		return nil, fmt.Errorf("zotero API returned HTTP %d for %s: %s", resp.StatusCode, path, msg)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// readSnippet returns the start of an error body, which the API uses for a
// plain-text explanation.
func readSnippet(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return strings.TrimSpace(string(b))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
