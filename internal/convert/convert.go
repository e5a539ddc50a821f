// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns stored attachment bytes into Markdown. Native
// backends handle HTML snapshots, PDFs and plain text in-process; the
// markitdown container image covers everything else when a container
// runtime is available.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// ErrUnsupportedContentType is returned when no backend accepts the
// attachment's content type.
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Converter transforms one attachment's bytes into Markdown text.
type Converter interface {
	Convert(ctx context.Context, data []byte, contentType string, options map[string]string) (string, error)
}

// Option keys understood by the converters.
const (
	OptionBackend   = "backend"
	OptionSanitize  = "sanitize"
	OptionDomain    = "domain"
	OptionPageBreak = "page_break"
)

// Backend selectors for OptionBackend.
const (
	BackendAuto       = "auto"
	BackendNative     = "native"
	BackendMarkitdown = "markitdown"
)

// Router dispatches to a backend by content type and the backend option.
type Router struct {
	native map[string]Converter

	loadMarkitdown func() (Converter, error)
	once           sync.Once
	markitdown     Converter
	markitdownErr  error

	logger *slog.Logger
}

// NewRouter returns a Router with the native HTML, PDF and text backends.
// loadMarkitdown is called at most once, the first time a conversion needs
// the container backend; nil disables it.
func NewRouter(loadMarkitdown func() (Converter, error), logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	html := NewHTMLConverter()
	text := &TextConverter{}
	return &Router{
		native: map[string]Converter{
			"text/html":             html,
			"application/xhtml+xml": html,
			"application/pdf":       &PDFConverter{},
			"text/plain":            text,
			"text/markdown":         text,
			"text/x-markdown":       text,
		},
		loadMarkitdown: loadMarkitdown,
		logger:         logger,
	}
}

// Convert implements Converter.
func (r *Router) Convert(ctx context.Context, data []byte, contentType string, options map[string]string) (string, error) {
	mt, full := mediaType(contentType, data)

	backend := strings.ToLower(strings.TrimSpace(options[OptionBackend]))
	if backend == "" {
		backend = BackendAuto
	}

	var c Converter
	switch backend {
	case BackendNative:
		native, ok := r.native[mt]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, mt)
		}
		c = native
	case BackendMarkitdown:
		m, err := r.containerBackend()
		if err != nil {
			return "", err
		}
		c = m
	case BackendAuto:
		if native, ok := r.native[mt]; ok {
			c = native
			break
		}
		if r.loadMarkitdown == nil {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, mt)
		}
		m, err := r.containerBackend()
		if err != nil {
			return "", fmt.Errorf("%w: %s (%v)", ErrUnsupportedContentType, mt, err)
		}
		c = m
	default:
		return "", fmt.Errorf("unknown %s %q (want %s, %s or %s)",
			OptionBackend, backend, BackendAuto, BackendNative, BackendMarkitdown)
	}

	r.logger.Debug("converting", "content_type", mt, "backend", backend, "bytes", len(data))
	out, err := c.Convert(ctx, data, full, options)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("conversion of %s produced no text", mt)
	}
	return out, nil
}

func (r *Router) containerBackend() (Converter, error) {
	if r.loadMarkitdown == nil {
		return nil, errors.New("markitdown backend not configured")
	}
	r.once.Do(func() {
		r.markitdown, r.markitdownErr = r.loadMarkitdown()
		if r.markitdownErr != nil {
			r.logger.Warn("markitdown backend unavailable", "error", r.markitdownErr)
		}
	})
	return r.markitdown, r.markitdownErr
}

// mediaType returns the lowercased media type and the full content type
// string to hand to the backend. Missing or generic types are sniffed from
// the data.
func mediaType(contentType string, data []byte) (string, string) {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "application/octet-stream" {
		return mt, contentType
	}
	sniffed := http.DetectContentType(data)
	mt, _, err := mime.ParseMediaType(sniffed)
	if err != nil {
		return "application/octet-stream", sniffed
	}
	return mt, sniffed
}

// enabled reports whether a boolean option is on, defaulting to def.
func enabled(options map[string]string, key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(options[key])) {
	case "":
		return def
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}

// finish trims trailing whitespace and terminates non-empty output with a
// single newline.
func finish(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}
