// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// TextConverter passes plain text and Markdown through unchanged apart from
// decoding to UTF-8 and normalizing line endings.
type TextConverter struct{}

// Convert implements Converter.
func (t *TextConverter) Convert(_ context.Context, data []byte, contentType string, _ map[string]string) (string, error) {
	text, err := decodeText(data, contentType)
	if err != nil {
		return "", err
	}
	return finish(text), nil
}

// decodeText converts data to UTF-8 using the charset from the BOM, the
// content type or an HTML meta tag, in that order.
func decodeText(data []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(data), contentType)
	if err != nil {
		return "", fmt.Errorf("detecting charset: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decoding text: %w", err)
	}
	s := strings.TrimPrefix(string(out), "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n"), nil
}
