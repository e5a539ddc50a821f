// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLConverter converts web page snapshots. Scripts, styles and unsafe
// attributes are stripped before conversion unless the sanitize option is
// off; the domain option resolves relative links.
type HTMLConverter struct {
	md     *converter.Converter
	policy *bluemonday.Policy
}

// NewHTMLConverter returns an HTMLConverter with CommonMark and table
// support.
func NewHTMLConverter() *HTMLConverter {
	return &HTMLConverter{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Convert implements Converter.
func (h *HTMLConverter) Convert(ctx context.Context, data []byte, contentType string, options map[string]string) (string, error) {
	doc, err := decodeText(data, contentType)
	if err != nil {
		return "", err
	}
	if enabled(options, OptionSanitize, true) {
		doc = h.policy.Sanitize(doc)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var md string
	if domain := options[OptionDomain]; domain != "" {
		md, err = h.md.ConvertString(doc, converter.WithDomain(domain))
	} else {
		md, err = h.md.ConvertString(doc)
	}
	if err != nil {
		return "", fmt.Errorf("html to markdown: %w", err)
	}
	return finish(md), nil
}
