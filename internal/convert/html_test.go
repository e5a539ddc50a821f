// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLConverter(t *testing.T) {
	h := NewHTMLConverter()
	ctx := context.Background()

	t.Run("structure and scripts", func(t *testing.T) {
		page := `<html><head><title>Snapshot</title><style>p{color:red}</style></head>
<body><h1>Deep Learning</h1><p>Hello <b>world</b>.</p><script>alert("x")</script></body></html>`
		got, err := h.Convert(ctx, []byte(page), "text/html", nil)
		require.NoError(t, err)
		assert.Contains(t, got, "# Deep Learning")
		assert.Contains(t, got, "Hello **world**.")
		assert.NotContains(t, got, "alert")
		assert.NotContains(t, got, "color:red")
	})

	t.Run("tables", func(t *testing.T) {
		page := `<table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>`
		got, err := h.Convert(ctx, []byte(page), "text/html", nil)
		require.NoError(t, err)
		assert.Regexp(t, `\|\s*1\s*\|\s*2\s*\|`, got)
	})

	t.Run("domain resolves relative links", func(t *testing.T) {
		page := `<p><a href="/paper/42">Paper</a></p>`
		got, err := h.Convert(ctx, []byte(page), "text/html", map[string]string{OptionDomain: "example.org"})
		require.NoError(t, err)
		assert.Contains(t, got, "example.org/paper/42")
	})

	t.Run("legacy charset from meta tag", func(t *testing.T) {
		page := "<html><head><meta charset=\"iso-8859-1\"></head><body><p>Caf\xe9</p></body></html>"
		got, err := h.Convert(ctx, []byte(page), "text/html", nil)
		require.NoError(t, err)
		assert.Equal(t, "Café\n", got)
	})

	t.Run("sanitize can be disabled", func(t *testing.T) {
		page := `<p>Kept</p>`
		got, err := h.Convert(ctx, []byte(page), "text/html", map[string]string{OptionSanitize: "false"})
		require.NoError(t, err)
		assert.Equal(t, "Kept\n", got)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := h.Convert(cctx, []byte("<p>x</p>"), "text/html", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
