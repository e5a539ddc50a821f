// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		contentType string
		want        string
	}{
		{"ascii", "plain", "text/plain", "plain"},
		{"utf-8", "naïve", "text/plain; charset=utf-8", "naïve"},
		{"declared latin-1", "caf\xe9", "text/plain; charset=iso-8859-1", "café"},
		{"utf-8 bom", "\xef\xbb\xbfhello", "", "hello"},
		{"utf-16 bom", "\xff\xfeh\x00i\x00", "", "hi"},
		{"crlf", "a\r\nb\rc", "text/plain", "a\nb\nc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeText([]byte(tt.data), tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextConverter(t *testing.T) {
	got, err := (&TextConverter{}).Convert(context.Background(), []byte("# Heading\n\nBody\n\n\n"), "text/markdown", nil)
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nBody\n", got)
}

func TestFinish(t *testing.T) {
	assert.Equal(t, "", finish(" \n\t"))
	assert.Equal(t, "x\n", finish("x"))
	assert.Equal(t, "  indented\n", finish("  indented \r\n\n"))
}
