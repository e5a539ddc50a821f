// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"

	"github.com/pdiddy/files2md/internal/container"
)

// DefaultMarkitdownImage is the container image used when none is configured.
const DefaultMarkitdownImage = "markitdown:latest"

// MarkitdownConverter converts attachments by piping them through the
// markitdown container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type MarkitdownConverter struct {
	runtime container.Runtime
	image   string
}

// NewMarkitdownConverter creates a converter that runs image with rt. It
// verifies that the image exists locally before returning.
func NewMarkitdownConverter(rt container.Runtime, image string) (*MarkitdownConverter, error) {
	if image == "" {
		image = DefaultMarkitdownImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownConverter{runtime: rt, image: image}, nil
}

// Convert pipes data through the markitdown container and returns the
// resulting Markdown text. The content type is passed as a hint since the
// tool cannot see a filename on stdin.
func (m *MarkitdownConverter) Convert(ctx context.Context, data []byte, contentType string, _ map[string]string) (string, error) {
	var args []string
	if mt, params, err := mime.ParseMediaType(contentType); err == nil {
		args = append(args, "--mime-type", mt)
		if cs := params["charset"]; cs != "" {
			args = append(args, "--charset", cs)
		}
	}

	var out bytes.Buffer
	if err := m.runtime.Run(ctx, m.image, args, bytes.NewReader(data), &out); err != nil {
		return "", fmt.Errorf("markitdown: %w", err)
	}
	if out.Len() == 0 {
		return "", errors.New("markitdown produced empty output")
	}
	return finish(out.String()), nil
}
