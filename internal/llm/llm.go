package llm

import (
	"context"

	"bear-kitchen/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// ImageInput is a self-describing image: its MIME type and raw bytes.
type ImageInput struct {
	MimeType string
	Data     []byte
}

// VisionGenerator generates text from an image and a prompt.
type VisionGenerator interface {
	GenerateFromImage(ctx context.Context, img ImageInput, prompt string) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
