package provider

import (
	"context"
	"encoding/base64"
	"errors"
)

// ErrNoChoices marks a 2xx chat response whose body lacks the choices field.
// Callers treat it as an inconclusive analysis rather than a hard failure.
var ErrNoChoices = errors.New("chat response missing choices")

// ImagePayload is one image attached to a chat request.
type ImagePayload struct {
	DataURI string
	// RawSize is the pre-encoding byte count, used for log summaries.
	RawSize int
}

// ChatPayload is a single vision chat-completion request.
type ChatPayload struct {
	System    string
	User      string
	Images    []ImagePayload
	MaxTokens int
}

// VisionProvider abstracts the chat-completion backend for the monitor.
type VisionProvider interface {
	ID() string
	Call(ctx context.Context, payload ChatPayload) (string, error)
}

// JPEGDataURI wraps raw JPEG bytes into the data-URL form the chat API
// expects for embedded images.
func JPEGDataURI(data []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)
}
