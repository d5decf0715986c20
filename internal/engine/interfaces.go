package engine

import "context"

// Transformer abstracts the AI image transformation call. Implementations
// perform exactly one upstream call per invocation and do not retry; a
// failed job is terminal and recovery is a fresh submission.
//
// The returned bytes are always PNG-encoded regardless of the input type.
type Transformer interface {
	Transform(ctx context.Context, source []byte, mimeType string) ([]byte, error)
}
