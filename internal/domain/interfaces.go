package domain

import "context"

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// The frame capture device and the barcode decoder are external collaborators.
// The core consumes them as black boxes: a source blocks on device I/O and
// yields opaque frames, a decoder turns one frame into zero or more code
// strings with no ordering guarantee within the frame.

// Frame is one captured video frame, opaque to the core.
type Frame []byte

// FrameSource acquires frames from a capture device. NextFrame blocks until a
// frame is available, the source is exhausted (io.EOF), or ctx is cancelled.
type FrameSource interface {
	NextFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Decoder extracts barcode payloads from a single frame. Stateless per frame.
type Decoder interface {
	Decode(frame Frame) []string
}
