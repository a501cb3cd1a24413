package scanner

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/borrowmate/borrowmate/internal/domain"
)

// ─── Line Source ────────────────────────────────────────────────────────────
// Keyboard-wedge barcode scanners present as a keyboard and emit one code
// per line, so a line reader covers the common hardware without any camera
// dependency. Camera capture plugs in behind the same FrameSource/Decoder
// pair.

// LineSource yields one frame per input line.
type LineSource struct {
	r      *bufio.Reader
	closer io.Closer
}

// NewLineSource wraps r as a frame source. If r is also an io.Closer it is
// closed by Close.
func NewLineSource(r io.Reader) *LineSource {
	s := &LineSource{r: bufio.NewReader(r)}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NextFrame blocks on the next line. Reading is not interruptible mid-line;
// cancellation is observed before each read, so a stop takes effect at the
// next frame boundary.
func (s *LineSource) NextFrame(ctx context.Context) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	line, err := s.r.ReadString('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	return domain.Frame(line), nil
}

func (s *LineSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// LineDecoder treats the whole trimmed line as one barcode payload.
type LineDecoder struct{}

func (LineDecoder) Decode(frame domain.Frame) []string {
	code := strings.TrimSpace(string(frame))
	if code == "" {
		return nil
	}
	return []string{code}
}
