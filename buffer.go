package picload

import (
	"fmt"
	"time"
)

// Buffer is the canonical pixel buffer: a contiguous straight (non-
// premultiplied) RGBA byte slice with 8 bits per channel. The invariant
// len(Pix) == Width*Height*4 holds for every constructed Buffer.
type Buffer struct {
	Pix           []byte
	Width, Height int
}

// pixelBytes returns Width*Height*4 with overflow checking.
func pixelBytes(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%dx%d: %w", width, height, ErrDimensions)
	}

	// The hard construction ceiling is independent of per-call Options;
	// decoders apply their (possibly lower) configured ceiling first.
	n := int64(width) * int64(height)
	if n > defaultMaxPixels {
		return 0, fmt.Errorf("%dx%d exceeds %d pixels: %w", width, height, int64(defaultMaxPixels), ErrDimensions)
	}

	return int(n * 4), nil
}

// NewBuffer allocates a zeroed (fully transparent) buffer.
func NewBuffer(width, height int) (*Buffer, error) {
	size, err := pixelBytes(width, height)
	if err != nil {
		return nil, err
	}

	return &Buffer{Pix: make([]byte, size), Width: width, Height: height}, nil
}

// NewBufferRaw wraps pix as a Buffer. The byte count must match the
// dimensions exactly; a mismatch fails rather than truncating or padding.
func NewBufferRaw(width, height int, pix []byte) (*Buffer, error) {
	size, err := pixelBytes(width, height)
	if err != nil {
		return nil, err
	}

	if len(pix) != size {
		return nil, fmt.Errorf("pixel buffer is %d bytes, want %d for %dx%d: %w",
			len(pix), size, width, height, ErrDimensions)
	}

	return &Buffer{Pix: pix, Width: width, Height: height}, nil
}

// at returns the byte offset of pixel (x, y).
func (b *Buffer) at(x, y int) int {
	return (y*b.Width + x) * 4
}

// Frame is a single frame of a loaded image with its display duration.
// Static images have a single Frame with a zero Delay.
type Frame struct {
	Buffer *Buffer
	Delay  time.Duration
}

// Image is a decoded image: one or more frames that exclusively own their
// pixel data. An Image always has at least one frame.
type Image struct {
	Frames []Frame
}

// Animated reports whether the image has more than one frame. Decoders that
// produce exactly one frame yield a static image by construction.
func (m *Image) Animated() bool {
	return len(m.Frames) > 1
}

// First returns the first frame's buffer; it is always valid.
func (m *Image) First() *Buffer {
	return m.Frames[0].Buffer
}

// newStatic wraps a single buffer as a static image.
func newStatic(b *Buffer) *Image {
	return &Image{Frames: []Frame{{Buffer: b}}}
}

// newAnimation builds an Image from decoded frames.
func newAnimation(frames []Frame) (*Image, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames decoded: %w", ErrTruncated)
	}

	return &Image{Frames: frames}, nil
}
