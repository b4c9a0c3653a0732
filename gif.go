package picload

import (
	"bytes"
	"fmt"
	"image/gif"
	"time"
)

// loadGIF decodes a GIF. The LZW bitstream is the codec's job; frame
// compositing is ours: frames accumulate onto a persistent canvas the size
// of the logical screen, each frame overwriting only the region covered by
// its own image descriptor, and a transparent index leaves the existing
// canvas pixel untouched rather than erasing it to the background.
func loadGIF(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if len(data) < 6 || string(data[0:4]) != "GIF8" {
		return nil, fmt.Errorf("%s is not a GIF: %w", path, ErrBadMagic)
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode GIF %s: %w", path, err)
	}

	if len(g.Image) == 0 {
		return nil, fmt.Errorf("%s has no frames: %w", path, ErrTruncated)
	}

	canvasW, canvasH := g.Config.Width, g.Config.Height
	if canvasW == 0 || canvasH == 0 {
		// Some encoders omit the logical screen size.
		b := g.Image[0].Bounds()
		canvasW, canvasH = b.Max.X, b.Max.Y
	}

	if err := o.checkDimensions("GIF", canvasW, canvasH); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	canvas := make([]byte, canvasW*canvasH*4)
	frames := make([]Frame, 0, len(g.Image))

	for i, frame := range g.Image {
		bounds := frame.Bounds()

		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			if y < 0 || y >= canvasH {
				continue
			}

			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				if x < 0 || x >= canvasW {
					continue
				}

				idx := frame.Pix[(y-bounds.Min.Y)*frame.Stride+(x-bounds.Min.X)]
				if int(idx) >= len(frame.Palette) {
					continue
				}

				// The transparent index maps to a zero-alpha palette entry;
				// skipping it preserves the prior canvas contents.
				r, gr, b, a := frame.Palette[idx].RGBA()
				if a == 0 {
					continue
				}

				dst := (y*canvasW + x) * 4
				canvas[dst+0] = byte(r >> 8)
				canvas[dst+1] = byte(gr >> 8)
				canvas[dst+2] = byte(b >> 8)
				canvas[dst+3] = 0xFF
			}
		}

		// Delay is in centiseconds, floored to avoid zero-delay spins.
		var delay time.Duration
		if i < len(g.Delay) {
			delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		if delay < o.MinFrameDelay {
			delay = o.MinFrameDelay
		}

		buf, err := NewBufferRaw(canvasW, canvasH, bytes.Clone(canvas))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		frames = append(frames, Frame{Buffer: buf, Delay: delay})
	}

	return newAnimation(frames)
}
