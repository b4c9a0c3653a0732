package picload

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/jpegxl"
)

// loadJXL decodes a JPEG XL image, either the bare codestream or the
// ISOBMFF container form. The codec honors the orientation field of the
// codestream header itself.
func loadJXL(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	container := bytes.HasPrefix(data, jxlSignature)
	codestream := len(data) >= 2 && data[0] == 0xFF && data[1] == 0x0A
	if !container && !codestream {
		return nil, fmt.Errorf("%s is not a JPEG XL: %w", path, ErrBadMagic)
	}

	cfg, err := jpegxl.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read JPEG XL header %s: %w", path, err)
	}

	if err := o.checkDimensions("JPEG XL", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	anim, err := jpegxl.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode JPEG XL %s: %w", path, err)
	}

	frames := make([]Frame, 0, len(anim.Image))
	for i, img := range anim.Image {
		buf, err := toBuffer(img, o, "JPEG XL")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		var delay int
		if i < len(anim.Delay) {
			delay = anim.Delay[i] // milliseconds
		}

		frames = append(frames, Frame{Buffer: buf, Delay: o.frameDelayMillis(delay)})
	}

	m, err := newAnimation(frames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}
