package picload

import (
	"bytes"
	"fmt"
	"image/png"
)

// loadPNG decodes a PNG. The codec handles palette expansion, tRNS alpha
// and 16-bit depth; the eXIf chunk walk and orientation are ours.
func loadPNG(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, pngSignature) {
		return nil, fmt.Errorf("%s is not a PNG: %w", path, ErrBadMagic)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read PNG header %s: %w", path, err)
	}

	if err := o.checkDimensions("PNG", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode PNG %s: %w", path, err)
	}

	buf, err := toBuffer(img, o, "PNG")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if payload := exifFromPNG(data); payload != nil {
		buf = applyOrientation(buf, exifOrientation(payload))
	}

	return newStatic(buf), nil
}
