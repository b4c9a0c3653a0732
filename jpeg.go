package picload

import (
	"bytes"
	"fmt"

	"github.com/pixiv/go-libjpeg/jpeg"
)

// loadJPEG decodes a JPEG via libjpeg and applies the EXIF orientation,
// which the codec itself does not correct.
func loadJPEG(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil, fmt.Errorf("%s is not a JPEG: %w", path, ErrBadMagic)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read JPEG header %s: %w", path, err)
	}

	if err := o.checkDimensions("JPEG", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	img, err := jpeg.DecodeIntoRGBA(bytes.NewReader(data), &jpeg.DecoderOptions{})
	if err != nil {
		return nil, fmt.Errorf("decode JPEG %s: %w", path, err)
	}

	buf, err := toBuffer(img, o, "JPEG")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if payload := exifFromJPEG(data); payload != nil {
		buf = applyOrientation(buf, exifOrientation(payload))
	}

	return newStatic(buf), nil
}
