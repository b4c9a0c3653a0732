package picload

import (
	"bytes"
	"fmt"

	"golang.org/x/image/tiff"
)

// loadTIFF decodes a TIFF via x/image. The codec does not honor the
// orientation tag, so it is extracted and applied here; the file itself is
// the TIFF structure the tag walker consumes.
func loadTIFF(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if !validTIFFHeader(data) {
		return nil, fmt.Errorf("%s is not a TIFF: %w", path, ErrBadMagic)
	}

	cfg, err := tiff.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read TIFF header %s: %w", path, err)
	}

	if err := o.checkDimensions("TIFF", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode TIFF %s: %w", path, err)
	}

	buf, err := toBuffer(img, o, "TIFF")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	buf = applyOrientation(buf, exifOrientation(data))

	return newStatic(buf), nil
}
