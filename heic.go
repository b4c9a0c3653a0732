package picload

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/heic"
)

// loadHEIC decodes a HEIC/HEIF still. libheif applies the irot and imir
// transforms during decode, so no orientation pass happens here.
func loadHEIC(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if !isobmffBrand(data, "heic", "heix", "hevc", "hevx", "mif1", "msf1") {
		return nil, fmt.Errorf("%s is not a HEIC: %w", path, ErrBadMagic)
	}

	cfg, err := heic.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read HEIC header %s: %w", path, err)
	}

	if err := o.checkDimensions("HEIC", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode HEIC %s: %w", path, err)
	}

	buf, err := toBuffer(img, o, "HEIC")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return newStatic(buf), nil
}
