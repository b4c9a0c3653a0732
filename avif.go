package picload

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/avif"
)

// loadAVIF decodes a static or animated AVIF. The codec applies the irot
// and imir container transforms itself, so no orientation pass happens
// here; only the EXIF payload walk for Tags goes through the ISOBMFF path.
func loadAVIF(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if !isobmffBrand(data, "avif", "avis") {
		return nil, fmt.Errorf("%s is not an AVIF: %w", path, ErrBadMagic)
	}

	cfg, err := avif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read AVIF header %s: %w", path, err)
	}

	if err := o.checkDimensions("AVIF", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	anim, err := avif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode AVIF %s: %w", path, err)
	}

	frames := make([]Frame, 0, len(anim.Image))
	for i, img := range anim.Image {
		buf, err := toBuffer(img, o, "AVIF")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		var delay float64
		if i < len(anim.Delay) {
			delay = anim.Delay[i] // seconds
		}

		frames = append(frames, Frame{Buffer: buf, Delay: o.frameDelay(delay)})
	}

	m, err := newAnimation(frames)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return m, nil
}

// isobmffBrand reports whether data starts with an ftyp box declaring one
// of the given major brands.
func isobmffBrand(data []byte, brands ...string) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}

	major := string(data[8:12])
	for _, b := range brands {
		if major == b {
			return true
		}
	}

	return false
}
