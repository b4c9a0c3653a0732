package picload

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/webp"
)

// loadWebP decodes a static or animated WebP. The codec demuxes ANMF
// frames and derives per-frame delays from the deltas between cumulative
// frame timestamps; delays are floored here. The RIFF EXIF chunk walk and
// orientation correction are ours.
func loadWebP(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return nil, fmt.Errorf("%s is not a WebP: %w", path, ErrBadMagic)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read WebP header %s: %w", path, err)
	}

	if err := o.checkDimensions("WebP", cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	anim, err := webp.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode WebP %s: %w", path, err)
	}

	frames := make([]Frame, 0, len(anim.Image))
	for i, img := range anim.Image {
		buf, err := toBuffer(img, o, "WebP")
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

	if payload := exifFromRIFF(data); payload != nil {
		m = orientImage(m, exifOrientation(payload))
	}

	return m, nil
}
