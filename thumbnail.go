package picload

import (
	"bytes"
	"fmt"
	"image"

	"github.com/pixiv/go-libjpeg/jpeg"
	xdraw "golang.org/x/image/draw"
)

// Thumbnail loads the image at path downscaled so that both sides fit
// within size pixels. Images already within the bound come back at their
// natural size; thumbnails are never upscaled.
//
// JPEGs decode through libjpeg's scaled IDCT, skipping most of the inverse
// transform work for large sources. SVGs rasterize directly at the target
// size. Everything else decodes at full size and is resampled; for an
// animation only the first frame is used.
func Thumbnail(path string, size int, opts ...*Options) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("thumbnail size %d: %w", size, ErrDimensions)
	}

	o := applyOptions(opts)

	switch extOf(path) {
	case "jpg", "jpeg":
		return jpegThumbnail(path, size, &o)
	case "svg":
		return svgThumbnail(path, size, &o)
	}

	m, err := Load(path, &o)
	if err != nil {
		return nil, err
	}

	return scaleToFit(m.First(), size, &o)
}

// jpegThumbnail decodes a JPEG at a reduced scale. libjpeg can apply the
// IDCT at 1/8, 1/4 and 1/2 of the nominal block size; the smallest
// denominator whose output still covers the target size is chosen, then
// the remainder is resampled.
func jpegThumbnail(path string, size int, o *Options) (*Buffer, error) {
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

	target := image.Point{X: cfg.Width, Y: cfg.Height}
	for _, denom := range []int{8, 4, 2} {
		if cfg.Width/denom >= size && cfg.Height/denom >= size {
			target = image.Point{X: cfg.Width / denom, Y: cfg.Height / denom}
			break
		}
	}

	img, err := jpeg.DecodeIntoRGBA(bytes.NewReader(data), &jpeg.DecoderOptions{
		ScaleTarget: image.Rectangle{Max: target},
	})
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

	return scaleToFit(buf, size, o)
}

// svgThumbnail rasterizes the vector source once, directly at the fitted
// size, rather than rendering large and resampling down.
func svgThumbnail(path string, size int, o *Options) (*Buffer, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	icon, err := parseSVG(data)
	if err != nil {
		return nil, fmt.Errorf("parse SVG %s: %w", path, err)
	}

	w, h := svgSize(icon, o)
	w, h = fitWithin(w, h, size)

	buf, err := rasterizeSVG(icon, w, h, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return buf, nil
}

// fitWithin shrinks w x h proportionally so both sides are at most bound,
// never below 1 and never enlarging.
func fitWithin(w, h, bound int) (int, int) {
	if w <= bound && h <= bound {
		return w, h
	}

	if w >= h {
		h = h * bound / w
		w = bound
	} else {
		w = w * bound / h
		h = bound
	}

	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return w, h
}

// scaleToFit resamples buf with Catmull-Rom so both sides fit within size.
// A buffer already within the bound is returned unchanged.
func scaleToFit(buf *Buffer, size int, o *Options) (*Buffer, error) {
	w, h := fitWithin(buf.Width, buf.Height, size)
	if w == buf.Width && h == buf.Height {
		return buf, nil
	}

	src := &image.NRGBA{
		Pix:    buf.Pix,
		Stride: buf.Width * 4,
		Rect:   image.Rect(0, 0, buf.Width, buf.Height),
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)

	return NewBufferRaw(w, h, dst.Pix)
}
