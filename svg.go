package picload

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// loadSVG rasterizes an SVG at its intrinsic size, falling back to
// defaultSVGSize when the document declares none. Either side is clamped
// to MaxSVGSide with the aspect ratio preserved.
func loadSVG(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	icon, err := parseSVG(data)
	if err != nil {
		return nil, fmt.Errorf("parse SVG %s: %w", path, err)
	}

	w, h := svgSize(icon, o)

	buf, err := rasterizeSVG(icon, w, h, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return newStatic(buf), nil
}

func parseSVG(data []byte) (*oksvg.SvgIcon, error) {
	return oksvg.ReadIconStream(bytes.NewReader(data))
}

// svgSize resolves the raster size for an icon: the intrinsic viewbox when
// present, defaultSVGSize otherwise, clamped to MaxSVGSide.
func svgSize(icon *oksvg.SvgIcon, o *Options) (int, int) {
	w := icon.ViewBox.W
	h := icon.ViewBox.H

	if w <= 0 || h <= 0 {
		w, h = defaultSVGSize, defaultSVGSize
	}

	max := float64(o.MaxSVGSide)
	if w > max || h > max {
		scale := math.Min(max/w, max/h)
		w *= scale
		h *= scale
	}

	wi := int(math.Round(w))
	hi := int(math.Round(h))
	if wi < 1 {
		wi = 1
	}
	if hi < 1 {
		hi = 1
	}

	return wi, hi
}

// rasterizeSVG draws the icon into a fresh RGBA raster of the given size.
// The scanner produces premultiplied alpha, which toBuffer undoes.
func rasterizeSVG(icon *oksvg.SvgIcon, w, h int, o *Options) (*Buffer, error) {
	if err := o.checkDimensions("SVG", w, h); err != nil {
		return nil, err
	}

	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	return toBuffer(img, o, "SVG")
}
