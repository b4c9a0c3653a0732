package picload

import (
	"image"
	"image/draw"
)

// toBuffer converts a codec-decoded image into a canonical straight-RGBA
// Buffer that owns its memory. This is the single reinterpretation point
// between library pixel layouts and the rest of the pipeline: NRGBA rows are
// copied, premultiplied RGBA is divided back out, and everything else
// (YCbCr, Gray, Paletted, CMYK, 16-bit) goes through the generic converter.
func toBuffer(img image.Image, o *Options, format string) (*Buffer, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if err := o.checkDimensions(format, width, height); err != nil {
		return nil, err
	}

	if bounds.Min == (image.Point{}) {
		switch src := img.(type) {
		case *image.NRGBA:
			return nrgbaToBuffer(src, width, height)
		case *image.RGBA:
			return rgbaToBuffer(src, width, height)
		}
	}

	// Generic path: stdlib draw performs the color-model conversion,
	// including un-premultiplying alpha-premultiplied sources.
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	return NewBufferRaw(width, height, dst.Pix)
}

// nrgbaToBuffer copies straight-RGBA rows out of src, dropping any stride
// padding so no decoder-internal memory is aliased.
func nrgbaToBuffer(src *image.NRGBA, width, height int) (*Buffer, error) {
	size, err := pixelBytes(width, height)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, size)
	rowBytes := width * 4

	for y := 0; y < height; y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+rowBytes]
		copy(pix[y*rowBytes:(y+1)*rowBytes], srcRow)
	}

	return NewBufferRaw(width, height, pix)
}

// rgbaToBuffer un-premultiplies an alpha-premultiplied RGBA image into a
// straight-RGBA Buffer.
func rgbaToBuffer(src *image.RGBA, width, height int) (*Buffer, error) {
	size, err := pixelBytes(width, height)
	if err != nil {
		return nil, err
	}

	pix := make([]byte, size)
	rowBytes := width * 4

	for y := 0; y < height; y++ {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+rowBytes]
		dstRow := pix[y*rowBytes : (y+1)*rowBytes]

		for x := 0; x < rowBytes; x += 4 {
			r, g, b, a := srcRow[x], srcRow[x+1], srcRow[x+2], srcRow[x+3]
			dstRow[x], dstRow[x+1], dstRow[x+2] = unpremultiply(r, g, b, a)
			dstRow[x+3] = a
		}
	}

	return NewBufferRaw(width, height, pix)
}

// unpremultiply divides the alpha back out of a premultiplied pixel,
// rounding to nearest.
func unpremultiply(r, g, b, a byte) (byte, byte, byte) {
	switch a {
	case 0:
		return 0, 0, 0
	case 0xFF:
		return r, g, b
	}

	aa := uint32(a)
	un := func(c byte) byte {
		v := (uint32(c)*0xFF + aa/2) / aa
		if v > 0xFF {
			v = 0xFF
		}

		return byte(v)
	}

	return un(r), un(g), un(b)
}
