package picload

// applyOrientation returns b transformed per the EXIF orientation value.
// The eight orientations decompose into at most one rotation composed with
// at most one flip; value 1 and anything outside 1-8 are the identity and
// return b unchanged. Orientations 5-8 transpose, swapping width and height.
func applyOrientation(b *Buffer, orientation int) *Buffer {
	if orientation <= 1 || orientation > 8 {
		return b
	}

	srcWidth, srcHeight := b.Width, b.Height
	srcStride := srcWidth * 4

	dstWidth, dstHeight := srcWidth, srcHeight
	if orientation >= 5 {
		dstWidth, dstHeight = srcHeight, srcWidth
	}

	dst := make([]byte, len(b.Pix))
	dstStride := dstWidth * 4

	// Forward mapping: each source pixel (sx, sy) lands at (dx, dy).
	for sy := 0; sy < srcHeight; sy++ {
		for sx := 0; sx < srcWidth; sx++ {
			var dx, dy int

			switch orientation {
			case 2: // Flip horizontal
				dx, dy = srcWidth-1-sx, sy
			case 3: // Rotate 180
				dx, dy = srcWidth-1-sx, srcHeight-1-sy
			case 4: // Flip vertical
				dx, dy = sx, srcHeight-1-sy
			case 5: // Transpose (flip along TL-BR diagonal)
				dx, dy = sy, sx
			case 6: // Rotate 90 CW
				dx, dy = srcHeight-1-sy, sx
			case 7: // Transverse (flip along TR-BL diagonal)
				dx, dy = srcHeight-1-sy, srcWidth-1-sx
			case 8: // Rotate 270 CW
				dx, dy = sy, srcWidth-1-sx
			}

			srcOffset := sy*srcStride + sx*4
			dstOffset := dy*dstStride + dx*4
			copy(dst[dstOffset:dstOffset+4], b.Pix[srcOffset:srcOffset+4])
		}
	}

	return &Buffer{Pix: dst, Width: dstWidth, Height: dstHeight}
}

// orientImage applies the orientation transform to every frame.
func orientImage(m *Image, orientation int) *Image {
	if orientation <= 1 || orientation > 8 {
		return m
	}

	for i := range m.Frames {
		m.Frames[i].Buffer = applyOrientation(m.Frames[i].Buffer, orientation)
	}

	return m
}
