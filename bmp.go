package picload

import (
	"encoding/binary"
	"fmt"
)

// BMP compression modes from the info header.
const (
	bmpCompressionRGB  = 0
	bmpCompressionRLE8 = 1
	bmpCompressionRLE4 = 2
)

const bmpFileHeaderSize = 14

// loadBMP decodes a BMP by parsing the container manually; the format is
// simple enough that no codec library is involved. Rows are stored
// bottom-up unless the height field is negative, and are padded to 4-byte
// boundaries. Depths 24 and 32 reorder channels directly; 1/4/8-bit depths
// are indexed into the BGRA color table following the info header.
// Run-length-encoded files are rejected.
func loadBMP(path string, o *Options) (*Image, error) {
	data, err := readFileLimited(path, o)
	if err != nil {
		return nil, err
	}

	if len(data) < 54 || data[0] != 'B' || data[1] != 'M' {
		return nil, fmt.Errorf("%s is not a BMP: %w", path, ErrBadMagic)
	}

	dataOffset := int64(binary.LittleEndian.Uint32(data[10:]))
	infoSize := int64(binary.LittleEndian.Uint32(data[14:]))
	width := int32(binary.LittleEndian.Uint32(data[18:]))
	rawHeight := int32(binary.LittleEndian.Uint32(data[22:]))
	bitsPerPixel := int(binary.LittleEndian.Uint16(data[28:]))
	compression := binary.LittleEndian.Uint32(data[30:])
	clrUsed := int(binary.LittleEndian.Uint32(data[46:]))

	switch compression {
	case bmpCompressionRGB:
	case bmpCompressionRLE8:
		return nil, fmt.Errorf("%s uses RLE8 compression: %w", path, ErrUnsupported)
	case bmpCompressionRLE4:
		return nil, fmt.Errorf("%s uses RLE4 compression: %w", path, ErrUnsupported)
	default:
		return nil, fmt.Errorf("%s uses BMP compression mode %d: %w", path, compression, ErrUnsupported)
	}

	topDown := rawHeight < 0
	height := rawHeight
	if topDown {
		height = -height
	}

	if width <= 0 || height == 0 {
		return nil, fmt.Errorf("%s: BMP dimensions %dx%d: %w", path, width, rawHeight, ErrDimensions)
	}

	w, h := int(width), int(height)
	if err := o.checkDimensions("BMP", w, h); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// Rows are padded to 32-bit boundaries; all size math is 64-bit to
	// survive hostile header values.
	rowSize := ((int64(w)*int64(bitsPerPixel) + 31) / 32) * 4
	if dataOffset < 0 || dataOffset+rowSize*int64(h) > int64(len(data)) {
		return nil, fmt.Errorf("%s: BMP pixel data out of range: %w", path, ErrTruncated)
	}

	var palette [][4]byte
	if bitsPerPixel <= 8 {
		palette, err = bmpPalette(data, bmpFileHeaderSize+infoSize, bitsPerPixel, clrUsed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	pix := make([]byte, w*h*4)

	for y := 0; y < h; y++ {
		srcRow := int64(h-1-y) * rowSize
		if topDown {
			srcRow = int64(y) * rowSize
		}
		row := data[dataOffset+srcRow : dataOffset+srcRow+rowSize]

		for x := 0; x < w; x++ {
			dst := (y*w + x) * 4

			switch bitsPerPixel {
			case 32:
				src := x * 4
				pix[dst+0] = row[src+2]
				pix[dst+1] = row[src+1]
				pix[dst+2] = row[src+0]
				pix[dst+3] = row[src+3]
			case 24:
				src := x * 3
				pix[dst+0] = row[src+2]
				pix[dst+1] = row[src+1]
				pix[dst+2] = row[src+0]
				pix[dst+3] = 0xFF
			case 8:
				writePaletted(pix[dst:], palette, int(row[x]))
			case 4:
				idx := int(row[x/2])
				if x%2 == 0 {
					idx >>= 4
				}
				writePaletted(pix[dst:], palette, idx&0x0F)
			case 1:
				idx := int(row[x/8]>>(7-x%8)) & 1
				writePaletted(pix[dst:], palette, idx)
			default:
				return nil, fmt.Errorf("%s: BMP bit depth %d: %w", path, bitsPerPixel, ErrUnsupported)
			}
		}
	}

	buf, err := NewBufferRaw(w, h, pix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return newStatic(buf), nil
}

// bmpPalette reads the BGRA color table located after the info header.
// A zero biClrUsed means the full table for the bit depth is present.
func bmpPalette(data []byte, offset int64, bitsPerPixel, clrUsed int) ([][4]byte, error) {
	count := clrUsed
	if count == 0 {
		count = 1 << bitsPerPixel
	}

	if count < 0 || count > 256 {
		return nil, fmt.Errorf("BMP color table of %d entries: %w", count, ErrUnsupported)
	}

	if offset < bmpFileHeaderSize || offset+int64(count)*4 > int64(len(data)) {
		return nil, fmt.Errorf("BMP color table out of range: %w", ErrTruncated)
	}

	palette := make([][4]byte, count)
	for i := range palette {
		entry := data[offset+int64(i)*4:]
		// Entries are BGRA; the reserved byte is not an alpha channel.
		palette[i] = [4]byte{entry[2], entry[1], entry[0], 0xFF}
	}

	return palette, nil
}

// writePaletted stores the palette color for idx, or transparent black for
// an index past the table.
func writePaletted(dst []byte, palette [][4]byte, idx int) {
	if idx >= len(palette) {
		return
	}

	copy(dst[:4], palette[idx][:])
}
