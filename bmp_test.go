package picload

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// bmpHeader assembles the 54-byte file plus info header.
func bmpHeader(width, height int32, bpp uint16, compression, clrUsed uint32, dataOffset uint32) []byte {
	le := binary.LittleEndian

	b := []byte{'B', 'M'}
	b = le.AppendUint32(b, 0) // file size, unchecked
	b = le.AppendUint32(b, 0) // reserved
	b = le.AppendUint32(b, dataOffset)
	b = le.AppendUint32(b, 40) // BITMAPINFOHEADER
	b = le.AppendUint32(b, uint32(width))
	b = le.AppendUint32(b, uint32(height))
	b = le.AppendUint16(b, 1) // planes
	b = le.AppendUint16(b, bpp)
	b = le.AppendUint32(b, compression)
	b = le.AppendUint32(b, 0) // image size
	b = le.AppendUint32(b, 0) // x pixels per meter
	b = le.AppendUint32(b, 0) // y pixels per meter
	b = le.AppendUint32(b, clrUsed)
	b = le.AppendUint32(b, 0) // important colors

	return b
}

func writeBMP(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "image.bmp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadBMP24BitBottomUp(t *testing.T) {
	data := bmpHeader(2, 2, 24, bmpCompressionRGB, 0, 54)
	// Rows are stored bottom-up as BGR with 4-byte padding.
	data = append(data,
		0xFF, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0, 0, // bottom row: blue, white
		0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0, 0, // top row: red, green
	)

	m, err := Load(writeBMP(t, data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := m.First()
	if buf.Width != 2 || buf.Height != 2 {
		t.Fatalf("got %dx%d, want 2x2", buf.Width, buf.Height)
	}

	expect := map[[2]int][4]byte{
		{0, 0}: {255, 0, 0, 255},
		{1, 0}: {0, 255, 0, 255},
		{0, 1}: {0, 0, 255, 255},
		{1, 1}: {255, 255, 255, 255},
	}
	for pos, want := range expect {
		if got := pixel(buf, pos[0], pos[1]); got != want {
			t.Errorf("pixel %v = %v, want %v", pos, got, want)
		}
	}
}

func TestLoadBMP24BitTopDown(t *testing.T) {
	data := bmpHeader(2, -2, 24, bmpCompressionRGB, 0, 54)
	data = append(data,
		0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00, 0, 0, // top row: red, green
		0xFF, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0, 0, // bottom row: blue, white
	)

	m, err := Load(writeBMP(t, data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := m.First()
	if got := pixel(buf, 0, 0); got != ([4]byte{255, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want red", got)
	}
	if got := pixel(buf, 0, 1); got != ([4]byte{0, 0, 255, 255}) {
		t.Errorf("pixel (0,1) = %v, want blue", got)
	}
}

func TestLoadBMP8BitPalette(t *testing.T) {
	// biClrUsed = 4 shrinks the color table below the full 256 entries.
	data := bmpHeader(2, 1, 8, bmpCompressionRGB, 4, 70)
	data = append(data,
		0x00, 0x00, 0x00, 0x00, // entry 0: black
		0x00, 0x00, 0xFF, 0x00, // entry 1: red (stored BGRA)
		0x00, 0xFF, 0x00, 0x00, // entry 2: green
		0xFF, 0x00, 0x00, 0x00, // entry 3: blue
	)
	data = append(data, 1, 3, 0, 0) // indices plus row padding

	m, err := Load(writeBMP(t, data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := m.First()
	if got := pixel(buf, 0, 0); got != ([4]byte{255, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want red", got)
	}
	if got := pixel(buf, 1, 0); got != ([4]byte{0, 0, 255, 255}) {
		t.Errorf("pixel (1,0) = %v, want blue", got)
	}
}

func TestLoadBMP1Bit(t *testing.T) {
	data := bmpHeader(2, 1, 1, bmpCompressionRGB, 2, 62)
	data = append(data,
		0x00, 0x00, 0x00, 0x00, // entry 0: black
		0xFF, 0xFF, 0xFF, 0x00, // entry 1: white
	)
	data = append(data, 0b01000000, 0, 0, 0) // pixels 0 and 1, then padding

	m, err := Load(writeBMP(t, data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	buf := m.First()
	if got := pixel(buf, 0, 0); got != ([4]byte{0, 0, 0, 255}) {
		t.Errorf("pixel (0,0) = %v, want black", got)
	}
	if got := pixel(buf, 1, 0); got != ([4]byte{255, 255, 255, 255}) {
		t.Errorf("pixel (1,0) = %v, want white", got)
	}
}

func TestLoadBMPRejectsRLE(t *testing.T) {
	cases := []struct {
		compression uint32
		mention     string
	}{
		{bmpCompressionRLE8, "RLE8"},
		{bmpCompressionRLE4, "RLE4"},
		{7, "mode 7"},
	}

	for _, tc := range cases {
		data := bmpHeader(2, 2, 8, tc.compression, 0, 54)
		data = append(data, make([]byte, 16)...)

		_, err := Load(writeBMP(t, data))
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("compression %d: err = %v, want ErrUnsupported", tc.compression, err)
		}
		if !strings.Contains(err.Error(), tc.mention) {
			t.Errorf("error %q does not name %s", err, tc.mention)
		}
	}
}

func TestLoadBMPTruncated(t *testing.T) {
	data := bmpHeader(2, 2, 24, bmpCompressionRGB, 0, 54)
	data = append(data, make([]byte, 5)...) // needs 16 bytes of rows

	if _, err := Load(writeBMP(t, data)); !errors.Is(err, ErrTruncated) {
		t.Errorf("err = %v, want ErrTruncated", err)
	}
}

func TestLoadBMPBadMagic(t *testing.T) {
	path := writeBMP(t, append([]byte("XX"), make([]byte, 60)...))

	if _, err := Load(path); !errors.Is(err, ErrBadMagic) {
		t.Errorf("err = %v, want ErrBadMagic", err)
	}
}
