package picload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "image.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadPNGRoundTrip(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 255})
	src.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})
	src.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 128})

	m, err := Load(writePNG(t, src))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Animated() {
		t.Error("PNG reports animated")
	}

	buf := m.First()
	if buf.Width != 2 || buf.Height != 2 {
		t.Fatalf("got %dx%d, want 2x2", buf.Width, buf.Height)
	}
	if !bytes.Equal(buf.Pix, src.Pix) {
		t.Errorf("pixels differ:\ngot  %v\nwant %v", buf.Pix, src.Pix)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "document.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// Every binary decoder verifies the signature before handing bytes to a
// codec; an extension lying about the content is caught up front.
func TestLoadMagicMismatch(t *testing.T) {
	garbage := []byte("this is not an image, whatever the name says....")

	for _, ext := range []string{"jpg", "png", "gif", "webp", "bmp", "tiff", "avif", "heic", "jxl"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fake."+ext)
			if err := os.WriteFile(path, garbage, 0o644); err != nil {
				t.Fatal(err)
			}

			if _, err := Load(path); !errors.Is(err, ErrBadMagic) {
				t.Errorf("err = %v, want ErrBadMagic", err)
			}
		})
	}
}

func TestLoadMaxFileSize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	path := writePNG(t, src)

	_, err := Load(path, &Options{MaxFileSize: 8})
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestLoadMaxPixelsRejectedBeforeDecode(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	path := writePNG(t, src)

	_, err := Load(path, &Options{MaxPixels: 8})
	if !errors.Is(err, ErrDimensions) {
		t.Errorf("err = %v, want ErrDimensions", err)
	}
}

// The animated codecs report delays in different units: seconds as float64
// for AVIF, whole milliseconds for WebP and JPEG XL. Both converters must
// agree on the Duration and share the minimum-delay floor.
func TestFrameDelayUnits(t *testing.T) {
	o := applyOptions(nil)

	cases := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"seconds fractional", o.frameDelay(0.1), 100 * time.Millisecond},
		{"seconds whole", o.frameDelay(2), 2 * time.Second},
		{"seconds zero floored", o.frameDelay(0), defaultMinFrameDelay},
		{"millis", o.frameDelayMillis(100), 100 * time.Millisecond},
		{"millis whole second", o.frameDelayMillis(2000), 2 * time.Second},
		{"millis zero floored", o.frameDelayMillis(0), defaultMinFrameDelay},
		{"millis below floor", o.frameDelayMillis(3), defaultMinFrameDelay},
	}

	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestFrameDelayCustomFloor(t *testing.T) {
	o := applyOptions([]*Options{{MinFrameDelay: 50 * time.Millisecond}})

	if d := o.frameDelayMillis(20); d != 50*time.Millisecond {
		t.Errorf("20ms under a 50ms floor = %v", d)
	}
	if d := o.frameDelay(0.02); d != 50*time.Millisecond {
		t.Errorf("0.02s under a 50ms floor = %v", d)
	}
}

func TestApplyOptionsDefaults(t *testing.T) {
	o := applyOptions(nil)
	if o.MaxFileSize != defaultMaxFileSize || o.MaxPixels != defaultMaxPixels {
		t.Error("zero options did not pick up defaults")
	}

	o = applyOptions([]*Options{{MaxPixels: 100}})
	if o.MaxPixels != 100 {
		t.Errorf("MaxPixels = %d, want the override 100", o.MaxPixels)
	}
	if o.MaxFileSize != defaultMaxFileSize {
		t.Error("unset fields must keep their defaults")
	}
}
