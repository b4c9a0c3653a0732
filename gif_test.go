package picload

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeGIF(t *testing.T, g *gif.GIF) string {
	t.Helper()

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		t.Fatalf("encode GIF: %v", err)
	}

	path := filepath.Join(t.TempDir(), "anim.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadGIFPersistentCanvas(t *testing.T) {
	pal := color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{}, // transparent
	}

	first := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	// both pixels red

	second := image.NewPaletted(image.Rect(0, 0, 2, 1), pal)
	second.SetColorIndex(0, 0, 2)
	second.SetColorIndex(1, 0, 1)

	path := writeGIF(t, &gif.GIF{
		Image: []*image.Paletted{first, second},
		Delay: []int{0, 20},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !m.Animated() || len(m.Frames) != 2 {
		t.Fatalf("got %d frames, want an animation of 2", len(m.Frames))
	}

	red := [4]byte{255, 0, 0, 255}
	green := [4]byte{0, 255, 0, 255}

	if p := pixel(m.Frames[0].Buffer, 0, 0); p != red {
		t.Errorf("frame 0 pixel (0,0) = %v, want red", p)
	}

	// The transparent index in frame 1 must leave the red pixel from frame 0
	// on the canvas instead of clearing it.
	if p := pixel(m.Frames[1].Buffer, 0, 0); p != red {
		t.Errorf("frame 1 pixel (0,0) = %v, want red persisted from frame 0", p)
	}
	if p := pixel(m.Frames[1].Buffer, 1, 0); p != green {
		t.Errorf("frame 1 pixel (1,0) = %v, want green", p)
	}
}

func TestLoadGIFDelayFloor(t *testing.T) {
	pal := color.Palette{color.RGBA{A: 255}}
	frame := func() *image.Paletted { return image.NewPaletted(image.Rect(0, 0, 1, 1), pal) }

	path := writeGIF(t, &gif.GIF{
		Image: []*image.Paletted{frame(), frame()},
		Delay: []int{0, 20},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if d := m.Frames[0].Delay; d != 10*time.Millisecond {
		t.Errorf("zero delay floored to %v, want 10ms", d)
	}
	if d := m.Frames[1].Delay; d != 200*time.Millisecond {
		t.Errorf("20cs delay = %v, want 200ms", d)
	}
}

func TestLoadGIFSingleFrameIsStatic(t *testing.T) {
	pal := color.Palette{color.RGBA{B: 255, A: 255}}

	path := writeGIF(t, &gif.GIF{
		Image: []*image.Paletted{image.NewPaletted(image.Rect(0, 0, 1, 1), pal)},
		Delay: []int{10},
	})

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m.Animated() {
		t.Error("single-frame GIF reports animated")
	}
}

func TestLoadGIFBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.gif")
	if err := os.WriteFile(path, []byte("PK\x03\x04 definitely a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Load = %v, want ErrBadMagic", err)
	}
}
