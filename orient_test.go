package picload

import (
	"bytes"
	"testing"
)

// numberedBuffer fills each pixel with its own index so any misplaced pixel
// is detectable.
func numberedBuffer(t *testing.T, w, h int) *Buffer {
	t.Helper()

	b, err := NewBuffer(w, h)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < w*h; i++ {
		b.Pix[i*4+0] = byte(i)
		b.Pix[i*4+1] = byte(i >> 8)
		b.Pix[i*4+3] = 0xFF
	}

	return b
}

func pixel(b *Buffer, x, y int) [4]byte {
	off := b.at(x, y)
	return [4]byte{b.Pix[off], b.Pix[off+1], b.Pix[off+2], b.Pix[off+3]}
}

func TestApplyOrientationIdentity(t *testing.T) {
	src := numberedBuffer(t, 3, 2)

	for _, orientation := range []int{0, 1, 9, 100, -1} {
		if got := applyOrientation(src, orientation); got != src {
			t.Errorf("orientation %d: expected the input buffer back unchanged", orientation)
		}
	}
}

func TestApplyOrientationRotate90(t *testing.T) {
	// 3x2 source:          rotated 90 CW, 2x3:
	//   0 1 2                 3 0
	//   3 4 5                 4 1
	//                         5 2
	src := numberedBuffer(t, 3, 2)
	got := applyOrientation(src, 6)

	if got.Width != 2 || got.Height != 3 {
		t.Fatalf("got %dx%d, want 2x3", got.Width, got.Height)
	}

	expect := map[[2]int]byte{
		{0, 0}: 3, {1, 0}: 0,
		{0, 1}: 4, {1, 1}: 1,
		{0, 2}: 5, {1, 2}: 2,
	}
	for pos, idx := range expect {
		if p := pixel(got, pos[0], pos[1]); p[0] != idx {
			t.Errorf("pixel %v = %d, want %d", pos, p[0], idx)
		}
	}
}

func TestApplyOrientationInvolutions(t *testing.T) {
	// Flips and the 180 rotation are their own inverse.
	src := numberedBuffer(t, 4, 3)

	for _, orientation := range []int{2, 3, 4, 5, 7} {
		once := applyOrientation(src, orientation)
		twice := applyOrientation(once, orientation)

		if !bytes.Equal(twice.Pix, src.Pix) {
			t.Errorf("orientation %d applied twice did not restore the source", orientation)
		}
	}
}

func TestApplyOrientationRotationRoundTrip(t *testing.T) {
	// 90 CW followed by 270 CW is a full turn.
	src := numberedBuffer(t, 4, 3)

	back := applyOrientation(applyOrientation(src, 6), 8)
	if back.Width != src.Width || back.Height != src.Height {
		t.Fatalf("round trip changed dimensions to %dx%d", back.Width, back.Height)
	}

	if !bytes.Equal(back.Pix, src.Pix) {
		t.Error("rotate 90 then 270 did not restore the source")
	}
}

func TestOrientImageAllFrames(t *testing.T) {
	a := numberedBuffer(t, 2, 1)
	b := numberedBuffer(t, 2, 1)

	m, err := newAnimation([]Frame{{Buffer: a}, {Buffer: b}})
	if err != nil {
		t.Fatal(err)
	}

	m = orientImage(m, 6)
	for i, f := range m.Frames {
		if f.Buffer.Width != 1 || f.Buffer.Height != 2 {
			t.Errorf("frame %d is %dx%d after rotation, want 1x2", i, f.Buffer.Width, f.Buffer.Height)
		}
	}
}
