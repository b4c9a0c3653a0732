// Package picload decodes image files of heterogeneous formats into a
// canonical straight-RGBA pixel representation, extracts a normalized view
// of embedded EXIF metadata, and defends against malformed or adversarial
// input with strict resource bounds.
//
// The package owns the binary container parsing (JPEG segments, PNG chunks,
// RIFF chunks, ISOBMFF boxes), the shared TIFF/EXIF tag walker, orientation
// normalization and resource bounding; the compressed-bitstream math is
// delegated to external codec libraries.
package picload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Standard error types for image loading.
var (
	ErrTooLarge    = errors.New("file exceeds size limit")
	ErrDimensions  = errors.New("invalid image dimensions")
	ErrBadMagic    = errors.New("signature mismatch")
	ErrUnsupported = errors.New("unsupported format")
	ErrTruncated   = errors.New("truncated data")
)

// Default resource ceilings. All of them are overridable per call via Options.
const (
	defaultMaxFileSize   = 512 << 20         // 512 MiB
	defaultMaxPixels     = 256 * 1024 * 1024 // 256 megapixels
	defaultMaxDirDepth   = 64
	defaultMaxSVGSide    = 16384
	defaultMinFrameDelay = 10 * time.Millisecond
	defaultSVGSize       = 1024
)

// Options specifies resource ceilings applied while loading. The zero value
// of a field selects its default; limits are plain data passed down the
// pipeline, never shared mutable state.
type Options struct {
	// MaxFileSize rejects files larger than this before any bytes are read.
	MaxFileSize int64
	// MaxPixels bounds width*height of any decoded frame or canvas.
	MaxPixels int64
	// MaxDirDepth bounds directory recursion in CollectPaths.
	MaxDirDepth int
	// MaxSVGSide clamps the rasterization size of vector images.
	MaxSVGSide int
	// MinFrameDelay floors per-frame delays of animated images.
	MinFrameDelay time.Duration
}

// applyOptions merges the optional caller-supplied Options with defaults.
func applyOptions(opts []*Options) Options {
	o := Options{
		MaxFileSize:   defaultMaxFileSize,
		MaxPixels:     defaultMaxPixels,
		MaxDirDepth:   defaultMaxDirDepth,
		MaxSVGSide:    defaultMaxSVGSide,
		MinFrameDelay: defaultMinFrameDelay,
	}

	if len(opts) > 0 && opts[0] != nil {
		u := opts[0]
		if u.MaxFileSize > 0 {
			o.MaxFileSize = u.MaxFileSize
		}
		if u.MaxPixels > 0 {
			o.MaxPixels = u.MaxPixels
		}
		if u.MaxDirDepth > 0 {
			o.MaxDirDepth = u.MaxDirDepth
		}
		if u.MaxSVGSide > 0 {
			o.MaxSVGSide = u.MaxSVGSide
		}
		if u.MinFrameDelay > 0 {
			o.MinFrameDelay = u.MinFrameDelay
		}
	}

	return o
}

// checkDimensions validates declared dimensions against the pixel-count
// ceiling before any pixel storage is allocated.
func (o *Options) checkDimensions(format string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s image has invalid dimensions %dx%d: %w", format, width, height, ErrDimensions)
	}

	if int64(width)*int64(height) > o.MaxPixels {
		return fmt.Errorf("%s image too large: %dx%d exceeds %d pixels: %w",
			format, width, height, o.MaxPixels, ErrDimensions)
	}

	return nil
}

// frameDelay converts a codec-reported delay in seconds to a Duration,
// floored at the configured minimum to avoid zero or near-zero delays.
func (o *Options) frameDelay(seconds float64) time.Duration {
	d := time.Duration(seconds * float64(time.Second))
	if d < o.MinFrameDelay {
		d = o.MinFrameDelay
	}

	return d
}

// frameDelayMillis is frameDelay for codecs that report delays in
// milliseconds.
func (o *Options) frameDelayMillis(ms int) time.Duration {
	d := time.Duration(ms) * time.Millisecond
	if d < o.MinFrameDelay {
		d = o.MinFrameDelay
	}

	return d
}

// readFileLimited reads the file at path into memory. The file size is
// checked against the ceiling before any bytes are read; unbounded reads are
// the primary denial-of-service vector for this package.
func readFileLimited(path string, o *Options) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	if fi.Size() > o.MaxFileSize {
		return nil, fmt.Errorf("%s is %d bytes, limit %d: %w", path, fi.Size(), o.MaxFileSize, ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

// extOf returns the lowercased file extension without the leading dot.
func extOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Load reads and decodes the image at path into an Image. The decoder is
// selected by file extension. Each call is self-contained and safe to run
// concurrently with other calls.
func Load(path string, opts ...*Options) (*Image, error) {
	o := applyOptions(opts)

	switch extOf(path) {
	case "jpg", "jpeg":
		return loadJPEG(path, &o)
	case "png":
		return loadPNG(path, &o)
	case "gif":
		return loadGIF(path, &o)
	case "webp":
		return loadWebP(path, &o)
	case "bmp":
		return loadBMP(path, &o)
	case "tiff", "tif":
		return loadTIFF(path, &o)
	case "svg":
		return loadSVG(path, &o)
	case "avif":
		return loadAVIF(path, &o)
	case "heic", "heif":
		return loadHEIC(path, &o)
	case "jxl":
		return loadJXL(path, &o)
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
}
