package picload

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// supportedExtensions is the fixed, case-insensitive allow-list the
// dispatcher filters paths against.
var supportedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
	"tif":  true,
	"svg":  true,
	"avif": true,
	"heic": true,
	"heif": true,
	"jxl":  true,
}

// IsSupported reports whether the path has a recognized image extension.
func IsSupported(path string) bool {
	return supportedExtensions[extOf(path)]
}

// CollectPaths expands file and directory arguments into an ordered list of
// image paths. Directories are scanned recursively up to the configured
// depth; symbolic links encountered during the scan are never followed,
// which eliminates link cycles and link escapes outright. The result is
// sorted by file name for deterministic ordering. No decoding happens here.
func CollectPaths(args []string, opts ...*Options) []string {
	o := applyOptions(opts)

	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			continue
		}

		if fi.IsDir() {
			scanDirectory(arg, &paths, 0, &o)
		} else if IsSupported(arg) {
			paths = append(paths, arg)
		}
	}

	sort.Slice(paths, func(i, j int) bool {
		return filepath.Base(paths[i]) < filepath.Base(paths[j])
	})

	return paths
}

func scanDirectory(dir string, out *[]string, depth int, o *Options) {
	if depth >= o.MaxDirDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		// Skip symlinks to prevent symlink loops and traversal outside the
		// scanned tree.
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			scanDirectory(path, out, depth+1, o)
		} else if IsSupported(path) {
			*out = append(*out, path)
		}
	}
}
