// Command picinfo decodes images and prints their dimensions, frame count
// and EXIF metadata. Arguments may be files or directories; directories are
// scanned recursively and unreadable or malformed files are reported and
// skipped rather than aborting the run.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mgrd/picload"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		jobs     int
		tagsOnly bool
		maxSize  int64
	)

	cmd := &cobra.Command{
		Use:   "picinfo [paths...]",
		Short: "Inspect image files",
		Long: `picinfo decodes images and prints their pixel dimensions, frame count
and embedded EXIF metadata. Directory arguments are scanned recursively;
symbolic links are not followed.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &picload.Options{MaxFileSize: maxSize}
			return run(cmd.Context(), args, jobs, tagsOnly, opts)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of files decoded concurrently")
	cmd.Flags().BoolVar(&tagsOnly, "tags", false, "print EXIF tags only, skip pixel decoding")
	cmd.Flags().Int64Var(&maxSize, "max-file-size", 0, "per-file size ceiling in bytes (0 = default)")

	return cmd
}

func run(ctx context.Context, args []string, jobs int, tagsOnly bool, opts *picload.Options) error {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	paths := picload.CollectPaths(args, opts)
	if len(paths) == 0 {
		return fmt.Errorf("no image files found in %s", strings.Join(args, ", "))
	}

	reports := make([]string, len(paths))
	failed := 0

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			report, err := describe(path, tagsOnly, opts)
			if err != nil {
				log.Error("skipping file", "path", path, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}

			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, report := range reports {
		if report != "" {
			fmt.Print(report)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}

	return nil
}

// describe builds the per-file report. Metadata extraction failures are
// soft inside the library, so tags come back empty rather than erroring
// for files without EXIF.
func describe(path string, tagsOnly bool, opts *picload.Options) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", path)

	if !tagsOnly {
		img, err := picload.Load(path, opts)
		if err != nil {
			return "", err
		}

		first := img.First()
		fmt.Fprintf(&b, "  Dimensions: %dx%d\n", first.Width, first.Height)
		if img.Animated() {
			fmt.Fprintf(&b, "  Frames: %d\n", len(img.Frames))
		}
	}

	tags, err := picload.Tags(path, opts)
	if err != nil {
		return "", err
	}

	if dt, ok := picload.DateTime(tags); ok {
		fmt.Fprintf(&b, "  Taken: %s\n", dt.Format("2006-01-02 15:04:05"))
	}

	for _, tag := range tags {
		fmt.Fprintf(&b, "  %s: %s\n", tag.Label, tag.Value)
	}

	return b.String(), nil
}
