// Package export writes recorded frames to disk as 16-bit grayscale TIFF.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/tiff"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/logging"
)

// Options control TIFF encoding
type Options struct {
	// Deflate compresses pixel data; uncompressed files open in more viewers
	Deflate bool
}

func (o Options) tiffOptions() *tiff.Options {
	if o.Deflate {
		return &tiff.Options{Compression: tiff.Deflate}
	}
	return &tiff.Options{Compression: tiff.Uncompressed}
}

// EncodeFrame writes frame i of f to w as a 16-bit grayscale TIFF
func EncodeFrame(w io.Writer, f *camera.Frames, i int, opts Options) error {
	if f == nil || i < 0 || i >= f.Count {
		return fmt.Errorf("frame index %d out of range", i)
	}
	if err := tiff.Encode(w, f.Gray16(i), opts.tiffOptions()); err != nil {
		return fmt.Errorf("failed to encode frame %d: %w", i, err)
	}
	return nil
}

// Paths returns the file names WriteFrames uses for count frames.
// A single frame is written to base itself (with a .tif extension added if
// missing); several frames become <base>_<index>.tif.
func Paths(base string, count int) []string {
	ext := filepath.Ext(base)
	stem := base
	if strings.EqualFold(ext, ".tif") || strings.EqualFold(ext, ".tiff") {
		stem = strings.TrimSuffix(base, ext)
	} else {
		ext = ".tif"
	}

	if count == 1 {
		return []string{stem + ext}
	}
	paths := make([]string, count)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return paths
}

// WriteFrames writes every frame of f and returns the created paths
func WriteFrames(base string, f *camera.Frames, opts Options) ([]string, error) {
	if f == nil || f.Count == 0 {
		return nil, fmt.Errorf("no frames to export")
	}
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	paths := Paths(base, f.Count)
	for i, path := range paths {
		if err := writeFile(path, f, i, opts); err != nil {
			return paths[:i], err
		}
		logging.Debug("Wrote frame", zap.String("path", path), zap.Int("frame", i))
	}
	logging.Info("Exported frames", zap.Int("count", len(paths)), zap.String("base", base))
	return paths, nil
}

func writeFile(path string, f *camera.Frames, i int, opts Options) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeFrame(file, f, i, opts); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
