package export

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"golang.org/x/image/tiff"

	"github.com/muurk/tiscam/internal/camera"
)

func TestPaths(t *testing.T) {
	tests := []struct {
		base  string
		count int
		want  []string
	}{
		{"out/shot", 1, []string{"out/shot.tif"}},
		{"out/shot.tif", 1, []string{"out/shot.tif"}},
		{"out/shot.TIFF", 1, []string{"out/shot.TIFF"}},
		{"shot", 3, []string{"shot_0.tif", "shot_1.tif", "shot_2.tif"}},
		{"shot.tiff", 2, []string{"shot_0.tiff", "shot_1.tiff"}},
		{"run.v2", 1, []string{"run.v2.tif"}},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			if got := Paths(tt.base, tt.count); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Paths(%q, %d) = %v, want %v", tt.base, tt.count, got, tt.want)
			}
		})
	}
}

func testFrames() *camera.Frames {
	f := camera.NewFrames(2, 3, 4)
	for i := range f.Pix {
		f.Pix[i] = uint16(i * 1000)
	}
	return f
}

func TestEncodeFrame_RoundTrip(t *testing.T) {
	f := testFrames()

	for _, opts := range []Options{{}, {Deflate: true}} {
		var buf bytes.Buffer
		if err := EncodeFrame(&buf, f, 1, opts); err != nil {
			t.Fatalf("EncodeFrame failed: %v", err)
		}

		img, err := tiff.Decode(&buf)
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		gray, ok := img.(*image.Gray16)
		if !ok {
			t.Fatalf("Expected *image.Gray16, got %T", img)
		}
		if gray.Bounds().Dx() != 4 || gray.Bounds().Dy() != 3 {
			t.Errorf("Unexpected bounds %v", gray.Bounds())
		}
		// frame 1 starts at pixel 12
		if got := gray.Gray16At(0, 0).Y; got != 12000 {
			t.Errorf("Expected 12000 at (0,0), got %d", got)
		}
		if got := gray.Gray16At(3, 2).Y; got != 23000 {
			t.Errorf("Expected 23000 at (3,2), got %d", got)
		}
	}
}

func TestEncodeFrame_OutOfRange(t *testing.T) {
	var buf bytes.Buffer
	for _, i := range []int{-1, 2} {
		if err := EncodeFrame(&buf, testFrames(), i, Options{}); err == nil {
			t.Errorf("Expected error for index %d", i)
		}
	}
}

func TestWriteFrames(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "nested", "shot")

	paths, err := WriteFrames(base, testFrames(), Options{})
	if err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("Expected 2 files, got %v", paths)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("Expected %s to exist: %v", p, err)
		}
		if info.Size() == 0 {
			t.Errorf("Expected %s non-empty", p)
		}
	}
}

func TestWriteFrames_Single(t *testing.T) {
	dir := t.TempDir()
	f := camera.NewFrames(1, 2, 2)
	f.Pix[0] = 7

	paths, err := WriteFrames(filepath.Join(dir, "one.tif"), f, Options{})
	if err != nil {
		t.Fatalf("WriteFrames failed: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "one.tif" {
		t.Errorf("Unexpected paths %v", paths)
	}
}

func TestWriteFrames_Empty(t *testing.T) {
	if _, err := WriteFrames(filepath.Join(t.TempDir(), "x"), nil, Options{}); err == nil {
		t.Error("Expected error for nil frames")
	}
}
