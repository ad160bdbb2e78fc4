package camera

import (
	"fmt"
	"image"
	"math"
)

// Frames holds Count frames of Height x Width 16-bit pixels, row-major,
// frame after frame.
type Frames struct {
	Count  int
	Height int
	Width  int
	Pix    []uint16
}

// NewFrames allocates a zeroed buffer for count frames
func NewFrames(count, height, width int) *Frames {
	return &Frames{
		Count:  count,
		Height: height,
		Width:  width,
		Pix:    make([]uint16, count*height*width),
	}
}

// Shape returns (count, height, width)
func (f *Frames) Shape() (int, int, int) {
	return f.Count, f.Height, f.Width
}

// FramePixels is the number of pixels in one frame
func (f *Frames) FramePixels() int {
	return f.Height * f.Width
}

// Frame returns the pixels of frame i, sharing the underlying buffer
func (f *Frames) Frame(i int) []uint16 {
	n := f.FramePixels()
	return f.Pix[i*n : (i+1)*n : (i+1)*n]
}

// Gray16 copies frame i into an image.Gray16
func (f *Frames) Gray16(i int) *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
	for j, v := range f.Frame(i) {
		img.Pix[2*j] = byte(v >> 8)
		img.Pix[2*j+1] = byte(v)
	}
	return img
}

// FrameStats summarises the pixel values of one frame
type FrameStats struct {
	Min  uint16  `json:"min"`
	Max  uint16  `json:"max"`
	Mean float64 `json:"mean"`
}

// Blank reports whether any pixel is zero, which the sensor never
// produces for a delivered frame.
func (s FrameStats) Blank() bool {
	return s.Min == 0
}

// Stats computes min, max and mean of frame i
func (f *Frames) Stats(i int) FrameStats {
	px := f.Frame(i)
	if len(px) == 0 {
		return FrameStats{}
	}
	st := FrameStats{Min: math.MaxUint16}
	var sum uint64
	for _, v := range px {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += uint64(v)
	}
	st.Mean = float64(sum) / float64(len(px))
	return st
}

// BlankFrames counts frames whose minimum pixel value is zero
func (f *Frames) BlankFrames() int {
	n := 0
	for i := 0; i < f.Count; i++ {
		if f.Stats(i).Blank() {
			n++
		}
	}
	return n
}

// checkShape validates f against the configured acquisition shape
func (f *Frames) checkShape(count, height, width int) error {
	if f == nil {
		return NewValidationError("frames", "frame buffer is nil")
	}
	if f.Count != count || f.Height != height || f.Width != width {
		return NewValidationError("frames", fmt.Sprintf("unexpected shape for frame buffer: got (%d, %d, %d), want (%d, %d, %d)",
			f.Count, f.Height, f.Width, count, height, width))
	}
	if len(f.Pix) != count*height*width {
		return NewValidationError("frames", fmt.Sprintf("frame buffer holds %d pixels, want %d", len(f.Pix), count*height*width))
	}
	return nil
}
