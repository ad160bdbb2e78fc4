package camera

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RecordOptions controls a single Record call
type RecordOptions struct {
	// SoftwareTrigger sends a software trigger before each snap. Turn it off
	// when frames are triggered externally.
	SoftwareTrigger bool

	// Progress, if set, is called after each frame with (done, total)
	Progress func(done, total int)

	// Count overrides NumImages when positive. The preview server uses it
	// to grab single frames without changing the configuration record.
	Count int
}

func (o RecordOptions) count(numImages int) int {
	if o.Count > 0 {
		return o.Count
	}
	return numImages
}

// DefaultRecordOptions sends a software trigger per frame
func DefaultRecordOptions() RecordOptions {
	return RecordOptions{SoftwareTrigger: true}
}

// RecordResult describes a completed acquisition
type RecordResult struct {
	Frames   int
	Duration time.Duration
}

// SnapTimeout is the timeout passed to each snap: the configured timeout plus
// the exposure time, or NoTimeout.
func (c *Camera) SnapTimeout() int {
	if c.timeoutMS == NoTimeout {
		return NoTimeout
	}
	return c.timeoutMS + (c.exposureUS+999)/1000
}

// RecordNew allocates a frame buffer of the configured shape and records into it.
// On failure the buffer is still returned; only the first res.Frames frames
// hold data.
func (c *Camera) RecordNew(ctx context.Context, opts RecordOptions) (*Frames, *RecordResult, error) {
	if err := c.requireOpen("record"); err != nil {
		return nil, nil, err
	}
	frames := NewFrames(opts.count(c.numImages), c.image.Height, c.image.Width)
	res, err := c.Record(ctx, frames, opts)
	return frames, res, err
}

// Record acquires NumImages frames (or opts.Count) into frames, whose shape
// must be (count, height, width). Streaming is started if needed and always
// stopped before returning.
func (c *Camera) Record(ctx context.Context, frames *Frames, opts RecordOptions) (*RecordResult, error) {
	if err := c.requireOpen("record"); err != nil {
		return nil, err
	}
	total := opts.count(c.numImages)
	if err := frames.checkShape(total, c.image.Height, c.image.Width); err != nil {
		return nil, err
	}

	c.log.Info("Recording",
		zap.Int("num_images", total),
		zap.Bool("software_trigger", opts.SoftwareTrigger),
	)
	start := time.Now()
	result := &RecordResult{}

	if c.state != StateLive {
		if err := c.startLive(); err != nil {
			return result, err
		}
	}
	defer c.stopLive()

	frameBytes := 2 * frames.FramePixels()
	if cap(c.scratch) < frameBytes {
		c.scratch = make([]byte, frameBytes)
	}
	buf := c.scratch[:frameBytes]
	timeout := c.SnapTimeout()

	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("recording cancelled after %d of %d frames: %w", i, total, err)
		}

		if opts.SoftwareTrigger {
			if err := c.drv.SoftwareTrigger(c.handle); err != nil {
				c.log.Debug("Software trigger failed", zap.Int("frame", i), zap.Error(err))
			}
		}
		if err := c.drv.SnapImage(c.handle, timeout); err != nil {
			c.log.Warn("Snap failed (buffer timeout?)", zap.Int("frame", i), zap.Error(err))
			result.Duration = time.Since(start)
			return result, NewTimeoutError(i, timeout, err)
		}
		if err := c.drv.CopyImage(c.handle, buf); err != nil {
			c.log.Warn("Image transfer failed", zap.Int("frame", i), zap.Error(err))
			result.Duration = time.Since(start)
			return result, NewTransferError(i, err)
		}

		dst := frames.Frame(i)
		for j := range dst {
			dst[j] = binary.LittleEndian.Uint16(buf[2*j:])
		}
		result.Frames++
		if opts.Progress != nil {
			opts.Progress(result.Frames, total)
		}
	}

	result.Duration = time.Since(start)
	c.log.Info("Recording complete",
		zap.Int("frames", result.Frames),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}
