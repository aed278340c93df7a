// Package frame converts region-of-interest pixel buffers into scalar
// intensity samples and provides the sample sources the pulse detector
// reads from. The real implementation samples camera frames; fakes and a
// synthetic generator allow testing without a camera.
package frame

import "errors"

// Channel selects which color channel of an RGBA frame is sampled.
type Channel int

const (
	ChannelRed Channel = iota
	ChannelGreen
	ChannelBlue
)

// bytesPerPixel is the pixel stride of the interleaved RGBA buffers the
// sampler accepts.
const bytesPerPixel = 4

// Frame is a region-of-interest pixel buffer in interleaved RGBA order.
// Stride is the byte offset between rows; it may exceed Width*4 when the
// region is a crop of a larger frame.
type Frame struct {
	Pixels []uint8
	Width  int
	Height int
	Stride int
}

// ErrEmptyRegion is returned by sources when the current frame carries no
// usable pixels. Callers should skip the frame rather than treat it as a
// sample of zero intensity.
var ErrEmptyRegion = errors.New("frame: empty region")

// ErrNoSample is returned by push-fed sources when no sample has arrived
// since the last read. Callers should skip this tick.
var ErrNoSample = errors.New("frame: no sample available")

// ErrSourceClosed is returned once a source has been closed.
var ErrSourceClosed = errors.New("frame: source closed")

// MeanIntensity returns the mean value of the chosen channel over the
// region. It is a pure transform with O(pixels) cost. ok is false when the
// region contains no pixels; the caller should skip that frame.
func MeanIntensity(f Frame, c Channel) (float64, bool) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) == 0 {
		return 0, false
	}

	stride := f.Stride
	if stride == 0 {
		stride = f.Width * bytesPerPixel
	}

	var sum float64
	var n int
	for y := 0; y < f.Height; y++ {
		row := y * stride
		for x := 0; x < f.Width; x++ {
			idx := row + x*bytesPerPixel + int(c)
			if idx >= len(f.Pixels) {
				return 0, false
			}
			sum += float64(f.Pixels[idx])
			n++
		}
	}

	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Source delivers one intensity sample per call. The caller controls the
// sampling cadence and stamps each value with its own clock.
type Source interface {
	// Read returns the current intensity value. It returns ErrEmptyRegion
	// or ErrNoSample when the caller should skip this tick, and
	// ErrSourceClosed once the source is gone.
	Read() (float64, error)

	// Close releases the underlying resource.
	Close() error
}

// FrameSource delivers raw ROI pixel buffers. Wrap one with NewSampled to
// obtain a Source.
type FrameSource interface {
	NextFrame() (Frame, error)
	Close() error
}

// Sampled adapts a FrameSource into a Source by reducing each frame to the
// mean of one color channel.
type Sampled struct {
	frames  FrameSource
	channel Channel
}

// NewSampled wraps frames so each Read returns the mean intensity of the
// chosen channel. Green carries the strongest PPG signal on consumer
// cameras and is the usual choice.
func NewSampled(frames FrameSource, channel Channel) *Sampled {
	return &Sampled{frames: frames, channel: channel}
}

// Read pulls the next frame and reduces it to a scalar.
func (s *Sampled) Read() (float64, error) {
	f, err := s.frames.NextFrame()
	if err != nil {
		return 0, err
	}
	v, ok := MeanIntensity(f, s.channel)
	if !ok {
		return 0, ErrEmptyRegion
	}
	return v, nil
}

// Close releases the underlying frame source.
func (s *Sampled) Close() error {
	return s.frames.Close()
}
