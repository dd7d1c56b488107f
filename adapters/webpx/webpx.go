// Package webpx wraps the pure-Go WebP codec behind byte-slice helpers:
// encode, decode, container inspection, and a metadata-stripping re-mux that
// keeps the color profile.
package webpx

import (
	"bytes"
	"image"

	"github.com/deepteams/webp"
	"github.com/deepteams/webp/mux"

	"github.com/amitray007/pare/utils"
)

// Info summarizes a WebP container without decoding pixel data.
type Info struct {
	Width      int
	Height     int
	HasAlpha   bool
	Animated   bool
	FrameCount int
	HasICC     bool
	HasEXIF    bool
	HasXMP     bool
}

// Inspect parses the container and returns its features.
func Inspect(data []byte) (Info, error) {
	d, err := mux.NewDemuxer(data)
	if err != nil {
		return Info{}, err
	}
	f := d.GetFeatures()
	return Info{
		Width:      f.Width,
		Height:     f.Height,
		HasAlpha:   f.HasAlpha,
		Animated:   f.HasAnimation,
		FrameCount: d.NumFrames(),
		HasICC:     f.HasICC,
		HasEXIF:    f.HasEXIF,
		HasXMP:     f.HasXMP,
	}, nil
}

// Decode decodes the first frame into an image.Image.
func Decode(data []byte) (image.Image, error) {
	return webp.Decode(bytes.NewReader(data))
}

// DecodeConfig returns dimensions without decoding pixels.
func DecodeConfig(data []byte) (image.Config, error) {
	return webp.DecodeConfig(bytes.NewReader(data))
}

// Encode produces a lossy WebP at the given quality with the standard effort
// level (method 4).
func Encode(img image.Image, quality int) ([]byte, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	err := webp.Encode(buf, img, &webp.EncoderOptions{
		Quality: float32(quality),
		Method:  4,
	})
	if err != nil {
		return nil, err
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

// EncodeLossless produces a VP8L lossless WebP.
func EncodeLossless(img image.Image) ([]byte, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	err := webp.Encode(buf, img, &webp.EncoderOptions{
		Lossless: true,
		Method:   4,
	})
	if err != nil {
		return nil, err
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

// StripMetadata reassembles the container without EXIF/XMP chunks.  The ICC
// profile is carried over so colors stay correct.  Frames, durations, and
// loop settings are copied bit-exact, making this safe for animations.
func StripMetadata(data []byte) ([]byte, error) {
	d, err := mux.NewDemuxer(data)
	if err != nil {
		return nil, err
	}
	features := d.GetFeatures()

	m := mux.NewMuxer()
	if features.HasICC {
		if icc, err := d.GetChunk(mux.FourCCICCP); err == nil {
			m.SetICCProfile(icc)
		}
	}
	if features.HasAnimation {
		m.SetLoopCount(d.LoopCount())
		m.SetBackgroundColor(d.BackgroundColor())
		m.SetCanvasSize(features.Width, features.Height)
	}
	for i := 0; i < d.NumFrames(); i++ {
		frame, err := d.Frame(i)
		if err != nil {
			return nil, err
		}
		if err := m.AddFrame(frame.Data, &mux.FrameOptions{
			Duration:    frame.Duration,
			OffsetX:     frame.OffsetX,
			OffsetY:     frame.OffsetY,
			BlendMode:   frame.BlendMode,
			DisposeMode: frame.DisposeMode,
		}); err != nil {
			return nil, err
		}
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := m.Assemble(buf); err != nil {
		return nil, err
	}
	return utils.CloneBytes(buf.Bytes()), nil
}
