package encode

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// PNGSequenceEncoder writes one PNG file per frame into a directory,
// numbered by frame index. The timestamp argument is not encoded into the
// image itself (PNG carries no timing metadata) and is not recorded
// anywhere else; files are numbered in the order Encode is called.
type PNGSequenceEncoder struct {
	dir       string
	prefix    string
	nextIndex int

	// OutputWidth/OutputHeight, if both non-zero, rescale every incoming
	// frame to this size (via golang.org/x/image/draw) before writing it —
	// e.g. to downsample a supersampled offscreen render target.
	OutputWidth, OutputHeight int
}

// NewPNGSequenceEncoder returns an encoder writing "<prefix><NNNNNN>.png"
// files into dir. dir is created if it does not already exist.
func NewPNGSequenceEncoder(dir, prefix string) (*PNGSequenceEncoder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.NewError(core.KindRuntime, fmt.Errorf("encode: creating %s: %w", dir, err))
	}
	return &PNGSequenceEncoder{dir: dir, prefix: prefix}, nil
}

// Encode writes rgba (width x height, 4 bytes per pixel, row-major) as the
// next PNG file in the sequence.
func (e *PNGSequenceEncoder) Encode(rgba []byte, width, height int, timestamp float64) error {
	if len(rgba) < width*height*4 {
		return core.NewError(core.KindRuntime,
			fmt.Errorf("encode: rgba buffer too small for %dx%d frame", width, height))
	}

	src := &image.RGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	var img image.Image = src
	if e.OutputWidth > 0 && e.OutputHeight > 0 && (e.OutputWidth != width || e.OutputHeight != height) {
		dst := image.NewRGBA(image.Rect(0, 0, e.OutputWidth, e.OutputHeight))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		img = dst
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s%06d.png", e.prefix, e.nextIndex))
	f, err := os.Create(path)
	if err != nil {
		return core.NewError(core.KindRuntime, fmt.Errorf("encode: creating %s: %w", path, err))
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return core.NewError(core.KindRuntime, fmt.Errorf("encode: writing %s: %w", path, err))
	}
	e.nextIndex++
	return nil
}

// Close is a no-op: every frame is flushed to disk as it arrives.
func (e *PNGSequenceEncoder) Close() error { return nil }
