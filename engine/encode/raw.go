package encode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spaghettifunk/scinthd/engine/core"
)

// RawEncoder appends every frame as a fixed-format record (a little-endian
// uint32 width, height, then a float64 timestamp, then the raw RGBA bytes)
// to a single file. It exists for tests and tooling that want to inspect
// exactly what the Offscreen engine produced without decoding PNGs.
type RawEncoder struct {
	w io.WriteCloser
	buf *bufio.Writer
}

// NewRawEncoder creates (truncating) path and returns an encoder appending
// to it.
func NewRawEncoder(path string) (*RawEncoder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, core.NewError(core.KindRuntime, fmt.Errorf("encode: creating %s: %w", path, err))
	}
	return &RawEncoder{w: f, buf: bufio.NewWriter(f)}, nil
}

// Encode appends one frame record.
func (e *RawEncoder) Encode(rgba []byte, width, height int, timestamp float64) error {
	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(width))
	binary.LittleEndian.PutUint32(header[4:8], uint32(height))
	binary.LittleEndian.PutUint64(header[8:16], math.Float64bits(timestamp))
	if _, err := e.buf.Write(header[:]); err != nil {
		return core.NewError(core.KindRuntime, err)
	}
	if _, err := e.buf.Write(rgba); err != nil {
		return core.NewError(core.KindRuntime, err)
	}
	return nil
}

// Close flushes buffered writes and closes the underlying file.
func (e *RawEncoder) Close() error {
	if err := e.buf.Flush(); err != nil {
		return core.NewError(core.KindRuntime, err)
	}
	return e.w.Close()
}
