package encode

import (
	"os"
	"path/filepath"
	"testing"
)

func solidRGBA(width, height int, r, g, b, a byte) []byte {
	buf := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		buf[i*4+0] = r
		buf[i*4+1] = g
		buf[i*4+2] = b
		buf[i*4+3] = a
	}
	return buf
}

func TestPNGSequenceEncoderWritesNumberedFiles(t *testing.T) {
	dir := t.TempDir()
	enc, err := NewPNGSequenceEncoder(dir, "frame")
	if err != nil {
		t.Fatalf("NewPNGSequenceEncoder: %v", err)
	}
	defer enc.Close()

	for i := 0; i < 3; i++ {
		if err := enc.Encode(solidRGBA(4, 4, 255, 0, 0, 255), 4, 4, float64(i)); err != nil {
			t.Fatalf("Encode frame %d: %v", i, err)
		}
	}

	for _, name := range []string{"frame000000.png", "frame000001.png", "frame000002.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
}

func TestPNGSequenceEncoderRejectsUndersizedBuffer(t *testing.T) {
	dir := t.TempDir()
	enc, err := NewPNGSequenceEncoder(dir, "frame")
	if err != nil {
		t.Fatalf("NewPNGSequenceEncoder: %v", err)
	}
	defer enc.Close()

	if err := enc.Encode(make([]byte, 4), 4, 4, 0); err == nil {
		t.Fatal("expected error for undersized RGBA buffer")
	}
}

func TestPNGSequenceEncoderRescalesWhenOutputSizeSet(t *testing.T) {
	dir := t.TempDir()
	enc, err := NewPNGSequenceEncoder(dir, "frame")
	if err != nil {
		t.Fatalf("NewPNGSequenceEncoder: %v", err)
	}
	defer enc.Close()
	enc.OutputWidth, enc.OutputHeight = 2, 2

	if err := enc.Encode(solidRGBA(8, 8, 0, 255, 0, 255), 8, 8, 0); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "frame000000.png")); err != nil {
		t.Fatalf("expected rescaled output file: %v", err)
	}
}

func TestRawEncoderAppendsFrameRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.raw")
	enc, err := NewRawEncoder(path)
	if err != nil {
		t.Fatalf("NewRawEncoder: %v", err)
	}

	if err := enc.Encode(solidRGBA(2, 2, 1, 2, 3, 4), 2, 2, 1.5); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	wantSize := int64(16 + 2*2*4)
	if info.Size() != wantSize {
		t.Fatalf("file size = %d, want %d", info.Size(), wantSize)
	}
}
