package utils

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidateImageBytes(t *testing.T) {
	w, h, err := ValidateImageBytes(pngBytes(t, 640, 480))
	if err != nil {
		t.Fatalf("unexpected error for valid image: %v", err)
	}
	if w != 640 || h != 480 {
		t.Errorf("got dimensions %dx%d, want 640x480", w, h)
	}
}

func TestValidateImageBytesTooSmall(t *testing.T) {
	if _, _, err := ValidateImageBytes(pngBytes(t, 100, 100)); err == nil {
		t.Error("expected error for undersized image")
	}
}

func TestValidateImageBytesGarbage(t *testing.T) {
	if _, _, err := ValidateImageBytes([]byte("not an image")); err == nil {
		t.Error("expected error for non-image bytes")
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	if err := os.WriteFile(path, pngBytes(t, 640, 480), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}

	data, w, h, err := LoadImage(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected non-empty image bytes")
	}
	if w != 640 || h != 480 {
		t.Errorf("got dimensions %dx%d, want 640x480", w, h)
	}
}

func TestLoadImageUnsupportedExtension(t *testing.T) {
	if _, _, _, err := LoadImage("frame.gif"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
