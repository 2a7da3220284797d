package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	MinImageWidth  = 320
	MinImageHeight = 240
)

var supportedImageFormats = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// LoadImage reads and validates an image file for analysis: the file
// must exist, carry a supported extension, decode as an image and meet
// the minimum dimensions. Returns the raw bytes and the pixel size.
func LoadImage(path string) ([]byte, int, int, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedImageFormats[ext] {
		return nil, 0, 0, fmt.Errorf("unsupported image format %q, supported formats: .jpg, .jpeg, .png", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read image file %s: %w", path, err)
	}

	width, height, err := ValidateImageBytes(data)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid image file %s: %w", path, err)
	}

	zap.L().Debug("Loaded image",
		zap.String("path", path),
		zap.Int("width", width),
		zap.Int("height", height))

	return data, width, height, nil
}

// ValidateImageBytes checks that raw bytes decode as an image of
// sufficient size, and returns the pixel dimensions.
func ValidateImageBytes(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	if cfg.Width < MinImageWidth || cfg.Height < MinImageHeight {
		return 0, 0, fmt.Errorf("image dimensions (%dx%d) are smaller than minimum required (%dx%d)",
			cfg.Width, cfg.Height, MinImageWidth, MinImageHeight)
	}

	return cfg.Width, cfg.Height, nil
}
