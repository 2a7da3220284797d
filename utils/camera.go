package utils

import (
	"fmt"
	"os/exec"
	"runtime"

	"go.uber.org/zap"
)

// DashcamCapture grabs single frames from a forward-facing camera via
// ffmpeg, for sessions that ask the server to capture instead of
// streaming their own frames.
type DashcamCapture struct {
	DeviceID int
	Width    int
	Height   int
}

func NewDashcamCapture() *DashcamCapture {
	return &DashcamCapture{
		DeviceID: 0,
		Width:    1280,
		Height:   720,
	}
}

// CaptureFrame captures one JPEG frame from the camera.
func (c *DashcamCapture) CaptureFrame() ([]byte, error) {
	size := fmt.Sprintf("%dx%d", c.Width, c.Height)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("ffmpeg",
			"-f", "avfoundation",
			"-video_size", size,
			"-framerate", "30",
			"-i", fmt.Sprintf("%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-")
	case "linux":
		cmd = exec.Command("ffmpeg",
			"-f", "v4l2",
			"-video_size", size,
			"-i", fmt.Sprintf("/dev/video%d", c.DeviceID),
			"-vframes", "1",
			"-f", "image2pipe",
			"-vcodec", "mjpeg",
			"-q:v", "2",
			"-")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	output, err := cmd.Output()
	if err != nil {
		zap.L().Error("Failed to capture frame from camera", zap.Error(err))
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}

	if len(output) == 0 {
		return nil, fmt.Errorf("no frame data captured")
	}

	zap.L().Debug("Successfully captured frame", zap.Int("size", len(output)))
	return output, nil
}
