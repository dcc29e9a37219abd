package acquire

import (
	"bytes"
	"context"
	"image"
	"os/exec"
	"time"

	"github.com/pkg/errors"
)

// Camera captures a single photo.
type Camera interface {
	Capture(ctx context.Context) (image.Image, error)
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context) (image.Image, error)

// Capture implements Camera.
func (f CameraFunc) Capture(ctx context.Context) (image.Image, error) {
	return f(ctx)
}

// CommandCamera runs an external capture program that writes one encoded
// image to stdout, e.g. "libcamera-still -n -o -".
type CommandCamera struct {
	Command []string
	Timeout time.Duration
}

// Capture implements Camera. A cancelled context maps to ErrCancelled.
func (c CommandCamera) Capture(ctx context.Context) (image.Image, error) {
	if len(c.Command) == 0 {
		return nil, errors.New("no capture command configured")
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Command[0], c.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, errors.Wrapf(err, "capture command failed: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	if stdout.Len() == 0 {
		return nil, ErrCancelled
	}
	return Decode(stdout.Bytes())
}
