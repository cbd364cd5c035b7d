//go:build linux

package capability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

const defaultCameraPattern = "/dev/video*"

// Init succeeds when at least one video4linux device node can be opened.
func (p CameraProbe) Init(ctx context.Context) error {
	pattern := p.Pattern
	if pattern == "" {
		pattern = defaultCameraPattern
	}
	devices, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("camera: bad device pattern %q: %w", pattern, err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w: no camera devices match %s", ErrUnavailable, pattern)
	}
	var lastErr error
	for _, dev := range devices {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(dev)
		if err != nil {
			lastErr = err
			continue
		}
		f.Close()
		return nil
	}
	return fmt.Errorf("%w: camera: %v", ErrUnavailable, lastErr)
}
