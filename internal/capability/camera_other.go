//go:build !linux

package capability

import (
	"context"
	"fmt"
	"runtime"
)

// Init always fails: camera discovery is only implemented for video4linux.
func (p CameraProbe) Init(ctx context.Context) error {
	return fmt.Errorf("%w: camera detection not supported on %s", ErrUnavailable, runtime.GOOS)
}
