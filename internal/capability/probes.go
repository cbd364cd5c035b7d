package capability

import (
	"context"
	"fmt"
	"os"
)

// CameraProbe looks for a local camera device. Pattern overrides the
// platform default device glob.
type CameraProbe struct {
	Pattern string
}

func (CameraProbe) Name() string { return NameCamera }

// ModelProbe checks that every configured pose/face-landmark model file
// exists and is readable. Loading the model itself is the detector's job.
type ModelProbe struct {
	Paths []string
}

func (ModelProbe) Name() string { return NameModel }

func (p ModelProbe) Init(ctx context.Context) error {
	if len(p.Paths) == 0 {
		return fmt.Errorf("%w: no pose model configured", ErrUnavailable)
	}
	for _, path := range p.Paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: model %s: %v", ErrUnavailable, path, err)
		}
		info, err := f.Stat()
		f.Close()
		if err != nil {
			return fmt.Errorf("model %s: %w", path, err)
		}
		if info.IsDir() || info.Size() == 0 {
			return fmt.Errorf("%w: model %s is empty", ErrUnavailable, path)
		}
	}
	return nil
}
