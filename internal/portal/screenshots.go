package portal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nulljosh/claimcheck/internal/logger"
)

// ScreenshotSink stores page screenshots and returns a reference for the
// result object. File ownership lives outside the engine; a nil sink
// disables capture entirely.
type ScreenshotSink interface {
	Save(name string, png []byte) (string, error)
}

// FileScreenshotSink writes screenshots to a directory as
// <name>-<timestamp>.png.
type FileScreenshotSink struct {
	Dir string
}

func NewFileScreenshotSink(dir string) *FileScreenshotSink {
	return &FileScreenshotSink{Dir: dir}
}

func (s *FileScreenshotSink) Save(name string, png []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("screenshot dir: %w", err)
	}
	file := fmt.Sprintf("%s-%s.png", slug(name), time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.Dir, file)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	return path, nil
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}

// capture takes a screenshot and stores it, returning its reference.
// Screenshot failures are logged and swallowed; they never fail the
// operation being captured.
func capture(ctx context.Context, nav Navigator, sink ScreenshotSink, name string) string {
	if sink == nil {
		return ""
	}
	png, err := nav.Screenshot(ctx)
	if err != nil {
		logger.Warn("screenshot capture failed", "name", name, "error", err)
		return ""
	}
	ref, err := sink.Save(name, png)
	if err != nil {
		logger.Warn("screenshot save failed", "name", name, "error", err)
		return ""
	}
	return ref
}
