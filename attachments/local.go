package attachments

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/moyijulius/crime-report-platform/models"
)

// Local keeps attachments on the server's disk
type Local struct {
	dir string
}

// NewLocal creates dir if needed and returns a store writing into it
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir}, nil
}

// Name implements Store
func (l *Local) Name() string { return "local" }

// Save implements Store
func (l *Local) Save(ctx context.Context, f File) (models.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return models.Attachment{}, err
	}
	dst := filepath.Join(l.dir, objectKey(f.Name))
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return models.Attachment{}, err
	}
	n, err := io.Copy(out, f.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return models.Attachment{}, err
	}
	return models.Attachment{
		Path:         filepath.ToSlash(dst),
		OriginalName: f.Name,
		ContentType:  f.ContentType,
		Size:         n,
	}, nil
}

// Delete implements Store. Paths outside the upload dir are refused.
func (l *Local) Delete(_ context.Context, path string) error {
	target := filepath.Clean(filepath.FromSlash(path))
	rel, err := filepath.Rel(filepath.Clean(l.dir), target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("attachment %q is outside %q", path, l.dir)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
