// Package attachments stores the evidence files uploaded with crime reports.
package attachments

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/models"
)

const maxFilenameLength = 100

// File is an upload waiting to be stored
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store persists report attachments
type Store interface {
	// Save stores f and returns the metadata to keep on the report
	Save(ctx context.Context, f File) (models.Attachment, error)
	// Delete removes a previously saved attachment by its stored path
	Delete(ctx context.Context, path string) error
	// Name identifies the backend in logs
	Name() string
}

// New returns the store selected by conf.AttachmentStore
func New(ctx context.Context, conf *config.Config) (Store, error) {
	switch conf.AttachmentStore {
	case "", "local":
		return NewLocal(conf.UploadDir)
	case "minio":
		return NewMinIO(ctx, conf.MinIO)
	case "cloudinary":
		return NewCloudinary(conf.CloudinaryURL, conf.CloudinaryDir)
	}
	return nil, fmt.Errorf("unknown attachment store %q", conf.AttachmentStore)
}

// SanitizeFilename strips directories and anything outside [A-Za-z0-9._-]
// from a client supplied file name
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	clean := strings.TrimLeft(b.String(), ".")
	if len(clean) > maxFilenameLength {
		clean = clean[len(clean)-maxFilenameLength:]
	}
	if clean == "" {
		return "file"
	}
	return clean
}

// objectKey names a stored object so two uploads never collide
func objectKey(name string) string {
	return uuid.New().String() + "-" + SanitizeFilename(name)
}
