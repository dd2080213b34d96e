package attachments

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/moyijulius/crime-report-platform/models"
)

// Cloudinary keeps attachments in a Cloudinary folder. The stored path is
// "<resourceType>:<publicID>" since deleting needs both.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary configures the store from a cloudinary:// URL
func NewCloudinary(url, folder string) (*Cloudinary, error) {
	if url == "" {
		return nil, errors.New("CLOUDINARY_URL is not set")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

// Name implements Store
func (c *Cloudinary) Name() string { return "cloudinary" }

// Save implements Store
func (c *Cloudinary) Save(ctx context.Context, f File) (models.Attachment, error) {
	key := objectKey(f.Name)
	resp, err := c.cld.Upload.Upload(ctx, f.Body, uploader.UploadParams{
		PublicID:     strings.TrimSuffix(key, path.Ext(key)),
		Folder:       c.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return models.Attachment{}, err
	}
	if resp.Error.Message != "" {
		return models.Attachment{}, errors.New(resp.Error.Message)
	}
	return models.Attachment{
		Path:         resp.ResourceType + ":" + resp.PublicID,
		OriginalName: f.Name,
		ContentType:  f.ContentType,
		Size:         int64(resp.Bytes),
	}, nil
}

// Delete implements Store
func (c *Cloudinary) Delete(ctx context.Context, stored string) error {
	resourceType, publicID, ok := strings.Cut(stored, ":")
	if !ok || publicID == "" {
		return fmt.Errorf("malformed cloudinary attachment %q", stored)
	}
	resp, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return err
	}
	if resp.Error.Message != "" {
		return errors.New(resp.Error.Message)
	}
	return nil
}
