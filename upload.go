package atlas

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/distribox/atlas/internal/store"
)

// Publish uploads an image and its sidecar. The sidecar is validated first
// and must name the image; nothing is written otherwise. The image is then
// streamed from disk and the sidecar is written only once the image write
// succeeded, so an interrupted publish leaves at worst an image without
// metadata. It returns the number of image bytes written.
func (e *Engine) Publish(ctx context.Context, imagePath, metadataPath string) (int64, error) {
	imageKey := filepath.Base(imagePath)
	metadataKey := MetadataKey(imageKey)

	meta, err := os.ReadFile(metadataPath)
	if err != nil {
		return 0, pathError("read", metadataPath, err)
	}
	m, err := ParseMetadata(meta)
	if err != nil {
		return 0, schemaError(metadataPath, err)
	}
	if m.Image != imageKey {
		return 0, schemaError(metadataPath, &SchemaError{
			Field:  "image",
			Reason: fmt.Sprintf("is %q, expected %q", m.Image, imageKey),
		})
	}

	size, err := e.putImage(ctx, imagePath, imageKey)
	if err != nil {
		return 0, err
	}

	err = e.store.Put(ctx, e.bucket, metadataKey, bytes.NewReader(meta), int64(len(meta)), store.ContentTypeMetadata)
	if err != nil {
		return size, registryError("put", metadataKey, err)
	}
	return size, nil
}

func (e *Engine) putImage(ctx context.Context, imagePath, key string) (int64, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return 0, pathError("open", imagePath, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return 0, pathError("stat", imagePath, err)
	}

	if err := e.store.Put(ctx, e.bucket, key, f, fi.Size(), store.ContentTypeImage); err != nil {
		return 0, registryError("put", key, err)
	}
	return fi.Size(), nil
}
