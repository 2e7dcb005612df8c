package atlas

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/distribox/atlas/internal/store"
)

// Remove deletes images from the registry. Each name is looked up by the
// image field of a fresh listing; names with no record are reported absent
// and are not an error. For a match the image object is deleted before its
// sidecar. A failure on one image does not stop the others.
func (e *Engine) Remove(ctx context.Context, images ...string) (*Report, error) {
	snap, err := e.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{Outcomes: make([]Outcome, 0, len(images))}
	for i, image := range images {
		image = filepath.Base(image)
		log := e.log.With().Str("image", image).Int("index", i+1).Int("total", len(images)).Logger()

		o := Outcome{Op: OpDelete, Image: image}
		record, found := snap.byImage(image)
		switch {
		case ctx.Err() != nil:
			o.Status, o.Err = StatusFailed, ctx.Err()
		case !found:
			o.Status = StatusAbsent
			log.Info().Msg("not in registry, skipping")
		default:
			o.Remote = record
			o.Status = StatusDeleted
			if o.Err = e.removeImage(ctx, image); o.Err != nil {
				o.Status = StatusFailed
			} else {
				log.Info().Int64("revision", record.Revision).Msg("deleted")
			}
		}

		if o.Status == StatusFailed {
			log.Error().Err(o.Err).Str("kind", o.Kind()).Msg("delete failed")
		}
		e.observe(o)
		report.Outcomes = append(report.Outcomes, o)
	}
	return report, report.Err()
}

// removeImage deletes the image object, then its sidecar. Objects that are
// already gone are not an error.
func (e *Engine) removeImage(ctx context.Context, image string) error {
	for _, key := range []string{image, MetadataKey(image)} {
		err := e.store.Delete(ctx, e.bucket, key)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return registryError("delete", key, err)
		}
	}
	return nil
}
