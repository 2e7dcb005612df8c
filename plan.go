package atlas

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Decision is the planner's verdict for one local image.
type Decision int

const (
	Upload Decision = iota
	Skip
)

func (d Decision) String() string {
	if d == Skip {
		return "skip"
	}
	return "upload"
}

// Decide compares a local record with the published one. Revisions are
// compared for equality only: any difference, including a lower local
// revision, means the image is published again.
func Decide(local, remote *ImageMetadata) Decision {
	if remote == nil || remote.Revision != local.Revision {
		return Upload
	}
	return Skip
}

// Plan is the decision for one local image. When Err is set the image
// cannot be published and Decision is meaningless.
type Plan struct {
	ImagePath    string
	MetadataPath string
	Local        *ImageMetadata
	Remote       *ImageMetadata
	Decision     Decision
	Err          error
}

// Image is the object key of the planned image.
func (p *Plan) Image() string { return filepath.Base(p.ImagePath) }

// PlanFile plans a single image file. Unlike a directory scan, a file that
// does not follow the naming convention is an error.
func (e *Engine) PlanFile(ctx context.Context, imagePath string) (*Plan, error) {
	p, err := e.prepare(imagePath)
	if err != nil {
		return p, err
	}

	remote, err := e.Get(ctx, MetadataKey(imagePath))
	if err != nil && !errors.Is(err, ErrNotFound) {
		p.Err = err
		return p, err
	}
	p.Remote = remote
	p.Decision = Decide(p.Local, remote)
	return p, nil
}

// PlanDir plans every managed image directly inside dir, sorted by name.
// The registry is listed once for the whole directory. Per-image problems
// are recorded in Plan.Err; the returned error is reserved for failures
// that stop the batch.
func (e *Engine) PlanDir(ctx context.Context, dir string) ([]*Plan, error) {
	images, err := managedImages(dir)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoImages)
	}

	snap, err := e.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]*Plan, 0, len(images))
	for _, imagePath := range images {
		p, err := e.prepare(imagePath)
		if err != nil {
			plans = append(plans, p)
			continue
		}
		remote, err := snap.lookup(MetadataKey(imagePath))
		if err != nil {
			p.Err = err
			plans = append(plans, p)
			continue
		}
		p.Remote = remote
		p.Decision = Decide(p.Local, remote)
		plans = append(plans, p)
	}
	return plans, nil
}

// prepare runs the local checks of an image: naming, signature and sidecar.
func (e *Engine) prepare(imagePath string) (*Plan, error) {
	p := &Plan{
		ImagePath:    imagePath,
		MetadataPath: filepath.Join(filepath.Dir(imagePath), MetadataKey(imagePath)),
	}

	fail := func(err error) (*Plan, error) {
		p.Err = err
		return p, err
	}

	if !IsManagedImage(imagePath) {
		return fail(&Error{Kind: ErrNamingConvention, Op: "plan", Key: imagePath})
	}

	ok, err := IsQcow2Image(imagePath)
	if err != nil {
		return fail(err)
	}
	if !ok {
		return fail(&Error{Kind: ErrFormat, Op: "plan", Key: imagePath})
	}

	local, err := loadMetadata(p.MetadataPath)
	if err != nil {
		return fail(err)
	}
	if local.Image != p.Image() {
		return fail(schemaError(p.MetadataPath, &SchemaError{
			Field:  "image",
			Reason: fmt.Sprintf("is %q, expected %q", local.Image, p.Image()),
		}))
	}
	p.Local = local
	return p, nil
}

func loadMetadata(path string) (*ImageMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pathError("read", path, err)
	}
	m, err := ParseMetadata(data)
	if err != nil {
		return nil, schemaError(path, err)
	}
	return m, nil
}

// managedImages returns the regular files directly inside dir that follow
// the naming convention. Everything else is skipped silently.
func managedImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pathError("read", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsManagedImage(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(images)
	return images, nil
}
