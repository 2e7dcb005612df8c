package atlas

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/iter"
)

// Sync publishes the image at path, or every managed image directly inside
// path when it is a directory, skipping images whose published revision
// already matches the local sidecar.
//
// A single file fails as a whole. In a directory, a failing image is
// recorded in the report and the remaining images are still processed; the
// returned error then combines every per-image failure.
func (e *Engine) Sync(ctx context.Context, path string) (*Report, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, pathError("stat", path, err)
	}

	if !fi.IsDir() {
		p, _ := e.PlanFile(ctx, path)
		o := e.execute(ctx, p, 0, 1)
		report := &Report{Outcomes: []Outcome{o}}
		return report, o.Err
	}

	plans, err := e.PlanDir(ctx, path)
	if err != nil {
		return nil, err
	}

	outcomes := make([]Outcome, len(plans))
	if e.concurrency <= 1 {
		for i, p := range plans {
			outcomes[i] = e.execute(ctx, p, i, len(plans))
		}
	} else {
		it := iter.Iterator[*Plan]{MaxGoroutines: e.concurrency}
		it.ForEachIdx(plans, func(i int, p **Plan) {
			outcomes[i] = e.execute(ctx, *p, i, len(plans))
		})
	}

	report := &Report{Outcomes: outcomes}
	e.log.Info().
		Int("uploaded", report.Count(StatusUploaded)).
		Int("skipped", report.Count(StatusSkipped)).
		Int("failed", report.Count(StatusFailed)).
		Str("size", humanize.IBytes(uint64(report.Bytes()))).
		Msg("sync finished")
	return report, report.Err()
}

// execute carries out one plan. index and total only feed the progress log.
func (e *Engine) execute(ctx context.Context, p *Plan, index, total int) Outcome {
	o := Outcome{Op: OpSync, Image: p.Image(), Local: p.Local, Remote: p.Remote}

	log := e.log.With().Str("image", o.Image).Int("index", index+1).Int("total", total).Logger()
	if p.Local != nil {
		log = log.With().Int64("revision", p.Local.Revision).Logger()
	}
	if p.Remote != nil {
		log = log.With().Int64("remote_revision", p.Remote.Revision).Logger()
	}

	err := p.Err
	if err == nil {
		err = ctx.Err()
	}

	switch {
	case err != nil:
		o.Status, o.Err = StatusFailed, err
	case p.Decision == Skip:
		o.Status = StatusSkipped
		log.Info().Msg("already up to date")
	default:
		log.Info().Msg("uploading")
		o.Bytes, o.Err = e.Publish(ctx, p.ImagePath, p.MetadataPath)
		o.Status = StatusUploaded
		if o.Err != nil {
			o.Status = StatusFailed
		} else {
			log.Info().Str("size", humanize.IBytes(uint64(o.Bytes))).Msg("uploaded")
		}
	}

	if o.Status == StatusFailed {
		log.Error().Err(o.Err).Str("kind", o.Kind()).Msg("sync failed")
	}
	e.observe(o)
	return o
}
