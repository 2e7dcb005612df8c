package atlas

import (
	"go.uber.org/multierr"
)

// Operation names the engine entry point that produced an Outcome.
type Operation string

const (
	OpSync   Operation = "sync"
	OpDelete Operation = "delete"
)

// Status is the per-image result of a sync or delete.
type Status string

const (
	StatusUploaded Status = "uploaded"
	StatusSkipped  Status = "skipped" // remote revision already current
	StatusFailed   Status = "failed"
	StatusDeleted  Status = "deleted"
	StatusAbsent   Status = "absent" // not in the registry, nothing deleted
)

// Outcome records what happened to one image.
type Outcome struct {
	Op     Operation
	Image  string
	Status Status
	Local  *ImageMetadata
	Remote *ImageMetadata
	Bytes  int64 // image bytes streamed to the store
	Err    error
}

// Kind is the error kind name of a failed outcome.
func (o Outcome) Kind() string { return KindOf(o.Err) }

// Report lists outcomes in candidate order.
type Report struct {
	Outcomes []Outcome
}

func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Bytes is the total number of image bytes uploaded.
func (r *Report) Bytes() int64 {
	var n int64
	for _, o := range r.Outcomes {
		n += o.Bytes
	}
	return n
}

// Err combines the errors of every failed outcome, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			err = multierr.Append(err, o.Err)
		}
	}
	return err
}
