package atlas

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("atlas: not found")
	ErrNoBucket = errors.New("atlas: no bucket configured")
	ErrNoStore  = errors.New("atlas: no object store configured")
	ErrNoImages = errors.New("atlas: no managed image found")
)

// Error kinds. Every failure returned by the engine wraps exactly one of
// these, test with errors.Is.
var (
	ErrPath                = errors.New("atlas: path missing or unreadable")
	ErrFormat              = errors.New("atlas: not a qcow2 image")
	ErrNamingConvention    = errors.New("atlas: file does not follow the naming convention")
	ErrSchema              = errors.New("atlas: invalid metadata")
	ErrRegistryUnavailable = errors.New("atlas: registry unavailable")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrPath, "PathError"},
	{ErrFormat, "FormatError"},
	{ErrNamingConvention, "NamingConventionError"},
	{ErrSchema, "SchemaError"},
	{ErrRegistryUnavailable, "RegistryUnavailable"},
}

func kindName(kind error) string {
	for _, k := range kinds {
		if k.err == kind {
			return k.name
		}
	}
	return ""
}

// Error is a failure of one engine operation on one key or path.
type Error struct {
	Kind error  // one of the error kinds above
	Op   string // open, read, parse, list, get, put, delete
	Key  string // object key or local path
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := kindName(e.Kind)
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Key, msg)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf names the error kind of err ("SchemaError", "RegistryUnavailable",
// ...), or "" when err carries none. For combined errors the first kind in
// declaration order wins.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// SchemaError reports the metadata field that failed validation.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return "metadata " + e.Reason
	}
	return fmt.Sprintf("metadata field %q %s", e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func pathError(op, path string, err error) error {
	return &Error{Kind: ErrPath, Op: op, Key: path, Err: err}
}

func registryError(op, key string, err error) error {
	return &Error{Kind: ErrRegistryUnavailable, Op: op, Key: key, Err: err}
}

func schemaError(key string, err error) error {
	return &Error{Kind: ErrSchema, Op: "parse", Key: key, Err: err}
}
