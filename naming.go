package atlas

import (
	"path/filepath"
	"regexp"
	"strings"
)

// MetadataSuffix is appended to an image's leading name component to form
// its sidecar key.
const MetadataSuffix = ".metadata.yaml"

var managedImage = regexp.MustCompile(`^distribox-(.*)\.qcow2$`)

// IsManagedImage reports whether name follows the registry naming
// convention. Only the base name of a path is considered.
func IsManagedImage(name string) bool {
	return managedImage.MatchString(filepath.Base(name))
}

// MetadataKey derives the sidecar key of an image: everything before the
// first dot of the base name, followed by MetadataSuffix.
//
//	distribox-ubuntu-22-04.qcow2 -> distribox-ubuntu-22-04.metadata.yaml
func MetadataKey(image string) string {
	base := filepath.Base(image)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base + MetadataSuffix
}

// IsMetadataKey reports whether an object key names a sidecar.
func IsMetadataKey(key string) bool {
	return strings.HasSuffix(key, MetadataSuffix)
}
