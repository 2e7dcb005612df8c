package atlas

import (
	"bytes"
	"io"
	"os"
)

// qcow2Magic is the big-endian signature 0x514649FB.
var qcow2Magic = []byte{'Q', 'F', 'I', 0xFB}

// IsQcow2 reads at most four bytes from r and reports whether they are the
// qcow2 signature. Short input is not an image.
func IsQcow2(r io.Reader) bool {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false
	}
	return bytes.Equal(buf[:], qcow2Magic)
}

// IsQcow2Image opens path and checks its signature. The error is non-nil
// only when the file cannot be opened.
func IsQcow2Image(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, pathError("open", path, err)
	}
	defer f.Close()

	return IsQcow2(f), nil
}
