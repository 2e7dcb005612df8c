package atlas

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsQcow2(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"magic only", []byte{0x51, 0x46, 0x49, 0xFB}, true},
		{"magic and header", qcow2Header, true},
		{"empty", nil, false},
		{"short", []byte{0x51, 0x46, 0x49}, false},
		{"wrong last byte", []byte{0x51, 0x46, 0x49, 0xFA}, false},
		{"raw disk", bytes.Repeat([]byte{0}, 512), false},
		{"little endian", []byte{0xFB, 0x49, 0x46, 0x51}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQcow2(bytes.NewReader(tt.data)))
		})
	}
}

func TestIsQcow2ReadsAtMostFourBytes(t *testing.T) {
	r := bytes.NewReader(append([]byte("QFI\xfb"), "rest"...))
	require.True(t, IsQcow2(r))
	assert.Equal(t, 4, r.Len())
}

func TestIsQcow2Image(t *testing.T) {
	dir := t.TempDir()

	image := filepath.Join(dir, "distribox-a.qcow2")
	require.NoError(t, os.WriteFile(image, qcow2Header, 0o644))
	ok, err := IsQcow2Image(image)
	require.NoError(t, err)
	assert.True(t, ok)

	text := filepath.Join(dir, "distribox-b.qcow2")
	require.NoError(t, os.WriteFile(text, []byte("not an image"), 0o644))
	ok, err = IsQcow2Image(text)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = IsQcow2Image(filepath.Join(dir, "missing.qcow2"))
	assert.ErrorIs(t, err, ErrPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
