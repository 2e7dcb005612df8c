package atlas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const debianSidecar = `name: Debian 12
image: distribox-debian-12.qcow2
version: 12
distribution: debian
family: linux
revision: 5
`

func TestParseMetadata(t *testing.T) {
	m, err := ParseMetadata([]byte(debianSidecar))
	require.NoError(t, err)

	assert.Equal(t, "Debian 12", m.Name)
	assert.Equal(t, "distribox-debian-12.qcow2", m.Image)
	assert.Equal(t, Version{Value: "12", Numeric: true}, m.Version)
	assert.Equal(t, "debian", m.Distribution)
	assert.Equal(t, "linux", m.Family)
	assert.Equal(t, int64(5), m.Revision)
	assert.Equal(t, "distribox-debian-12.metadata.yaml", m.Key())
}

func TestParseMetadataVersionForms(t *testing.T) {
	tests := map[string]Version{
		`"12"`:     {Value: "12"},
		`bookworm`: {Value: "bookworm"},
		`22.04`:    {Value: "22.04", Numeric: true},
		`12`:       {Value: "12", Numeric: true},
	}
	for raw, want := range tests {
		doc := `{name: n, image: distribox-n.qcow2, version: ` + raw + `, distribution: d, family: f, revision: 1}`
		m, err := ParseMetadata([]byte(doc))
		require.NoError(t, err, raw)
		assert.Equal(t, want, m.Version, raw)
	}
}

func TestParseMetadataIgnoresUnknownFields(t *testing.T) {
	m, err := ParseMetadata([]byte(debianSidecar + "checksum: abc\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.Revision)
}

func TestParseMetadataErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"empty", "", ""},
		{"not yaml", "name: [unclosed", ""},
		{"sequence", "- a\n- b\n", ""},
		{"missing revision", `{name: n, image: distribox-n.qcow2, version: 1, distribution: d, family: f}`, "revision"},
		{"string revision", `{name: n, image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: "5"}`, "revision"},
		{"float revision", `{name: n, image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: 5.5}`, "revision"},
		{"null revision", `{name: n, image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: ~}`, "revision"},
		{"missing name", `{image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: 1}`, "name"},
		{"empty name", `{name: "", image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: 1}`, "name"},
		{"numeric name", `{name: 7, image: distribox-n.qcow2, version: 1, distribution: d, family: f, revision: 1}`, "name"},
		{"bad image", `{name: n, image: n.qcow2, version: 1, distribution: d, family: f, revision: 1}`, "image"},
		{"image path", `{name: n, image: dir/distribox-n.qcow2, version: 1, distribution: d, family: f, revision: 1}`, "image"},
		{"bool version", `{name: n, image: distribox-n.qcow2, version: true, distribution: d, family: f, revision: 1}`, "version"},
		{"list family", `{name: n, image: distribox-n.qcow2, version: 1, distribution: d, family: [a], revision: 1}`, "family"},
		{"missing distribution", `{name: n, image: distribox-n.qcow2, version: 1, family: f, revision: 1}`, "distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseMetadata([]byte(tt.doc))
			assert.Nil(t, m)
			require.ErrorIs(t, err, ErrSchema)

			var serr *SchemaError
			require.True(t, errors.As(err, &serr))
			assert.Equal(t, tt.field, serr.Field)
		})
	}
}

func TestMetadataMarshalRoundTrip(t *testing.T) {
	m, err := ParseMetadata([]byte(debianSidecar))
	require.NoError(t, err)

	data, err := m.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 12\n")

	again, err := ParseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, m, again)
}

func TestMetadataMarshalKeepsAuthoredVersion(t *testing.T) {
	for _, raw := range []string{"22.10", "012", "12.0", "0x10", "12", `"22.04"`, "bookworm"} {
		doc := "{name: n, image: distribox-n.qcow2, version: " + raw + ", distribution: d, family: f, revision: 1}"
		m, err := ParseMetadata([]byte(doc))
		require.NoError(t, err, raw)

		data, err := m.Marshal()
		require.NoError(t, err, raw)
		assert.Contains(t, string(data), "version: "+raw+"\n", raw)

		again, err := ParseMetadata(data)
		require.NoError(t, err, raw)
		assert.Equal(t, m.Version, again.Version, raw)
	}
}

func TestMetadataMarshalQuotesNumericLookingStrings(t *testing.T) {
	m := &ImageMetadata{
		Name:         "Ubuntu 22.04",
		Image:        "distribox-ubuntu-22-04.qcow2",
		Version:      Version{Value: "22.04"},
		Distribution: "ubuntu",
		Family:       "linux",
		Revision:     1,
	}
	data, err := m.Marshal()
	require.NoError(t, err)

	again, err := ParseMetadata(data)
	require.NoError(t, err)
	assert.Equal(t, Version{Value: "22.04"}, again.Version)
}

func TestMetadataMarshalValidates(t *testing.T) {
	_, err := (&ImageMetadata{Name: "x", Image: "x.img", Version: Version{Value: "1"}}).Marshal()
	assert.ErrorIs(t, err, ErrSchema)
}
