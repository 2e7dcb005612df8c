package atlas

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImageMetadata is the sidecar record published next to every image.
type ImageMetadata struct {
	Name         string  `yaml:"name"`
	Image        string  `yaml:"image"`
	Version      Version `yaml:"version"`
	Distribution string  `yaml:"distribution"`
	Family       string  `yaml:"family"`
	Revision     int64   `yaml:"revision"`
}

// Version is informational. It may be authored as a string ("bookworm")
// or as a number (12); the form is kept so Marshal writes it back the same
// way.
type Version struct {
	Value   string
	Numeric bool
}

func (v Version) String() string { return v.Value }

// MarshalYAML emits the value as authored. A numeric version is written as
// a plain scalar so it resolves to the same number when read back; a string
// version is tagged !!str and quoted whenever it would look like a number.
func (v Version) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v.Value}
	if !v.Numeric {
		n.Tag = "!!str"
	}
	return n, nil
}

// ParseMetadata decodes and validates a sidecar document. Every field is
// required and strictly typed; the returned error is a *SchemaError naming
// the first offending field. Unknown fields are ignored.
func ParseMetadata(data []byte) (*ImageMetadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("is not valid YAML: %v", err)}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &SchemaError{Reason: "is empty"}
	}
	root := resolve(doc.Content[0])
	if root.Kind != yaml.MappingNode {
		return nil, &SchemaError{Reason: "must be a mapping"}
	}

	fields := make(map[string]*yaml.Node, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		fields[root.Content[i].Value] = resolve(root.Content[i+1])
	}

	var (
		m   ImageMetadata
		err error
	)
	if m.Name, err = stringField(fields, "name"); err != nil {
		return nil, err
	}
	if m.Image, err = stringField(fields, "image"); err != nil {
		return nil, err
	}
	if m.Version, err = versionField(fields, "version"); err != nil {
		return nil, err
	}
	if m.Distribution, err = stringField(fields, "distribution"); err != nil {
		return nil, err
	}
	if m.Family, err = stringField(fields, "family"); err != nil {
		return nil, err
	}
	if m.Revision, err = intField(fields, "revision"); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the constraints that hold beyond field types.
func (m *ImageMetadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return &SchemaError{Field: "name", Reason: "must not be empty"}
	}
	if !managedImage.MatchString(m.Image) {
		return &SchemaError{Field: "image", Reason: "must match distribox-<name>.qcow2"}
	}
	if m.Version.Value == "" {
		return &SchemaError{Field: "version", Reason: "is required"}
	}
	return nil
}

// Marshal validates m and encodes it as a sidecar document.
func (m *ImageMetadata) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// Key is the sidecar key this record is published under.
func (m *ImageMetadata) Key() string { return MetadataKey(m.Image) }

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalar(fields map[string]*yaml.Node, field string) (*yaml.Node, error) {
	n, ok := fields[field]
	if !ok || n == nil {
		return nil, &SchemaError{Field: field, Reason: "is required"}
	}
	if n.Kind != yaml.ScalarNode {
		return nil, &SchemaError{Field: field, Reason: "must be a scalar"}
	}
	return n, nil
}

func stringField(fields map[string]*yaml.Node, field string) (string, error) {
	n, err := scalar(fields, field)
	if err != nil {
		return "", err
	}
	if n.ShortTag() != "!!str" {
		return "", &SchemaError{Field: field, Reason: "must be a string"}
	}
	return n.Value, nil
}

func versionField(fields map[string]*yaml.Node, field string) (Version, error) {
	n, err := scalar(fields, field)
	if err != nil {
		return Version{}, err
	}
	switch n.ShortTag() {
	case "!!str":
		return Version{Value: n.Value}, nil
	case "!!int", "!!float":
		return Version{Value: n.Value, Numeric: true}, nil
	}
	return Version{}, &SchemaError{Field: field, Reason: "must be a string or a number"}
}

func intField(fields map[string]*yaml.Node, field string) (int64, error) {
	n, err := scalar(fields, field)
	if err != nil {
		return 0, err
	}
	if n.ShortTag() != "!!int" {
		return 0, &SchemaError{Field: field, Reason: "must be an integer"}
	}
	var v int64
	if err := n.Decode(&v); err != nil {
		return 0, &SchemaError{Field: field, Reason: "must be an integer"}
	}
	return v, nil
}
