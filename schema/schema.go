// Package schema loads component type descriptions from TOML or YAML files.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/oliverbestmann/tilecs/spoke"
)

var ErrUnknownFormat = errors.New("unknown schema format")

// Component describes one component type in a schema file.
type Component struct {
	ID            uint16 `toml:"id" yaml:"id"`
	Name          string `toml:"name" yaml:"name"`
	Size          uint32 `toml:"size" yaml:"size"`
	Align         uint32 `toml:"align" yaml:"align"`
	PrototypeOnly bool   `toml:"prototype_only" yaml:"prototype_only"`
}

type schemaFile struct {
	Components []Component `toml:"component" yaml:"components"`
}

// Load reads a schema file. The format is chosen by the file extension:
// .toml for TOML, .yaml or .yml for YAML.
func Load(path string) ([]spoke.ComponentInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	var components []Component

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		components, err = DecodeTOML(bytes.NewReader(data))
	case ".yaml", ".yml":
		components, err = DecodeYAML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("schema %s: %w %q", path, ErrUnknownFormat, ext)
	}

	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}

	return Infos(components), nil
}

func DecodeTOML(r io.Reader) ([]Component, error) {
	var file schemaFile
	if _, err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, err
	}

	return file.Components, nil
}

func DecodeYAML(r io.Reader) ([]Component, error) {
	var file schemaFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return file.Components, nil
}

// Infos converts schema components to component descriptors.
// Validation is left to spoke.NewComponentTable.
func Infos(components []Component) []spoke.ComponentInfo {
	infos := make([]spoke.ComponentInfo, 0, len(components))

	for _, component := range components {
		infos = append(infos, spoke.ComponentInfo{
			ID:            spoke.ComponentID(component.ID),
			Name:          component.Name,
			Size:          component.Size,
			Align:         component.Align,
			PrototypeOnly: component.PrototypeOnly,
		})
	}

	return infos
}

// LoadTable reads a schema file and builds a component table from it.
func LoadTable(path string) (*spoke.ComponentTable, error) {
	infos, err := Load(path)
	if err != nil {
		return nil, err
	}

	table, err := spoke.NewComponentTable(infos)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}

	return table, nil
}
