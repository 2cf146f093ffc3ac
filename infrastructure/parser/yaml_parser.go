// Package parser decodes machine manifests.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/domain/ports"
)

// YamlManifestParser implements ManifestParser for YAML. JSON manifests
// parse as well, being valid YAML.
type YamlManifestParser struct{}

// NewYamlManifestParser creates a new YamlManifestParser.
func NewYamlManifestParser() ports.ManifestParser {
	return &YamlManifestParser{}
}

// Parse unmarshals YAML bytes into a MachineManifest. Unknown keys are rejected.
func (p *YamlManifestParser) Parse(data []byte) (*entities.MachineManifest, error) {
	var manifest entities.MachineManifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&manifest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest is empty")
		}
		return nil, err
	}
	return &manifest, nil
}

// ParseDocument unmarshals YAML bytes into maps, slices and scalars.
func (p *YamlManifestParser) ParseDocument(data []byte) (any, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("manifest is empty")
	}
	return doc, nil
}
