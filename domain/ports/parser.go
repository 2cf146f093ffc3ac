package ports

import "github.com/frontrow-dev/frontrow-sdk/domain/entities"

// ManifestParser parses raw manifest bytes.
type ManifestParser interface {
	// Parse unmarshals the bytes into a MachineManifest struct.
	Parse(data []byte) (*entities.MachineManifest, error)

	// ParseDocument unmarshals the bytes into generic data for schema validation.
	ParseDocument(data []byte) (any, error)
}
