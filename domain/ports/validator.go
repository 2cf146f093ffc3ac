package ports

import "github.com/frontrow-dev/frontrow-sdk/domain/entities"

// ManifestValidator checks a raw manifest document against the manifest schema.
type ManifestValidator interface {
	// Validate reports every schema violation found in document.
	// The document is the manifest as generic data (decoded YAML or JSON).
	Validate(document any) (*entities.ValidationResult, error)
}
