package sdk

import (
	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	"github.com/frontrow-dev/frontrow-sdk/internal/validate"
)

// ValidateConfig checks SDK settings. The first invalid field is reported
// as a *errors.ConfigError.
func ValidateConfig(cfg entities.Config) error {
	return validate.Config(cfg)
}
