package sdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontrow-dev/frontrow-sdk/domain/entities"
	domainerrors "github.com/frontrow-dev/frontrow-sdk/domain/errors"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*entities.Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*entities.Config) {}},
		{name: "empty level", mutate: func(c *entities.Config) { c.LogLevel = "" }},
		{name: "unknown level", mutate: func(c *entities.Config) { c.LogLevel = "trace" }, wantErr: "log_level"},
		{name: "negative timeout", mutate: func(c *entities.Config) { c.ShutdownTimeout = -time.Second }, wantErr: "shutdown_timeout"},
		{name: "zero payload", mutate: func(c *entities.Config) { c.MaxPayloadSize = 0 }, wantErr: "max_payload_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := entities.DefaultConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			var configErr *domainerrors.ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.wantErr, configErr.Field)
		})
	}
}
