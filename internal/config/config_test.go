package config_test

import (
	"testing"
	"time"

	"royalchoice/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg := config.FromViper(viper.New())

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "mongo", cfg.StorageDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, config.DefaultJWTSecret, cfg.JWTSecret)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"http://localhost:5173", "https://royal-choice.netlify.app"}, cfg.AllowedOrigins())
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("PORT", ":9000")
	v.Set("NODE_ENV", "production")
	v.Set("VITE_APP_URL", "https://shop.example.com")
	v.Set("STORAGE_DRIVER", "SQLite")

	cfg := config.FromViper(v)

	assert.Equal(t, "9000", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.AllowedOrigins())
}

func TestAllowedOrigins_ProductionWithoutAppURL(t *testing.T) {
	cfg := config.Config{Env: "production"}
	assert.Empty(t, cfg.AllowedOrigins())
}

func TestFromViper_ProductionHasNoDefaultJWTSecret(t *testing.T) {
	v := viper.New()
	v.Set("NODE_ENV", "production")

	cfg := config.FromViper(v)

	assert.True(t, cfg.IsProduction())
	assert.Empty(t, cfg.JWTSecret)
	assert.ErrorIs(t, cfg.Validate(), config.ErrInsecureJWTSecret)
}

func TestValidate_JWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "production empty", cfg: config.Config{Env: "production"}, wantErr: true},
		{name: "production blank", cfg: config.Config{Env: "production", JWTSecret: "  "}, wantErr: true},
		{name: "production default", cfg: config.Config{Env: "production", JWTSecret: config.DefaultJWTSecret}, wantErr: true},
		{name: "production set", cfg: config.Config{Env: "production", JWTSecret: "s3cr3t-value"}},
		{name: "development default", cfg: config.Config{Env: "development", JWTSecret: config.DefaultJWTSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInsecureJWTSecret)
				return
			}
			require.NoError(t, err)
		})
	}
}
