package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, IdentityGRPC, cfg.IdentityProvider)
	assert.Equal(t, 5*time.Second, cfg.TypingTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.DBMigrate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("IDENTITY_PROVIDER", "http")
	t.Setenv("IDENTITY_HTTP_URL", "https://api.example.com")
	t.Setenv("TYPING_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,https://admin.example.com")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, IdentityHTTP, cfg.IdentityProvider)
	assert.Equal(t, 3*time.Second, cfg.TypingTimeout)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {},
		"unknown provider": {"JWT_SECRET": "s", "IDENTITY_PROVIDER": "ldap"},
		"http without url": {"JWT_SECRET": "s", "IDENTITY_PROVIDER": "http"},
		"bad duration":     {"JWT_SECRET": "s", "TYPING_TIMEOUT": "soon"},
		"zero timeout":     {"JWT_SECRET": "s", "TYPING_TIMEOUT": "0s"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for key, value := range vars {
				t.Setenv(key, value)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
