package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.True(t, c.RequireVerification)
	assert.Equal(t, []string{"com", "net"}, c.AllowedTLDs)
	assert.Equal(t, "local", c.AvatarStorage)
	assert.False(t, c.TrustProxy)
	assert.False(t, c.IsProduction())
}

func TestLoad_RequiresSecretKey(t *testing.T) {
	_, err := Load(envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoad_OverlaysEnvironment(t *testing.T) {
	c, err := Load(envMap(map[string]string{
		"CONTACTBOOK_SECRET_KEY":           "s3cret",
		"CONTACTBOOK_PORT":                 "8081",
		"CONTACTBOOK_TOKEN_TTL":            "2h",
		"CONTACTBOOK_REQUIRE_VERIFICATION": "false",
		"CONTACTBOOK_ALLOWED_TLDS":         " COM, org ,",
		"CONTACTBOOK_BASE_URL":             "https://contacts.example.com/",
		"CONTACTBOOK_DB_DRIVER":            "mongo",
		"CONTACTBOOK_TRUST_PROXY":          "true",
		"CONTACTBOOK_ENV":                  "production",
	}))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", c.SecretKey)
	assert.Equal(t, "8081", c.Port)
	assert.Equal(t, 2*time.Hour, c.TokenTTL)
	assert.False(t, c.RequireVerification)
	assert.Equal(t, []string{"com", "org"}, c.AllowedTLDs)
	assert.Equal(t, "https://contacts.example.com", c.BaseURL)
	assert.Equal(t, "mongo", c.DBDriver)
	assert.True(t, c.TrustProxy)
	assert.True(t, c.IsProduction())
}

func TestLoad_DefaultBaseURLUsesPort(t *testing.T) {
	c, err := Load(envMap(map[string]string{
		"CONTACTBOOK_SECRET_KEY": "k",
		"CONTACTBOOK_PORT":       "9999",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", c.BaseURL)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad ttl":          {"CONTACTBOOK_TOKEN_TTL": "soon"},
		"negative ttl":     {"CONTACTBOOK_TOKEN_TTL": "-1h"},
		"bad bool":         {"CONTACTBOOK_REQUIRE_VERIFICATION": "maybe"},
		"bad trust proxy":  {"CONTACTBOOK_TRUST_PROXY": "sometimes"},
		"bad driver":       {"CONTACTBOOK_DB_DRIVER": "postgres"},
		"bad storage":      {"CONTACTBOOK_AVATAR_STORAGE": "ftp"},
		"s3 without creds": {"CONTACTBOOK_AVATAR_STORAGE": "s3"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			env["CONTACTBOOK_SECRET_KEY"] = "k"
			_, err := Load(envMap(env))
			assert.Error(t, err)
		})
	}
}
