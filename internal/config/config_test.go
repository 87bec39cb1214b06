package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"DATABASE_URL":   "postgres://localhost/offscreen",
		"OPENAI_API_KEY": "sk-test",
	}))
	require.NoError(t, err)

	assert.Equal(t, "3333", cfg.Port)
	assert.Equal(t, ":3333", cfg.Addr())
	assert.Equal(t, ProviderOpenAI, cfg.Oracle.Provider)
	assert.Equal(t, 30*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.Equal(t, EvidenceLocal, cfg.Evidence.Backend)
	assert.True(t, cfg.Generator.Enabled)
}

func TestMissingKeysAreListed(t *testing.T) {
	_, err := FromViper(newViper(map[string]any{
		"EVIDENCE_BACKEND": "gcs",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "EVIDENCE_BUCKET")
}

func TestProviderNoneNeedsNoKey(t *testing.T) {
	cfg, err := FromViper(newViper(map[string]any{
		"DATABASE_URL":    "postgres://localhost/offscreen",
		"ORACLE_PROVIDER": "None",
		"SWEEP_INTERVAL":  "30s",
	}))
	require.NoError(t, err)
	assert.Equal(t, ProviderNone, cfg.Oracle.Provider)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestUnknownProvider(t *testing.T) {
	_, err := FromViper(newViper(map[string]any{
		"DATABASE_URL":    "postgres://localhost/offscreen",
		"ORACLE_PROVIDER": "mistral",
	}))
	assert.ErrorContains(t, err, "unsupported ORACLE_PROVIDER")
}

func TestRequireServer(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireServer())
	cfg.ClerkSecretKey = "sk"
	assert.NoError(t, cfg.RequireServer())
}

func TestPushCredentialsFromConfig(t *testing.T) {
	base := map[string]any{
		"DATABASE_URL":    "postgres://localhost/offscreen",
		"ORACLE_PROVIDER": "none",
	}
	cfg, err := FromViper(newViper(base))
	require.NoError(t, err)
	assert.False(t, cfg.PushConfigured())

	base["FCM_SERVICE_ACCOUNT_JSON"] = "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0="
	cfg, err = FromViper(newViper(base))
	require.NoError(t, err)
	assert.Equal(t, "eyJ0eXBlIjoic2VydmljZV9hY2NvdW50In0=", cfg.FCMServiceAccountJSON)
	assert.True(t, cfg.PushConfigured())
}
