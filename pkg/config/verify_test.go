package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalConfig() *Config {
	cfg := &Config{}
	cfg.Email.To = "reports@example.com"
	cfg.Email.SMTP.Host = "localhost"
	cfg.Email.SMTP.Port = 587
	cfg.Keywords.Tier1 = []string{"marine"}
	return cfg
}

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	tests := []struct {
		name    string
		config  func() *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			config: minimalConfig,
		},
		{
			name: "missing recipient",
			config: func() *Config {
				cfg := minimalConfig()
				cfg.Email.To = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "email.to is required",
		},
		{
			name: "missing smtp host",
			config: func() *Config {
				cfg := minimalConfig()
				cfg.Email.SMTP.Host = ""
				return cfg
			},
			wantErr: true,
			errMsg:  "email.smtp.host is required",
		},
		{
			name: "missing keywords",
			config: func() *Config {
				cfg := minimalConfig()
				cfg.Keywords.Tier1 = nil
				return cfg
			},
			wantErr: true,
			errMsg:  "keywords.tier1 is required",
		},
		{
			name: "server enabled without timeout",
			config: func() *Config {
				cfg := minimalConfig()
				cfg.Server.Listen = ":8080"
				return cfg
			},
			wantErr: true,
			errMsg:  "server.timeout is required when server is enabled",
		},
		{
			name: "server enabled with timeout",
			config: func() *Config {
				cfg := minimalConfig()
				cfg.Server.Listen = ":8080"
				cfg.Server.Timeout = 30 * time.Second
				return cfg
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyAgainstEmbeddedSchema(tt.config())
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, schema)

	// verify schema can be marshaled to JSON
	data, err := schema.MarshalJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// verify it contains expected fields
	schemaStr := string(data)
	assert.Contains(t, schemaStr, "Config")
	assert.Contains(t, schemaStr, "email")
	assert.Contains(t, schemaStr, "keywords")
	assert.Contains(t, schemaStr, "sources")
}
