package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerSection = `
ledger:
  vault_address: "0x1111111111111111111111111111111111111111"
  fee_recipient: "0x2222222222222222222222222222222222222222"
`

func TestLoadAPIConfig(t *testing.T) {
	tests := []struct {
		name        string
		configFile  string
		expectError bool
		validate    func(*testing.T, *APIConfig)
	}{
		{
			name: "valid config file",
			configFile: `
debug: true
sentry_dsn: "https://sentry.example.com"
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 20
  write_timeout: 20
  idle_timeout: 180
database:
  host: localhost
  port: 5432
  user: testuser
  password: testpass
  dbname: testdb
  sslmode: require
nats:
  url: "nats://localhost:4222"
  stream_name: "TEST_STREAM"
  max_reconnects: 5
  reconnect_wait: "5s"
  connection_name: "test-connection"
auth:
  jwt_public_key: "test-public-key"
  api_keys:
    - "key1"
    - "key2"
ledger:
  vault_address: "0x1111111111111111111111111111111111111111"
  fee_rate: "0.05"
  fee_recipient: "0x2222222222222222222222222222222222222222"
  settlement_asset: "usd"
  max_pack_item_count: 8
  max_royalty_owners: 4
`,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.True(t, cfg.Debug)
				assert.Equal(t, "https://sentry.example.com", cfg.SentryDSN)
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 20, cfg.Server.ReadTimeout)
				assert.Equal(t, 180, cfg.Server.IdleTimeout)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
				assert.Equal(t, "TEST_STREAM", cfg.NATS.StreamName)
				assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
				assert.Equal(t, "test-public-key", cfg.Auth.JWTPublicKey)
				assert.Len(t, cfg.Auth.APIKeys, 2)
				assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Ledger.VaultAddress)
				assert.Equal(t, "0x2222222222222222222222222222222222222222", cfg.Ledger.FeeRecipient)
				assert.True(t, cfg.Ledger.FeeRateDecimal().Equal(decimal.RequireFromString("0.05")))
				assert.Equal(t, "usd", cfg.Ledger.SettlementAsset)
				assert.Equal(t, 8, cfg.Ledger.MaxPackItemCount)
				assert.Equal(t, 4, cfg.Ledger.MaxRoyaltyOwners)
			},
		},
		{
			name: "config with defaults",
			configFile: `
database:
  host: localhost
  user: testuser
  password: testpass
  dbname: testdb
nats:
  url: "nats://localhost:4222"
` + ledgerSection,
			expectError: false,
			validate: func(t *testing.T, cfg *APIConfig) {
				assert.False(t, cfg.Debug)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 10, cfg.Server.ReadTimeout)
				assert.Equal(t, 10, cfg.Server.WriteTimeout)
				assert.Equal(t, 120, cfg.Server.IdleTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.NATS.MaxReconnects)
				assert.Equal(t, "2s", cfg.NATS.ReconnectWait.String())
				assert.Equal(t, "PACK_EVENTS", cfg.NATS.StreamName)
				assert.Equal(t, "0.05", cfg.Ledger.FeeRate)
				assert.Equal(t, "usd", cfg.Ledger.SettlementAsset)
				assert.Equal(t, 10, cfg.Ledger.MaxPackItemCount)
				assert.Equal(t, 10, cfg.Ledger.MaxRoyaltyOwners)
			},
		},
		{
			name:        "missing ledger addresses",
			configFile:  "debug: false\n",
			expectError: true,
			validate:    nil,
		},
		{
			name: "fee rate out of range",
			configFile: `
ledger:
  vault_address: "0x1111111111111111111111111111111111111111"
  fee_recipient: "0x2222222222222222222222222222222222222222"
  fee_rate: "1.5"
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "invalid vault address",
			configFile: `
ledger:
  vault_address: "not-an-address"
  fee_recipient: "0x2222222222222222222222222222222222222222"
`,
			expectError: true,
			validate:    nil,
		},
		{
			name: "invalid yaml",
			configFile: `
				database:
				  host: localhost
				  port: invalid
			`,
			expectError: true, // Invalid port should cause unmarshal error
			validate:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configFile := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configFile, []byte(tt.configFile), 0600)
			require.NoError(t, err)

			cfg, err := LoadAPIConfig(configFile, "")

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				if tt.validate != nil {
					require.NoError(t, err)
					require.NotNil(t, cfg)
					tt.validate(t, cfg)
				}
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "complete config",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "testpass",
				DBName:   "testdb",
				SSLMode:  "require",
			},
			expected: "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=require",
		},
		{
			name: "with special characters in password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "testuser",
				Password: "p@ssw0rd!",
				DBName:   "testdb",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=testuser password=p@ssw0rd! dbname=testdb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := tt.config.DSN()
			assert.Equal(t, tt.expected, dsn)
		})
	}
}

func TestLedgerConfig_Validate(t *testing.T) {
	valid := LedgerConfig{
		VaultAddress: "0x1111111111111111111111111111111111111111",
		FeeRate:      "0.05",
		FeeRecipient: "0x2222222222222222222222222222222222222222",
	}
	assert.NoError(t, valid.Validate())

	badRate := valid
	badRate.FeeRate = "abc"
	assert.Error(t, badRate.Validate())

	negRate := valid
	negRate.FeeRate = "-0.01"
	assert.Error(t, negRate.Validate())

	badRecipient := valid
	badRecipient.FeeRecipient = ""
	assert.Error(t, badRecipient.Validate())
}

func TestConfigWithEnvironmentVariables(t *testing.T) {
	tmpDir := t.TempDir()

	// Create temporary directory for env files
	envDir := filepath.Join(tmpDir, "env")
	err := os.MkdirAll(envDir, 0750)
	require.NoError(t, err)

	// Create .env file with environment variables
	// Note: Viper uses PACK_LEDGER_ prefix, so env vars need the prefix
	envFile := filepath.Join(envDir, ".env")
	envContent := `PACK_LEDGER_DEBUG=true
PACK_LEDGER_DATABASE_HOST=env-host
PACK_LEDGER_DATABASE_PORT=3306
PACK_LEDGER_DATABASE_USER=env-user
PACK_LEDGER_DATABASE_PASSWORD=env-pass
PACK_LEDGER_DATABASE_DBNAME=env-db
PACK_LEDGER_DATABASE_SSLMODE=require
`
	err = os.WriteFile(envFile, []byte(envContent), 0600)
	require.NoError(t, err)

	// Create config file with different values to verify env vars override
	configPath := filepath.Join(tmpDir, "config.yaml")
	configFile := `
debug: false
database:
  host: file-host
  port: 5432
  user: file-user
  password: file-pass
  dbname: file-db
  sslmode: disable
` + ledgerSection

	err = os.WriteFile(configPath, []byte(configFile), 0600)
	require.NoError(t, err)

	// Load config with envPath pointing to the temporary env directory
	cfg, err := LoadAPIConfig(configPath, envDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Verify that environment variables from .env file override config file values
	// The .env file is loaded via godotenv.Overload, which sets actual environment variables
	// Viper's AutomaticEnv then picks them up with PACK_LEDGER_ prefix
	assert.True(t, cfg.Debug)
	assert.Equal(t, "env-host", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, "env-user", cfg.Database.User)
	assert.Equal(t, "env-pass", cfg.Database.Password)
	assert.Equal(t, "env-db", cfg.Database.DBName)
	assert.Equal(t, "require", cfg.Database.SSLMode)
}
