package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGet_Defaults(t *testing.T) {
	for _, k := range []string{"LEDGER_STORE", "LISTING_FEE", "DB_MAX_CONNS", "CORS_ALLOWED_ORIGINS", "APPLY_SCHEMA_ON_START", "DB_MAX_CONN_IDLE_TIME"} {
		t.Setenv(k, "")
	}

	cfg := Get()

	require.Equal(t, "postgres", cfg.LedgerStore)
	require.True(t, cfg.ListingFee.Equal(decimal.NewFromInt(25)))
	require.Equal(t, int32(10), cfg.Database.MaxConns)
	require.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	require.True(t, cfg.Database.ApplySchemaOnStart)
	require.Equal(t, 5*time.Minute, cfg.Database.MaxConnIdleTime)
}

func TestGet_Overrides(t *testing.T) {
	t.Setenv("LEDGER_STORE", "Memory")
	t.Setenv("LISTING_FEE", "0")
	t.Setenv("DB_MAX_CONNS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("APPLY_SCHEMA_ON_START", "false")
	t.Setenv("DB_MAX_CONN_IDLE_TIME", "not-a-duration")
	t.Setenv("ENABLE_FAUCET", "true")

	cfg := Get()

	require.Equal(t, "memory", cfg.LedgerStore)
	require.True(t, cfg.ListingFee.IsZero())
	require.Equal(t, int32(3), cfg.Database.MaxConns)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	require.False(t, cfg.Database.ApplySchemaOnStart)
	require.Equal(t, 5*time.Minute, cfg.Database.MaxConnIdleTime)
	require.True(t, cfg.EnableFaucet)
}

func TestGet_ProductionForcesTLS(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ENABLE_TLS", "false")

	cfg := Get()

	require.Equal(t, "production", cfg.Env)
	require.True(t, cfg.TLS.Enable)

	t.Setenv("APP_ENV", "development")
	require.False(t, Get().TLS.Enable)
}

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		tls     TLSConfig
		wantErr bool
	}{
		{name: "development without certs", env: "development", tls: TLSConfig{Enable: false}},
		{name: "production disabled", env: "production", tls: TLSConfig{Enable: false}, wantErr: true},
		{name: "production missing key", env: "production", tls: TLSConfig{Enable: true, CertPath: "cert.pem"}, wantErr: true},
		{name: "production with files", env: "production", tls: TLSConfig{Enable: true, CertPath: "cert.pem", KeyPath: "key.pem"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tls.Validate(tt.env)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
