package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalConfig = `environment: test
server:
  port: 8080
auth:
  jwt_secret: file-secret
finnhub:
  api_key: file-key
universe:
  symbols: [AAPL, MSFT]
`

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FINNHUB_API_KEY", "SYMBOLS", "JWT_SECRET",
		"POSTGRES_PASSWORD", "KAFKA_BROKERS", "REDIS_ADDR",
		"SERVER_PORT", "REDIS_DB",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	clearOverrides(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Fatalf("jwt secret = %q, want env override", cfg.Auth.JWTSecret)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("redis db = %d, want 3", cfg.Redis.DB)
	}
}

func TestLoadWithEnvKeepsFileValuesOnBadOverride(t *testing.T) {
	clearOverrides(t)
	t.Setenv("SERVER_PORT", "not-a-number")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("port = %d, want the file value 8080", cfg.Server.Port)
	}
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	clearOverrides(t)
	_, err := LoadWithEnv(writeConfig(t, "environment: test\n"))
	if err == nil {
		t.Fatal("config without symbols and secrets must not validate")
	}
}
