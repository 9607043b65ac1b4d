package chain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadNetworkDefaults(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	t.Setenv("RPC_URL", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NETWORK", "")

	cfg, err := LoadNetwork("testnet")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 84532 {
		t.Errorf("testnet chain id = %d, want 84532", cfg.ChainID)
	}

	cfg, err = LoadNetwork("mainnet")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 8453 {
		t.Errorf("mainnet chain id = %d, want 8453", cfg.ChainID)
	}

	if _, err := LoadNetwork("devnet"); err == nil {
		t.Error("unknown network must fail")
	}
}

func TestLoadNetworkFallsBackToEnvName(t *testing.T) {
	t.Setenv("SETTINGS_FILE", "")
	t.Setenv("RPC_URL", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("NETWORK", "mainnet")

	cfg, err := LoadNetwork("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "mainnet" {
		t.Errorf("name = %q", cfg.Name)
	}
}

func TestLoadNetworkOverlays(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings.yaml")
	body := `networks:
  testnet:
    rpcUrl: https://rpc.example.test
    escrowAddress: "0x00000000000000000000000000000000000000AA"
`
	if err := os.WriteFile(settings, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SETTINGS_FILE", settings)
	t.Setenv("RPC_URL", "")
	t.Setenv("API_BASE_URL", "")

	cfg, err := LoadNetwork("testnet")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example.test" {
		t.Errorf("settings file did not override rpc url: %q", cfg.RPCURL)
	}
	if cfg.EscrowAddress != "0x00000000000000000000000000000000000000AA" {
		t.Errorf("escrow = %q", cfg.EscrowAddress)
	}
	// Untouched fields keep their defaults.
	if cfg.ChainID != 84532 {
		t.Errorf("chain id = %d", cfg.ChainID)
	}

	t.Run("env beats settings file", func(t *testing.T) {
		t.Setenv("RPC_URL", "http://127.0.0.1:8545")
		cfg, err := LoadNetwork("testnet")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.RPCURL != "http://127.0.0.1:8545" {
			t.Errorf("rpc url = %q", cfg.RPCURL)
		}
	})
}
