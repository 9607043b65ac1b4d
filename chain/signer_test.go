package chain

import (
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"bounty-orchestrator/core/bounty"
)

func TestNewSignerFromEnvRequiresSetup(t *testing.T) {
	chainID := big.NewInt(84532)

	t.Run("missing keystore path", func(t *testing.T) {
		t.Setenv("KEYSTORE_PATH", "")
		t.Setenv("WALLET_PASSWORD", "secret")
		_, err := NewSignerFromEnv(chainID)
		requireAuthError(t, err)
	})

	t.Run("missing password", func(t *testing.T) {
		t.Setenv("KEYSTORE_PATH", "/tmp/wallet.json")
		t.Setenv("WALLET_PASSWORD", "")
		_, err := NewSignerFromEnv(chainID)
		requireAuthError(t, err)
	})
}

func TestNewSignerFilePermissions(t *testing.T) {
	dir := t.TempDir()
	chainID := big.NewInt(84532)

	t.Run("missing file", func(t *testing.T) {
		_, err := NewSigner(filepath.Join(dir, "nope.json"), "secret", chainID)
		requireAuthError(t, err)
	})

	t.Run("group-readable keystore is refused", func(t *testing.T) {
		path := filepath.Join(dir, "loose.json")
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := NewSigner(path, "secret", chainID)
		requireAuthError(t, err)
	})

	t.Run("undecryptable keystore is refused", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := NewSigner(path, "secret", chainID)
		requireAuthError(t, err)
	})
}

func requireAuthError(t *testing.T, err error) {
	t.Helper()
	var authErr *bounty.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
}
