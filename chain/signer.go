package chain

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"bounty-orchestrator/core/bounty"
)

// Signer holds the decrypted wallet key for one process. The key is
// decrypted once at load time and never re-read.
type Signer struct {
	key     *keystore.Key
	chainID *big.Int
}

// NewSignerFromEnv loads the keystore named by KEYSTORE_PATH and decrypts it
// with WALLET_PASSWORD.
func NewSignerFromEnv(chainID *big.Int) (*Signer, error) {
	path := strings.TrimSpace(os.Getenv("KEYSTORE_PATH"))
	if path == "" {
		return nil, &bounty.AuthError{Reason: "KEYSTORE_PATH is not set"}
	}
	password := os.Getenv("WALLET_PASSWORD")
	if password == "" {
		return nil, &bounty.AuthError{Reason: "WALLET_PASSWORD is not set"}
	}
	return NewSigner(path, password, chainID)
}

// NewSigner decrypts an encrypted-wallet JSON file. The keystore must not be
// group or world readable.
func NewSigner(path, password string, chainID *big.Int) (*Signer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &bounty.AuthError{Reason: fmt.Sprintf("keystore not found at %s", path)}
	}
	if info.Mode().Perm()&0o077 != 0 {
		return nil, &bounty.AuthError{Reason: fmt.Sprintf("keystore %s must have mode 0600, has %04o", path, info.Mode().Perm())}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &bounty.AuthError{Reason: fmt.Sprintf("read keystore: %v", err)}
	}
	key, err := keystore.DecryptKey(raw, password)
	if err != nil {
		return nil, &bounty.AuthError{Reason: fmt.Sprintf("decrypt keystore: %v", err)}
	}
	return &Signer{key: key, chainID: chainID}, nil
}

// Address returns the signing account address.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PrivateKey.PublicKey)
}

// SignTx signs a transaction for the configured chain.
func (s *Signer) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
