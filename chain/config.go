package chain

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// NetworkConfig selects the chain endpoint and contract addresses for one
// deployment of the escrow.
type NetworkConfig struct {
	Name          string `yaml:"name"`
	ChainID       int64  `yaml:"chainId"`
	RPCURL        string `yaml:"rpcUrl"`
	EscrowAddress string `yaml:"escrowAddress"`
	LinkToken     string `yaml:"linkToken"`
	APIBaseURL    string `yaml:"apiBaseUrl"`
}

type settingsFile struct {
	Networks map[string]NetworkConfig `yaml:"networks"`
}

var defaultNetworks = map[string]NetworkConfig{
	"testnet": {
		Name:          "testnet",
		ChainID:       84532,
		RPCURL:        "https://sepolia.base.org",
		EscrowAddress: "0x6d9E40C8533E7a4d3cDfDd4050F923418461C7AB",
		LinkToken:     "0xE4aB69C077896252FAFBD49EFD26B5D171A32410",
		APIBaseURL:    "https://testnet.bountyboard.app/api",
	},
	"mainnet": {
		Name:          "mainnet",
		ChainID:       8453,
		RPCURL:        "https://mainnet.base.org",
		EscrowAddress: "0x90fF33f0Ce2C59Ecb0b039e2A82e6D8b7aD42e17",
		LinkToken:     "0x88Fb150BDc53A65fe94Dea0c9BA0a6dAf8C6e196",
		APIBaseURL:    "https://bountyboard.app/api",
	},
}

// LoadNetwork resolves the network config: built-in defaults, optionally
// overlaid by a YAML settings file (SETTINGS_FILE), then by RPC_URL and
// API_BASE_URL environment variables.
func LoadNetwork(name string) (NetworkConfig, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(os.Getenv("NETWORK")))
	}
	if name == "" {
		name = "testnet"
	}
	cfg, ok := defaultNetworks[name]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unknown network %q (want testnet or mainnet)", name)
	}
	if path := strings.TrimSpace(os.Getenv("SETTINGS_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return NetworkConfig{}, fmt.Errorf("read settings file: %w", err)
		}
		var f settingsFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return NetworkConfig{}, fmt.Errorf("parse settings file: %w", err)
		}
		if override, ok := f.Networks[name]; ok {
			cfg = mergeNetwork(cfg, override)
		}
	}
	if v := strings.TrimSpace(os.Getenv("RPC_URL")); v != "" {
		cfg.RPCURL = v
	}
	if v := strings.TrimSpace(os.Getenv("API_BASE_URL")); v != "" {
		cfg.APIBaseURL = v
	}
	return cfg, nil
}

func mergeNetwork(base, override NetworkConfig) NetworkConfig {
	out := base
	if override.ChainID != 0 {
		out.ChainID = override.ChainID
	}
	if override.RPCURL != "" {
		out.RPCURL = override.RPCURL
	}
	if override.EscrowAddress != "" {
		out.EscrowAddress = override.EscrowAddress
	}
	if override.LinkToken != "" {
		out.LinkToken = override.LinkToken
	}
	if override.APIBaseURL != "" {
		out.APIBaseURL = override.APIBaseURL
	}
	return out
}

// ChainIDBig returns the chain id as a big.Int for transaction signing.
func (c NetworkConfig) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// Escrow returns the escrow contract address.
func (c NetworkConfig) Escrow() common.Address {
	return common.HexToAddress(c.EscrowAddress)
}

// LinkTokenAddress returns the evaluation-fee token address.
func (c NetworkConfig) LinkTokenAddress() common.Address {
	return common.HexToAddress(c.LinkToken)
}
