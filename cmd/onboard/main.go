package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	flag "github.com/spf13/pflag"

	"bounty-orchestrator/chain"
	"bounty-orchestrator/cli"
	"bounty-orchestrator/core/bounty"
)

const fundingPollInterval = 15 * time.Second

// onboard prints the wallet address as a terminal QR code and waits until
// the account holds enough native token and LINK to run the workflows. The
// user funds the wallet from another device and terminates manually if they
// change their mind.
func main() {
	network := flag.String("network", "testnet", "target network (testnet|mainnet)")
	flag.Parse()

	cfg, err := chain.LoadNetwork(*network)
	if err != nil {
		cli.Fail(err)
	}
	signer, err := chain.NewSignerFromEnv(cfg.ChainIDBig())
	if err != nil {
		cli.Fail(err)
	}

	ctx := context.Background()
	client, err := chain.Dial(ctx, cfg)
	if err != nil {
		cli.Fail(fmt.Errorf("dial %s: %w", cfg.RPCURL, err))
	}
	defer client.Close()

	addr := signer.Address()
	qr, err := qrcode.New(addr.Hex(), qrcode.Medium)
	if err != nil {
		cli.Fail(fmt.Errorf("render QR code: %w", err))
	}
	fmt.Printf("Fund this wallet on %s:\n\n%s\n%s\n", cfg.Name, addr.Hex(), qr.ToSmallString(false))

	minETH := thresholdWei("MIN_ETH", "0.001")
	minLINK := thresholdWei("MIN_LINK", "1")
	log.Printf("waiting for balances of at least %s wei native and %s LINK (juels)", minETH, minLINK)

	for {
		eth, err := client.NativeBalance(ctx, addr)
		if err != nil {
			log.Printf("warning: read native balance: %v", err)
			time.Sleep(fundingPollInterval)
			continue
		}
		link, err := client.LinkBalance(ctx, addr)
		if err != nil {
			log.Printf("warning: read LINK balance: %v", err)
			time.Sleep(fundingPollInterval)
			continue
		}

		log.Printf("balances: %s wei native, %s juels LINK", eth, link)
		if eth.Cmp(minETH) >= 0 && link.Cmp(minLINK) >= 0 {
			fmt.Println("Wallet is funded. You can now create, submit, and claim bounties.")
			return
		}
		time.Sleep(fundingPollInterval)
	}
}

func thresholdWei(envKey, fallback string) *big.Int {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = fallback
	}
	wei, err := bounty.ParseDecimalWei(raw)
	if err != nil {
		log.Printf("warning: invalid %s=%q, using %s", envKey, raw, fallback)
		wei, _ = bounty.ParseDecimalWei(fallback)
	}
	return wei
}
