package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"bounty-orchestrator/core/bounty"
)

// UnsignedTx is a transaction the executor can dry-run, sign, and broadcast.
// GasLimit is only honored when UseServerGas is set; otherwise the executor
// estimates and applies headroom.
type UnsignedTx struct {
	Op           string
	To           common.Address
	Data         []byte
	Value        *big.Int
	GasLimit     uint64
	UseServerGas bool
}

// Executor drives one transaction through dry-run, gas budgeting, broadcast,
// and confirmation. A dry-run revert aborts before any funds are spent and is
// never retried.
type Executor struct {
	eth    *ethclient.Client
	signer *Signer
}

// NewExecutor pairs a chain backend with a signer.
func NewExecutor(eth *ethclient.Client, signer *Signer) *Executor {
	return &Executor{eth: eth, signer: signer}
}

// Execute runs the full pipeline and returns the mined receipt.
func (e *Executor) Execute(ctx context.Context, tx UnsignedTx) (*types.Receipt, error) {
	if tx.Value == nil {
		tx.Value = new(big.Int)
	}
	from := e.signer.Address()
	msg := ethereum.CallMsg{From: from, To: &tx.To, Data: tx.Data, Value: tx.Value}

	estimate, err := e.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, &bounty.RevertError{Op: tx.Op, Reason: RevertReason(err)}
	}

	gasLimit := estimate + estimate/5
	if tx.UseServerGas && tx.GasLimit > 0 {
		// Oracle-dispatch calls have gas costs the client cannot estimate;
		// the server-recommended limit is used verbatim.
		gasLimit = tx.GasLimit
	}

	nonce, err := e.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch nonce: %w", tx.Op, err)
	}
	gasPrice, err := e.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: suggest gas price: %w", tx.Op, err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &tx.To,
		Value:    tx.Value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     tx.Data,
	})
	signed, err := e.signer.SignTx(unsigned)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tx.Op, err)
	}

	if err := e.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%s: broadcast: %w", tx.Op, err)
	}
	log.Printf("tx %s: broadcast %s (gas limit %d)", tx.Op, signed.Hash().Hex(), gasLimit)

	receipt, err := bind.WaitMined(ctx, e.eth, signed)
	if err != nil {
		return nil, fmt.Errorf("%s: wait for confirmation: %w", tx.Op, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &bounty.RevertError{Op: tx.Op, Reason: fmt.Sprintf("transaction %s reverted on-chain", signed.Hash().Hex())}
	}
	log.Printf("tx %s: confirmed in block %d (%s)", tx.Op, receipt.BlockNumber.Uint64(), signed.Hash().Hex())
	return receipt, nil
}

// errorSelector is the 4-byte selector of Error(string).
var errorSelector = [4]byte{0x08, 0xc3, 0x79, 0xa0}

// RevertReason extracts the revert string from an RPC error. Falls back to
// the raw error text when the node did not attach return data.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}
	var de interface{ ErrorData() interface{} }
	if asDataError(err, &de) {
		if reason, ok := decodeRevertData(de.ErrorData()); ok {
			return reason
		}
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted: "); idx >= 0 {
		return msg[idx+len("execution reverted: "):]
	}
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		return strings.TrimSpace(strings.TrimPrefix(msg[idx:], "execution reverted"))
	}
	return msg
}

func asDataError(err error, out *interface{ ErrorData() interface{} }) bool {
	for err != nil {
		if de, ok := err.(interface{ ErrorData() interface{} }); ok {
			*out = de
			return true
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func decodeRevertData(data interface{}) (string, bool) {
	hexStr, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(hexStr, "0x"))
	if err != nil || len(raw) < 4 {
		return "", false
	}
	if raw[0] != errorSelector[0] || raw[1] != errorSelector[1] || raw[2] != errorSelector[2] || raw[3] != errorSelector[3] {
		return "", false
	}
	unpacked, err := revertStringArgs.Unpack(raw[4:])
	if err != nil || len(unpacked) != 1 {
		return "", false
	}
	reason, ok := unpacked[0].(string)
	return reason, ok
}
