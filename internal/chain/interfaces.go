package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNotConnected means no account is available to sign with.
	ErrNotConnected = errors.New("chain: wallet not connected")
	// ErrCallRejected means the user declined to sign the call.
	ErrCallRejected = errors.New("chain: call rejected by signer")
)

// CallError wraps an RPC or contract-revert failure from the call layer.
type CallError struct {
	Cause error
}

func (e *CallError) Error() string { return fmt.Sprintf("chain: call failed: %v", e.Cause) }
func (e *CallError) Unwrap() error { return e.Cause }

// ChainInfo describes the network a wallet is currently attached to.
type ChainInfo struct {
	ID        int64
	Supported bool
}

// Wallet is a connected signing identity.
type Wallet interface {
	CurrentAccount() (common.Address, bool)
	CurrentChain() ChainInfo
}

// WalletProvider yields wallets and tears them down.
type WalletProvider interface {
	Connect(ctx context.Context) (Wallet, error)
	Disconnect()
}

// CreateCall carries the arguments of AtlasCipher.createTransaction.
type CreateCall struct {
	Recipient  common.Address
	Amount     []byte
	Fee        []byte
	Memo       string
	InputProof []byte
	Value      *big.Int
}

// SettleCall carries the arguments of AtlasCipher.settleTransaction.
type SettleCall struct {
	TransactionID   *big.Int
	SettlementProof []byte
	ProofData       []byte
}

// ContractCaller issues AtlasCipher contract calls and returns the submission
// handle (transaction hash) before the call is mined.
type ContractCaller interface {
	CreateTransaction(ctx context.Context, call CreateCall) (common.Hash, error)
	SettleTransaction(ctx context.Context, call SettleCall) (common.Hash, error)
}

// ReceiptStatus is the observed state of a submitted call.
type ReceiptStatus int

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptConfirmed
	ReceiptFailed
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptPending:
		return "pending"
	case ReceiptConfirmed:
		return "confirmed"
	case ReceiptFailed:
		return "failed"
	default:
		return fmt.Sprintf("receipt(%d)", int(s))
	}
}

// ReceiptSource reports the receipt state of a submission handle. It returns
// ReceiptPending with a nil error while the call is unmined.
type ReceiptSource interface {
	TransactionStatus(ctx context.Context, handle common.Hash) (ReceiptStatus, error)
}
