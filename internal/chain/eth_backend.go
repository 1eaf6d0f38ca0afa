package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/MoonChainX/atlas-cipher/internal/contracts"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// EthBackend submits AtlasCipher transactions over JSON-RPC and reports their
// receipts. It also acts as the wallet provider for the keyed account.
type EthBackend struct {
	client    *ethclient.Client
	contract  *bind.BoundContract
	abi       abi.ABI
	address   common.Address
	chainID   *big.Int
	transacts *bind.TransactOpts

	supportedChainID int64

	mu        sync.Mutex
	connected bool
}

type EthBackendConfig struct {
	RPCURL          string
	PrivateKeyHex   string
	ContractAddress string
	// SupportedChainID gates the workflow: a node on any other chain reports
	// an unsupported ChainInfo. Zero accepts whatever the node reports.
	SupportedChainID int64
}

func NewEthBackend(ctx context.Context, cfg EthBackendConfig) (*EthBackend, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.ContractAddress == "" {
		return nil, fmt.Errorf("contract address is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address: %s", cfg.ContractAddress)
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for submitting settlements")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(contracts.AtlasCipherABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	bound := bind.NewBoundContract(address, parsedABI, cli, cli, cli)

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	return &EthBackend{
		client:           cli,
		contract:         bound,
		abi:              parsedABI,
		address:          address,
		chainID:          chainID,
		transacts:        txOpts,
		supportedChainID: cfg.SupportedChainID,
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Connect marks the keyed account as the active wallet.
func (b *EthBackend) Connect(_ context.Context) (Wallet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return &ethWallet{backend: b}, nil
}

func (b *EthBackend) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

type ethWallet struct {
	backend *EthBackend
}

func (w *ethWallet) CurrentAccount() (common.Address, bool) {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	if !w.backend.connected {
		return common.Address{}, false
	}
	return w.backend.transacts.From, true
}

func (w *ethWallet) CurrentChain() ChainInfo {
	id := w.backend.chainID.Int64()
	return ChainInfo{
		ID:        id,
		Supported: w.backend.supportedChainID == 0 || w.backend.supportedChainID == id,
	}
}

func (b *EthBackend) CreateTransaction(ctx context.Context, call CreateCall) (common.Hash, error) {
	value := call.Value
	if value == nil {
		value = big.NewInt(0)
	}

	opts := *b.transacts
	opts.Context = ctx
	opts.Value = value

	tx, err := b.contract.Transact(&opts, "createTransaction",
		call.Recipient, call.Amount, call.Fee, call.Memo, call.InputProof)
	if err != nil {
		return common.Hash{}, &CallError{Cause: err}
	}
	return tx.Hash(), nil
}

func (b *EthBackend) SettleTransaction(ctx context.Context, call SettleCall) (common.Hash, error) {
	if call.TransactionID == nil {
		return common.Hash{}, &CallError{Cause: fmt.Errorf("missing transaction id")}
	}

	opts := *b.transacts
	opts.Context = ctx

	tx, err := b.contract.Transact(&opts, "settleTransaction",
		call.TransactionID, call.SettlementProof, call.ProofData)
	if err != nil {
		return common.Hash{}, &CallError{Cause: err}
	}
	return tx.Hash(), nil
}

// TransactionStatus maps a receipt lookup onto the pipeline's status space.
// An unmined transaction reports pending, not an error.
func (b *EthBackend) TransactionStatus(ctx context.Context, handle common.Hash) (ReceiptStatus, error) {
	receipt, err := b.client.TransactionReceipt(ctx, handle)
	if receipt != nil {
		if receipt.Status == 1 {
			return ReceiptConfirmed, nil
		}
		return ReceiptFailed, nil
	}
	if err != nil && err.Error() != "not found" {
		return ReceiptPending, err
	}
	return ReceiptPending, nil
}

// Ping verifies the RPC connection is alive.
func (b *EthBackend) Ping(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("rpc client not configured")
	}
	_, err := b.client.BlockNumber(ctx)
	return err
}
