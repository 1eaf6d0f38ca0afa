package chain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// FakeBackend emulates the wallet, contract-call, and receipt boundaries in
// memory. Handles are derived by hashing the call payload so repeated test
// runs are deterministic. Used by tests and by the demo binary when no
// private key is configured.
type FakeBackend struct {
	mu sync.Mutex

	connected bool
	account   common.Address
	chain     ChainInfo

	createCalls []CreateCall
	settleCalls []SettleCall

	rejectNext bool
	failNext   error

	// receipts scripts the status sequence returned for each handle. When a
	// handle has no script, the first poll reports pending and every poll
	// after that reports confirmed.
	receipts      map[common.Hash][]ReceiptStatus
	pendingScript []ReceiptStatus
	polls         map[common.Hash]int
	watchErr      error
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		account:  common.HexToAddress("0x742d35Cc6BF44a52e4F6E0E6fA2A5A5A5A5A5A5A"),
		chain:    ChainInfo{ID: 11155111, Supported: true},
		receipts: make(map[common.Hash][]ReceiptStatus),
		polls:    make(map[common.Hash]int),
	}
}

func (f *FakeBackend) Connect(_ context.Context) (Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return &fakeWallet{backend: f}, nil
}

func (f *FakeBackend) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

// SetChain overrides the reported network, e.g. to simulate a wrong-network
// wallet state.
func (f *FakeBackend) SetChain(info ChainInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chain = info
}

// RejectNextCall makes the next contract call fail as a declined signature.
func (f *FakeBackend) RejectNextCall() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejectNext = true
}

// FailNextCall makes the next contract call fail at the RPC layer.
func (f *FakeBackend) FailNextCall(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = cause
}

// ScriptReceipts fixes the status sequence a handle's polls walk through. The
// final status repeats once the script is exhausted.
func (f *FakeBackend) ScriptReceipts(handle common.Hash, statuses ...ReceiptStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[handle] = statuses
}

// ScriptNextSubmission fixes the receipt sequence for whichever handle the
// next contract call produces. Useful when the handle is not known up front.
func (f *FakeBackend) ScriptNextSubmission(statuses ...ReceiptStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pendingScript = statuses
}

// FailReceipts makes every receipt poll return a transport error.
func (f *FakeBackend) FailReceipts(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watchErr = cause
}

func (f *FakeBackend) CreateCalls() []CreateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]CreateCall, len(f.createCalls))
	copy(out, f.createCalls)
	return out
}

func (f *FakeBackend) SettleCalls() []SettleCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SettleCall, len(f.settleCalls))
	copy(out, f.settleCalls)
	return out
}

type fakeWallet struct {
	backend *FakeBackend
}

func (w *fakeWallet) CurrentAccount() (common.Address, bool) {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	if !w.backend.connected {
		return common.Address{}, false
	}
	return w.backend.account, true
}

func (w *fakeWallet) CurrentChain() ChainInfo {
	w.backend.mu.Lock()
	defer w.backend.mu.Unlock()
	return w.backend.chain
}

func (f *FakeBackend) CreateTransaction(_ context.Context, call CreateCall) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return common.Hash{}, err
	}
	f.createCalls = append(f.createCalls, call)
	handle := fakeHandle(fmt.Sprintf("create|%s|%x|%x|%s|%x",
		call.Recipient.Hex(), call.Amount, call.Fee, call.Memo, call.InputProof))
	f.adoptPendingScript(handle)
	return handle, nil
}

func (f *FakeBackend) SettleTransaction(_ context.Context, call SettleCall) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return common.Hash{}, err
	}
	f.settleCalls = append(f.settleCalls, call)
	handle := fakeHandle(fmt.Sprintf("settle|%s|%x|%x",
		call.TransactionID, call.SettlementProof, call.ProofData))
	f.adoptPendingScript(handle)
	return handle, nil
}

func (f *FakeBackend) adoptPendingScript(handle common.Hash) {
	if f.pendingScript != nil {
		f.receipts[handle] = f.pendingScript
		f.pendingScript = nil
		delete(f.polls, handle)
	}
}

func (f *FakeBackend) takeFailure() error {
	if f.rejectNext {
		f.rejectNext = false
		return ErrCallRejected
	}
	if f.failNext != nil {
		cause := f.failNext
		f.failNext = nil
		return &CallError{Cause: cause}
	}
	return nil
}

func (f *FakeBackend) TransactionStatus(_ context.Context, handle common.Hash) (ReceiptStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watchErr != nil {
		return ReceiptPending, f.watchErr
	}

	n := f.polls[handle]
	f.polls[handle] = n + 1

	script, ok := f.receipts[handle]
	if !ok {
		if n == 0 {
			return ReceiptPending, nil
		}
		return ReceiptConfirmed, nil
	}
	if len(script) == 0 {
		return ReceiptPending, nil
	}
	if n >= len(script) {
		return script[len(script)-1], nil
	}
	return script[n], nil
}

func fakeHandle(payload string) common.Hash {
	sum := sha256.Sum256([]byte(payload))
	return common.BytesToHash(sum[:])
}
