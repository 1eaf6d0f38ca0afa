package settlement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/MoonChainX/atlas-cipher/internal/chain"
	"github.com/MoonChainX/atlas-cipher/internal/history"

	"github.com/google/uuid"
)

// Step is the user-visible position in the settlement flow.
type Step int

const (
	StepConnectWallet Step = iota + 1
	StepEnterDetails
	StepConfirm
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepConnectWallet:
		return "connect-wallet"
	case StepEnterDetails:
		return "enter-details"
	case StepConfirm:
		return "confirm"
	case StepComplete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Workflow is the settlement state machine. One instance owns one session:
// the request being edited, the wallet handle, and at most one non-terminal
// record at a time. Steps only move forward, except for the explicit Back,
// Disconnect, and NewSettlement actions.
//
// Navigating Back while a submission is in flight does not cancel it: the
// record keeps resolving in the background, a later confirmation still routes
// the session to the complete step, and a later failure re-arms the confirm
// trigger.
type Workflow struct {
	provider  chain.WalletProvider
	submitter *Submitter
	tracker   *Tracker
	records   history.Store
	log       *slog.Logger

	mu       sync.Mutex
	step     Step
	request  *Request
	wallet   chain.Wallet
	record   *TransactionRecord
	err      error
	resolved chan struct{}
}

func NewWorkflow(provider chain.WalletProvider, submitter *Submitter, tracker *Tracker, records history.Store, log *slog.Logger) *Workflow {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workflow{
		provider:  provider,
		submitter: submitter,
		tracker:   tracker,
		records:   records,
		log:       log,
		step:      StepConnectWallet,
		request:   NewRequest(),
	}
}

func (w *Workflow) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Err reports the last surfaced pipeline error, cleared by NewSettlement and
// by a successful resubmission.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Request returns the request under edit. Mutate it only through SetDetails.
func (w *Workflow) Request() *Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.request
}

// SetDetails edits the request fields while the details or confirm step is
// active.
func (w *Workflow) SetDetails(edit func(*Request)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	edit(w.request)
}

// RecordSnapshot projects the current record, if any.
func (w *Workflow) RecordSnapshot() (RecordSnapshot, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.record == nil {
		return RecordSnapshot{}, false
	}
	return w.record.Snapshot(), true
}

// Connect obtains a wallet and advances to the details step. A wallet on an
// unsupported network blocks the transition.
func (w *Workflow) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepConnectWallet {
		return nil
	}

	wallet, err := w.provider.Connect(ctx)
	if err != nil {
		w.err = err
		return err
	}
	if !wallet.CurrentChain().Supported {
		w.err = fmt.Errorf("%w: chain %d", ErrUnsupportedChain, wallet.CurrentChain().ID)
		return w.err
	}

	w.wallet = wallet
	w.err = nil
	w.step = StepEnterDetails
	w.log.Info("wallet connected", "chain", wallet.CurrentChain().ID)
	return nil
}

// Disconnect drops the wallet and returns to the connect step.
func (w *Workflow) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.provider.Disconnect()
	w.wallet = nil
	w.step = StepConnectWallet
}

// Continue advances from details to confirmation when the request passes the
// validation gate. Gate failures never create a record.
func (w *Workflow) Continue() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepEnterDetails {
		return fmt.Errorf("%w: continue from %s", ErrInvalidInput, w.step)
	}
	if !w.request.CanAdvanceFromDetails() {
		return ErrInvalidInput
	}
	w.step = StepConfirm
	return nil
}

// Back returns from confirmation to the details step for editing. An
// in-flight submission is deliberately left running.
func (w *Workflow) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepConfirm {
		return fmt.Errorf("%w: back from %s", ErrInvalidInput, w.step)
	}
	w.step = StepEnterDetails
	return nil
}

// ConfirmAndSend submits the create call for the current request and begins
// watching its confirmation. While the resulting record is submitting or
// pending the trigger is disabled, so a request can never have two unresolved
// submissions.
func (w *Workflow) ConfirmAndSend(ctx context.Context) error {
	w.mu.Lock()
	if w.step != StepConfirm {
		w.mu.Unlock()
		return fmt.Errorf("%w: confirm from %s", ErrInvalidInput, w.step)
	}
	if w.record != nil && !w.record.Snapshot().Status.Terminal() {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	wallet := w.wallet
	request := w.request
	w.mu.Unlock()

	record, err := w.submitter.SubmitCreate(ctx, request, wallet)
	if err != nil {
		w.mu.Lock()
		w.record = record // nil on precondition failure
		w.err = err
		w.mu.Unlock()
		return err
	}

	w.adopt(record)
	return nil
}

// Settle submits the settle call for an already created transaction id and
// tracks it the same way as a create submission.
func (w *Workflow) Settle(ctx context.Context, transactionID *big.Int) error {
	w.mu.Lock()
	if w.record != nil && !w.record.Snapshot().Status.Terminal() {
		w.mu.Unlock()
		return ErrSubmissionInFlight
	}
	wallet := w.wallet
	w.mu.Unlock()

	record, err := w.submitter.SubmitSettle(ctx, transactionID, wallet)
	if err != nil {
		w.mu.Lock()
		w.record = record
		w.err = err
		w.mu.Unlock()
		return err
	}

	w.adopt(record)
	return nil
}

// adopt installs a pending record and starts its confirmation watch.
func (w *Workflow) adopt(record *TransactionRecord) {
	snapshot := record.Snapshot()

	w.mu.Lock()
	w.record = record
	w.err = nil
	w.resolved = make(chan struct{})
	done := w.resolved
	w.mu.Unlock()

	w.submitter.metrics.addInFlight(1)

	go func() {
		defer close(done)
		defer w.submitter.metrics.addInFlight(-1)

		var last chain.ReceiptStatus
		for status := range w.tracker.Watch(context.Background(), snapshot.Handle) {
			last = status
		}
		w.resolve(record, last)
	}()
}

// resolve routes a terminal receipt status into the workflow.
func (w *Workflow) resolve(record *TransactionRecord, status chain.ReceiptStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if status == chain.ReceiptConfirmed {
		record.setStatus(StatusConfirmed, nil)
		w.submitter.metrics.incConfirmation("confirmed")
		if w.record == record {
			w.step = StepComplete
			if record.Snapshot().Kind == KindCreate {
				w.appendHistory(record)
			}
			w.log.Info("settlement confirmed", "handle", record.Snapshot().Handle.Hex())
		}
		return
	}

	record.setStatus(StatusFailed, ErrConfirmationFailed)
	w.submitter.metrics.incConfirmation("failed")
	if w.record == record {
		w.err = ErrConfirmationFailed
		w.log.Warn("settlement failed", "handle", record.Snapshot().Handle.Hex())
	}
}

func (w *Workflow) appendHistory(record *TransactionRecord) {
	if w.records == nil {
		return
	}
	snapshot := record.Snapshot()
	w.records.Append(history.Entry{
		ID:               uuid.New(),
		RecipientName:    w.request.RecipientName,
		RecipientAddress: w.request.RecipientAddress,
		Amount:           w.request.Amount,
		Currency:         string(w.request.Currency),
		Total:            w.request.TotalAmount(),
		TxHash:           snapshot.Handle.Hex(),
		Status:           snapshot.Status.String(),
		CreatedAt:        time.Now().UTC(),
	})
}

// History lists the settlements completed in this session.
func (w *Workflow) History() []history.Entry {
	if w.records == nil {
		return nil
	}
	return w.records.List()
}

// WaitForOutcome blocks until the in-flight record resolves. It returns
// immediately when nothing is in flight.
func (w *Workflow) WaitForOutcome(ctx context.Context) error {
	w.mu.Lock()
	done := w.resolved
	w.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewSettlement starts a fresh session: the request is reset and all records
// and surfaced errors are cleared.
func (w *Workflow) NewSettlement() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = StepConnectWallet
	w.request = NewRequest()
	w.record = nil
	w.resolved = nil
	w.err = nil
	w.wallet = nil
}
