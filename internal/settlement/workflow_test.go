package settlement

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/MoonChainX/atlas-cipher/internal/chain"
	"github.com/MoonChainX/atlas-cipher/internal/fhe"
	"github.com/MoonChainX/atlas-cipher/internal/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflow(backend *chain.FakeBackend) *Workflow {
	submitter := NewSubmitter(backend, fhe.FieldCodec{}, NewMetrics(), nil)
	tracker := NewTracker(backend, time.Millisecond)
	return NewWorkflow(backend, submitter, tracker, history.NewMemoryStore(), nil)
}

func enterTestDetails(w *Workflow) {
	w.SetDetails(func(r *Request) {
		r.RecipientAddress = "0x1111111111111111111111111111111111111111"
		r.RecipientName = "Recipient"
		r.Amount = "500"
		r.Fee = "5"
		r.Currency = CurrencyUSDT
	})
}

func TestWorkflowEndToEndConfirmed(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	assert.Equal(t, StepConnectWallet, workflow.Step())

	require.NoError(t, workflow.Connect(ctx))
	assert.Equal(t, StepEnterDetails, workflow.Step())

	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())
	assert.Equal(t, StepConfirm, workflow.Step())

	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))
	require.NoError(t, workflow.WaitForOutcome(ctx))

	assert.Equal(t, StepComplete, workflow.Step())
	require.NoError(t, workflow.Err())

	snapshot, ok := workflow.RecordSnapshot()
	require.True(t, ok)
	assert.Equal(t, StatusConfirmed, snapshot.Status)

	require.Len(t, backend.CreateCalls(), 1, "exactly one create call issued")
	assert.Equal(t, "505.000", workflow.Request().TotalAmount())

	entries := workflow.History()
	require.Len(t, entries, 1)
	assert.Equal(t, "505.000", entries[0].Total)
	assert.Equal(t, "confirmed", entries[0].Status)
	assert.Equal(t, snapshot.Handle.Hex(), entries[0].TxHash)
}

func TestWorkflowConfirmationFailureAllowsRetry(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptFailed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))
	require.NoError(t, workflow.WaitForOutcome(ctx))

	assert.Equal(t, StepConfirm, workflow.Step(), "a failed settlement stays on the confirm step")
	assert.ErrorIs(t, workflow.Err(), ErrConfirmationFailed)

	first, ok := workflow.RecordSnapshot()
	require.True(t, ok)
	assert.Equal(t, StatusFailed, first.Status)

	// Retry is permitted and creates an independent record.
	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))
	require.NoError(t, workflow.WaitForOutcome(ctx))

	assert.Equal(t, StepComplete, workflow.Step())
	require.NoError(t, workflow.Err())
	assert.Len(t, backend.CreateCalls(), 2)
}

func TestWorkflowNoDuplicateSubmission(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	submitter := NewSubmitter(backend, fhe.FieldCodec{}, NewMetrics(), nil)
	// Slow poll cadence holds the record in pending while we try to
	// double-submit.
	tracker := NewTracker(backend, 50*time.Millisecond)
	workflow := NewWorkflow(backend, submitter, tracker, history.NewMemoryStore(), nil)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptPending, chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))

	err := workflow.ConfirmAndSend(ctx)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Len(t, backend.CreateCalls(), 1, "second trigger must not create a second record")

	require.NoError(t, workflow.WaitForOutcome(ctx))
	assert.Equal(t, StepComplete, workflow.Step())
}

func TestWorkflowValidationGate(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))

	workflow.SetDetails(func(r *Request) {
		r.Amount = "500" // no recipient address
	})
	assert.ErrorIs(t, workflow.Continue(), ErrInvalidInput)
	assert.Equal(t, StepEnterDetails, workflow.Step())

	_, ok := workflow.RecordSnapshot()
	assert.False(t, ok, "validation errors never create a record")
	assert.Empty(t, backend.CreateCalls())
}

func TestWorkflowUnsupportedChainBlocksConnect(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	backend.SetChain(chain.ChainInfo{ID: 1, Supported: false})
	workflow := newTestWorkflow(backend)

	err := workflow.Connect(ctx)
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	assert.Equal(t, StepConnectWallet, workflow.Step())
}

func TestWorkflowCallRejectedIsRecoverable(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	backend.RejectNextCall()
	err := workflow.ConfirmAndSend(ctx)
	assert.ErrorIs(t, err, chain.ErrCallRejected)
	assert.Equal(t, StepConfirm, workflow.Step())

	// Request state untouched; the user can simply confirm again.
	assert.Equal(t, "505.000", workflow.Request().TotalAmount())
	backend.ScriptNextSubmission(chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))
	require.NoError(t, workflow.WaitForOutcome(ctx))
	assert.Equal(t, StepComplete, workflow.Step())
}

func TestWorkflowBackWhileInFlightAutoRoutes(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptPending, chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))

	// Back does not cancel the in-flight submission.
	require.NoError(t, workflow.Back())
	assert.Equal(t, StepEnterDetails, workflow.Step())

	require.NoError(t, workflow.WaitForOutcome(ctx))
	assert.Equal(t, StepComplete, workflow.Step(), "a confirmed record still routes to complete")
	assert.Len(t, workflow.History(), 1)
}

func TestWorkflowBackAndEditBeforeSubmitting(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())
	require.NoError(t, workflow.Back())

	workflow.SetDetails(func(r *Request) { r.Amount = "1000.00" })
	assert.Equal(t, "1001.000", workflow.Request().TotalAmount(), "derived totals recompute after edits")

	require.NoError(t, workflow.Continue())
	assert.Equal(t, StepConfirm, workflow.Step())
}

func TestWorkflowNewSettlementResets(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())
	backend.ScriptNextSubmission(chain.ReceiptConfirmed)
	require.NoError(t, workflow.ConfirmAndSend(ctx))
	require.NoError(t, workflow.WaitForOutcome(ctx))
	require.Equal(t, StepComplete, workflow.Step())

	workflow.NewSettlement()

	assert.Equal(t, StepConnectWallet, workflow.Step())
	assert.NoError(t, workflow.Err())
	_, ok := workflow.RecordSnapshot()
	assert.False(t, ok, "records cleared")
	assert.Empty(t, workflow.Request().Amount)

	// History survives the reset: it is session-scoped, not settlement-scoped.
	assert.Len(t, workflow.History(), 1)
}

func TestWorkflowSettleFlow(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))

	backend.ScriptNextSubmission(chain.ReceiptPending, chain.ReceiptConfirmed)
	require.NoError(t, workflow.Settle(ctx, big.NewInt(7)))
	require.NoError(t, workflow.WaitForOutcome(ctx))

	snapshot, ok := workflow.RecordSnapshot()
	require.True(t, ok)
	assert.Equal(t, KindSettle, snapshot.Kind)
	assert.Equal(t, StatusConfirmed, snapshot.Status)
	require.Len(t, backend.SettleCalls(), 1)
}

func TestWorkflowConfirmRequiresConnectedWallet(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	backend.Disconnect()
	err := workflow.ConfirmAndSend(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Empty(t, backend.CreateCalls())
	assert.Equal(t, StepConfirm, workflow.Step())
}

func TestWorkflowErrSurfacesSubmissionFailure(t *testing.T) {
	ctx := context.Background()
	backend := chain.NewFakeBackend()
	workflow := newTestWorkflow(backend)

	require.NoError(t, workflow.Connect(ctx))
	enterTestDetails(workflow)
	require.NoError(t, workflow.Continue())

	cause := errors.New("contract reverted")
	backend.FailNextCall(cause)

	err := workflow.ConfirmAndSend(ctx)
	var submissionErr *SubmissionError
	require.ErrorAs(t, err, &submissionErr)
	assert.ErrorIs(t, workflow.Err(), cause)

	snapshot, ok := workflow.RecordSnapshot()
	require.True(t, ok)
	assert.Equal(t, StatusFailed, snapshot.Status)
}
