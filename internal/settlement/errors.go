package settlement

import (
	"errors"
	"fmt"

	"github.com/MoonChainX/atlas-cipher/internal/chain"
)

var (
	// ErrNotConnected is returned when an operation needs a signing account
	// and none is connected.
	ErrNotConnected = chain.ErrNotConnected
	// ErrUnsupportedChain blocks all progress while the wallet sits on a
	// network the contract is not deployed to.
	ErrUnsupportedChain = errors.New("settlement: unsupported chain")
	// ErrInvalidInput means the request failed the details validation gate.
	// It is resolved inline and never reaches the submitter.
	ErrInvalidInput = errors.New("settlement: invalid settlement details")
	// ErrSubmissionInFlight means a record is still submitting or pending;
	// the confirm trigger is disabled until it resolves.
	ErrSubmissionInFlight = errors.New("settlement: submission already in flight")
	// ErrConfirmationFailed means the receipt for a submitted call resolved
	// to failure. The record is terminal; resubmitting creates a new one.
	ErrConfirmationFailed = errors.New("settlement: confirmation failed")
)

// SubmissionError wraps a contract-call failure. The owning record has
// already transitioned to StatusFailed when this is returned.
type SubmissionError struct {
	Cause error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("settlement: submission failed: %v", e.Cause)
}

func (e *SubmissionError) Unwrap() error { return e.Cause }
