package settlement

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/MoonChainX/atlas-cipher/internal/chain"
	"github.com/MoonChainX/atlas-cipher/internal/fhe"

	"github.com/ethereum/go-ethereum/common"
)

// Codec contexts for the fields of a create call. Identical plaintexts with
// different purposes must never encode to identical ciphertexts.
const (
	contextAmount          = "amount"
	contextFee             = "fee"
	contextSettlementProof = "settlement-proof"
	contextProofData       = "proof"
)

// Submitter issues the create and settle contract operations. It is the only
// component that mutates on-chain-facing state; every invocation issues at
// most one external call and owns exactly one record for it. It never
// retries: a caller that wants retry calls again and receives a new record.
type Submitter struct {
	caller  chain.ContractCaller
	codec   fhe.Codec
	metrics *Metrics
	log     *slog.Logger
	now     func() time.Time
}

func NewSubmitter(caller chain.ContractCaller, codec fhe.Codec, metrics *Metrics, log *slog.Logger) *Submitter {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Submitter{
		caller:  caller,
		codec:   codec,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// SubmitCreate encodes the request's confidential fields and issues one
// createTransaction call. A precondition failure performs no external call
// and creates no record.
func (s *Submitter) SubmitCreate(ctx context.Context, req *Request, wallet chain.Wallet) (*TransactionRecord, error) {
	if err := checkWallet(wallet); err != nil {
		return nil, err
	}

	amount := s.codec.Encode(req.Amount, contextAmount)
	fee := s.codec.Encode(req.FeeOrDefault(), contextFee)
	inputProof := s.codec.SubmissionProof(req.Amount, s.now())

	record := newRecord(KindCreate)
	record.setStatus(StatusSubmitting, nil)

	handle, err := s.caller.CreateTransaction(ctx, chain.CreateCall{
		Recipient:  common.HexToAddress(req.RecipientAddress),
		Amount:     amount.Ciphertext,
		Fee:        fee.Ciphertext,
		Memo:       req.Memo,
		InputProof: inputProof,
		Value:      big.NewInt(0),
	})
	return s.finish(record, handle, err)
}

// SubmitSettle issues one settleTransaction call for a previously created
// transaction id.
func (s *Submitter) SubmitSettle(ctx context.Context, transactionID *big.Int, wallet chain.Wallet) (*TransactionRecord, error) {
	if err := checkWallet(wallet); err != nil {
		return nil, err
	}
	if transactionID == nil {
		return nil, fmt.Errorf("%w: missing transaction id", ErrInvalidInput)
	}

	now := s.now()
	settlementProof := s.codec.Encode(
		fmt.Sprintf("settlement-%s-%d", transactionID, now.UnixMilli()), contextSettlementProof)
	proofData := s.codec.Encode(fmt.Sprintf("proof-%s", transactionID), contextProofData)

	record := newRecord(KindSettle)
	record.setID(transactionID)
	record.setStatus(StatusSubmitting, nil)

	handle, err := s.caller.SettleTransaction(ctx, chain.SettleCall{
		TransactionID:   transactionID,
		SettlementProof: settlementProof.Ciphertext,
		ProofData:       proofData.Ciphertext,
	})
	return s.finish(record, handle, err)
}

// finish lands the call outcome in the record. Every failure is represented
// in the record status; nothing propagates silently.
func (s *Submitter) finish(record *TransactionRecord, handle common.Hash, err error) (*TransactionRecord, error) {
	snapshot := record.Snapshot()
	if err != nil {
		if errors.Is(err, chain.ErrCallRejected) {
			record.setStatus(StatusFailed, err)
			s.metrics.incSubmission(snapshot.Kind, "rejected")
			s.log.Warn("contract call rejected by signer", "kind", snapshot.Kind.String())
			return record, err
		}
		wrapped := &SubmissionError{Cause: err}
		record.setStatus(StatusFailed, wrapped)
		s.metrics.incSubmission(snapshot.Kind, "failed")
		s.log.Error("contract call failed", "kind", snapshot.Kind.String(), "err", err)
		return record, wrapped
	}

	record.setHandle(handle)
	s.metrics.incSubmission(snapshot.Kind, "submitted")
	s.log.Info("contract call submitted",
		"kind", snapshot.Kind.String(), "handle", handle.Hex())
	return record, nil
}

func checkWallet(wallet chain.Wallet) error {
	if wallet == nil {
		return ErrNotConnected
	}
	if _, ok := wallet.CurrentAccount(); !ok {
		return ErrNotConnected
	}
	if !wallet.CurrentChain().Supported {
		return ErrUnsupportedChain
	}
	return nil
}
