package settlement

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Kind distinguishes the two contract operations a record can track.
type Kind int

const (
	KindCreate Kind = iota
	KindSettle
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindSettle:
		return "settle"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the lifecycle position of a record. StatusConfirmed and
// StatusFailed are terminal.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitting
	StatusPending
	StatusConfirmed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitting:
		return "submitting"
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// TransactionRecord tracks one submitted contract call. It is created and
// mutated only by the Submitter and the confirmation routing; everything else
// reads Snapshot.
type TransactionRecord struct {
	mu sync.Mutex

	kind   Kind
	status Status
	id     *big.Int
	handle common.Hash
	hasTx  bool
	err    error
}

func newRecord(kind Kind) *TransactionRecord {
	return &TransactionRecord{kind: kind, status: StatusIdle}
}

// setStatus applies a transition. Transitions out of a terminal status are
// ignored, which keeps confirmed and failed records immutable.
func (r *TransactionRecord) setStatus(next Status, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = next
	if err != nil {
		r.err = err
	}
}

func (r *TransactionRecord) setHandle(handle common.Hash) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.handle = handle
	r.hasTx = true
	r.status = StatusPending
}

func (r *TransactionRecord) setID(id *big.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.id = id
}

// RecordSnapshot is the read-only projection the workflow and UI consume.
type RecordSnapshot struct {
	Kind      Kind
	Status    Status
	ID        *big.Int
	Handle    common.Hash
	HasHandle bool
	Err       error
}

func (r *TransactionRecord) Snapshot() RecordSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	var id *big.Int
	if r.id != nil {
		id = new(big.Int).Set(r.id)
	}
	return RecordSnapshot{
		Kind:      r.kind,
		Status:    r.status,
		ID:        id,
		Handle:    r.handle,
		HasHandle: r.hasTx,
		Err:       r.err,
	}
}
