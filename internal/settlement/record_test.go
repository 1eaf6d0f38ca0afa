package settlement

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestRecordLifecycle(t *testing.T) {
	record := newRecord(KindCreate)
	assert.Equal(t, StatusIdle, record.Snapshot().Status)

	record.setStatus(StatusSubmitting, nil)
	assert.Equal(t, StatusSubmitting, record.Snapshot().Status)

	handle := common.HexToHash("0x01")
	record.setHandle(handle)

	snapshot := record.Snapshot()
	assert.Equal(t, StatusPending, snapshot.Status)
	assert.True(t, snapshot.HasHandle)
	assert.Equal(t, handle, snapshot.Handle)
}

func TestRecordTerminalMonotonicity(t *testing.T) {
	confirmed := newRecord(KindCreate)
	confirmed.setStatus(StatusConfirmed, nil)
	confirmed.setStatus(StatusFailed, ErrConfirmationFailed)
	confirmed.setStatus(StatusPending, nil)
	confirmed.setHandle(common.HexToHash("0x02"))
	assert.Equal(t, StatusConfirmed, confirmed.Snapshot().Status)

	failed := newRecord(KindSettle)
	failed.setStatus(StatusFailed, ErrConfirmationFailed)
	failed.setStatus(StatusConfirmed, nil)
	assert.Equal(t, StatusFailed, failed.Snapshot().Status)
	assert.ErrorIs(t, failed.Snapshot().Err, ErrConfirmationFailed)
}
