package fillstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndGet(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(1, []byte(`{"fillId":1}`)))

	rec, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.Seq)
	assert.Equal(t, StateNew, rec.State)
	assert.Zero(t, rec.Retries)
	assert.Equal(t, []byte(`{"fillId":1}`), rec.Payload)
}

func TestStateTransitions(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(7, []byte("payload")))

	require.NoError(t, s.MarkSent(7))
	rec, err := s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, StateSent, rec.State)
	assert.NotZero(t, rec.LastAttempt)

	require.NoError(t, s.MarkAcked(7))
	rec, err = s.Get(7)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
	assert.Equal(t, []byte("payload"), rec.Payload, "payload survives transitions")
}

func TestMarkFailedCountsRetries(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(3, nil))

	require.NoError(t, s.MarkFailed(3))
	require.NoError(t, s.MarkFailed(3))

	rec, err := s.Get(3)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, rec.State)
	assert.Equal(t, uint32(2), rec.Retries)
}

func TestScanByState(t *testing.T) {
	s := openTestStore(t)
	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, s.Append(seq, []byte{byte(seq)}))
	}
	require.NoError(t, s.MarkAcked(2))
	require.NoError(t, s.MarkAcked(4))

	var seen []uint64
	require.NoError(t, s.ScanByState(StateNew, func(rec Record) error {
		seen = append(seen, rec.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 3, 5}, seen, "scan visits NEW records in sequence order")
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Append(9, nil))
	require.NoError(t, s.Delete(9))
	_, err := s.Get(9)
	assert.Error(t, err)
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(1, []byte("durable")))
	require.NoError(t, s.MarkSent(1))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateSent, rec.State)
	assert.Equal(t, []byte("durable"), rec.Payload)
}
