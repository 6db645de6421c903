package journal

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	dir := t.TempDir()
	j, err := Open(dir)
	require.NoError(t, err)
	return j, dir
}

func TestJournalLifecycle(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	require.NoError(t, j.Append(1, []byte(`{"breed":"Golden"}`)))
	require.NoError(t, j.Append(2, []byte(`{"breed":"Poodle"}`)))

	var pending []uint64
	require.NoError(t, j.ScanByState(StateNew, func(r Record) error {
		pending = append(pending, r.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2}, pending)

	require.NoError(t, j.UpdateState(1, StateAcked, 1))
	rec, err := j.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StateAcked, rec.State)
	assert.Equal(t, uint32(1), rec.Retries)
	assert.NotZero(t, rec.LastAttempt)
	assert.Equal(t, `{"breed":"Golden"}`, string(rec.Payload))

	require.NoError(t, j.Delete(1))
	_, err = j.Get(1)
	assert.True(t, errors.Is(err, pebble.ErrNotFound))
}

func TestJournalLastSeqSurvivesReopen(t *testing.T) {
	j, dir := openTemp(t)

	last, err := j.LastSeq()
	require.NoError(t, err)
	assert.Zero(t, last)

	for seq := uint64(1); seq <= 12; seq++ {
		require.NoError(t, j.Append(seq, nil))
	}
	require.NoError(t, j.Close())

	j, err = Open(dir)
	require.NoError(t, err)
	defer j.Close()

	last, err = j.LastSeq()
	require.NoError(t, err)
	assert.Equal(t, uint64(12), last)
}

func TestDecodeRejectsShortRecord(t *testing.T) {
	_, err := decodeRecord(1, []byte{0, 1})
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, "SENT", StateSent.String())
}
