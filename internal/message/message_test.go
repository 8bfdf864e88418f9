package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := Message{
		Src: "A", Dst: "B", Leader: "A", Type: TypePut,
		MID: "7", Key: "x", Value: "1",
	}
	raw, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, m.Src, got.Src)
	assert.Equal(t, m.Dst, got.Dst)
	assert.Equal(t, m.Type, got.Type)
	assert.Equal(t, m.MID, got.MID)
	assert.Equal(t, m.Key, got.Key)
	assert.Equal(t, m.Value, got.Value)
}

func TestDecodeRejectsMissingRequiredFields(t *testing.T) {
	_, err := Decode([]byte(`{"src":"A","dst":"B","type":"put","key":"x"}`))
	assert.Error(t, err, "put without MID must be rejected")

	_, err = Decode([]byte(`{"src":"A","dst":"B","type":"get"}`))
	assert.Error(t, err, "get without MID and key must be rejected")
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"src":"A","dst":"B","type":"bogus"}`))
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestAppendEntriesRoundTripsEntries(t *testing.T) {
	m := Message{
		Src: "A", Dst: "B", Type: TypeAppendEntries,
		Term: 3, PrevLogIndex: 1, PrevLogTerm: 2, LeaderCommit: 1,
		Entries: []Entry{{Term: 3, Key: "k", Value: "v", OriginClient: "C", RequestID: "9"}},
	}
	raw, err := Encode(m)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, m.Entries[0], got.Entries[0])
}

func TestAppendTrueImpliesHasNextIndex(t *testing.T) {
	raw, err := Encode(Message{Src: "B", Dst: "A", Type: TypeAppendTrue, Term: 1, NextIndex: 4})
	require.NoError(t, err)
	got, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, got.HasNextIndex)
	assert.EqualValues(t, 4, got.NextIndex)
}
