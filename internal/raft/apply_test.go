package raft

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bbengfort/raftkv/internal/logstore"
	"github.com/bbengfort/raftkv/internal/message"
)

func TestApplyCommittedWritesToStateMachine(t *testing.T) {
	r, _, _ := newTestReplica("A", nil)
	ctx := context.Background()
	r.log.Append(logstoreEntry(1, "x", "1"))
	r.commitIndex = 1

	r.applyCommitted(ctx)

	assert.EqualValues(t, 1, r.lastApplied)
	assert.Equal(t, "1", r.kv.Get("x"))
}

func TestApplyCommittedNotifiesOriginatingClientWhenLeader(t *testing.T) {
	r, tr, _ := newTestReplica("A", nil)
	ctx := context.Background()
	r.role = Leader
	r.log.Append(logstore.Entry{Term: 1, Key: "x", Value: "1", OriginClient: "client-1", RequestID: "42"})
	r.commitIndex = 1

	r.applyCommitted(ctx)

	last := tr.last()
	assert.Equal(t, message.TypeOK, last.Type)
	assert.Equal(t, "client-1", last.Dst)
	assert.Equal(t, "42", last.MID)
}

func TestApplyCommittedDoesNotNotifyWhenNotLeader(t *testing.T) {
	r, tr, _ := newTestReplica("A", nil)
	ctx := context.Background()
	r.log.Append(logstore.Entry{Term: 1, Key: "x", Value: "1", OriginClient: "client-1", RequestID: "42"})
	r.commitIndex = 1

	r.applyCommitted(ctx)

	assert.Empty(t, tr.Sent())
}
