// Package message implements the wire envelope: structural validation
// of incoming messages and construction of outgoing ones. Every
// message, whatever its wire "type" tag, is the single Message struct;
// its Type says which fields are meaningful, and the rest stay zero.
package message

import (
	"encoding/json"
	"fmt"
)

// Broadcast is the reserved id meaning "addressed to all replicas" or
// "leader unknown" (spec.md §6).
const Broadcast = "FFFF"

// Type names the wire "type" field.
type Type string

const (
	TypeHello         Type = "hello"
	TypeGet           Type = "get"
	TypePut           Type = "put"
	TypeOK            Type = "ok"
	TypeFail          Type = "fail"
	TypeRedirect      Type = "redirect"
	TypeVote          Type = "vote"
	TypeVoteResponse  Type = "response"
	TypeAppendEntries Type = "append_entries"
	TypeAppendTrue    Type = "true"
	TypeAppendFalse   Type = "false"
)

// wireEntry mirrors logstore.Entry for the append_entries payload. It
// is declared locally so the message package does not import
// logstore, keeping the envelope independent of the log's internal
// representation.
type wireEntry struct {
	Term         int64  `json:"term"`
	Key          string `json:"key,omitempty"`
	Value        string `json:"value,omitempty"`
	OriginClient string `json:"origin_client,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
}

// envelope is the on-the-wire shape: every message carries src, dst,
// leader and type, plus whichever type-specific fields apply. This is
// the "self-describing key/value format" of spec.md §6.
type envelope struct {
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Leader string `json:"leader"`
	Type   Type   `json:"type"`

	MID   string `json:"MID,omitempty"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`

	Term         int64       `json:"term,omitempty"`
	LastLogIndex int64       `json:"lastLogIndex,omitempty"`
	LastLogTerm  int64       `json:"lastLogTerm,omitempty"`
	VoteGranted  bool        `json:"voteGranted,omitempty"`
	PrevLogIndex int64       `json:"prevLogIndex,omitempty"`
	PrevLogTerm  int64       `json:"prevLogTerm,omitempty"`
	Entries      []wireEntry `json:"entries,omitempty"`
	LeaderCommit int64       `json:"leaderCommit,omitempty"`
	NextIndex    int64       `json:"nextIndex,omitempty"`
	HasNextIndex bool        `json:"hasNextIndex,omitempty"`
}

// Entry is the append_entries payload shape used outside this package.
type Entry struct {
	Term         int64
	Key          string
	Value        string
	OriginClient string
	RequestID    string
}

// Message is the decoded, typed form the core consumes and produces.
// Only the fields that a Type carries are meaningful for it (named
// per the table in spec.md §6); the others are left zero.
type Message struct {
	Src    string
	Dst    string
	Leader string
	Type   Type

	MID   string
	Key   string
	Value string

	Term         int64
	LastLogIndex int64
	LastLogTerm  int64
	VoteGranted  bool
	PrevLogIndex int64
	PrevLogTerm  int64
	Entries      []Entry
	LeaderCommit int64

	// NextIndex is meaningful on TypeAppendTrue always, and on
	// TypeAppendFalse only when HasNextIndex is true (the false reply
	// MAY omit it, per spec.md §6).
	NextIndex    int64
	HasNextIndex bool
}

// Encode serializes a Message to its wire form.
func Encode(m Message) ([]byte, error) {
	e := envelope{
		Src:          m.Src,
		Dst:          m.Dst,
		Leader:       m.Leader,
		Type:         m.Type,
		MID:          m.MID,
		Key:          m.Key,
		Value:        m.Value,
		Term:         m.Term,
		LastLogIndex: m.LastLogIndex,
		LastLogTerm:  m.LastLogTerm,
		VoteGranted:  m.VoteGranted,
		PrevLogIndex: m.PrevLogIndex,
		PrevLogTerm:  m.PrevLogTerm,
		LeaderCommit: m.LeaderCommit,
		NextIndex:    m.NextIndex,
		HasNextIndex: m.HasNextIndex,
	}
	if len(m.Entries) > 0 {
		e.Entries = make([]wireEntry, len(m.Entries))
		for i, en := range m.Entries {
			e.Entries[i] = wireEntry{
				Term:         en.Term,
				Key:          en.Key,
				Value:        en.Value,
				OriginClient: en.OriginClient,
				RequestID:    en.RequestID,
			}
		}
	}
	return json.Marshal(e)
}

// Decode parses and structurally validates a wire message. It returns
// an error for malformed JSON, a missing src/dst/type, an unknown
// type, a get or put without MID or key, and an ok/fail/redirect
// without MID. Other fields (a put's value, the numeric fields of peer
// messages) are not checked for presence; absent ones decode as zero.
func Decode(raw []byte) (Message, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Message{}, fmt.Errorf("message: malformed envelope: %w", err)
	}
	if e.Src == "" || e.Dst == "" || e.Type == "" {
		return Message{}, fmt.Errorf("message: missing src/dst/type")
	}

	m := Message{
		Src:          e.Src,
		Dst:          e.Dst,
		Leader:       e.Leader,
		Type:         e.Type,
		MID:          e.MID,
		Key:          e.Key,
		Value:        e.Value,
		Term:         e.Term,
		LastLogIndex: e.LastLogIndex,
		LastLogTerm:  e.LastLogTerm,
		VoteGranted:  e.VoteGranted,
		PrevLogIndex: e.PrevLogIndex,
		PrevLogTerm:  e.PrevLogTerm,
		LeaderCommit: e.LeaderCommit,
		NextIndex:    e.NextIndex,
		HasNextIndex: e.HasNextIndex,
	}
	if len(e.Entries) > 0 {
		m.Entries = make([]Entry, len(e.Entries))
		for i, en := range e.Entries {
			m.Entries[i] = Entry{
				Term:         en.Term,
				Key:          en.Key,
				Value:        en.Value,
				OriginClient: en.OriginClient,
				RequestID:    en.RequestID,
			}
		}
	}

	switch e.Type {
	case TypeGet:
		if e.MID == "" || e.Key == "" {
			return Message{}, fmt.Errorf("message: get requires MID and key")
		}
	case TypePut:
		if e.MID == "" || e.Key == "" {
			return Message{}, fmt.Errorf("message: put requires MID and key")
		}
	case TypeOK, TypeFail, TypeRedirect:
		if e.MID == "" {
			return Message{}, fmt.Errorf("message: %s requires MID", e.Type)
		}
	case TypeVote:
		// term, lastLogIndex, lastLogTerm: zero values are legal, no
		// presence check needed beyond the envelope.
	case TypeVoteResponse:
	case TypeAppendEntries:
	case TypeAppendTrue:
		m.HasNextIndex = true
	case TypeAppendFalse:
	case TypeHello:
	default:
		return Message{}, fmt.Errorf("message: unknown type %q", e.Type)
	}
	return m, nil
}
