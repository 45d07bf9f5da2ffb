package commlog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Kind classifies a communication record.
type Kind string

const (
	KindChat      Kind = "chat"
	KindTask      Kind = "task"
	KindSystem    Kind = "system"
	KindDecision  Kind = "decision"
	KindThought   Kind = "thought"
	KindPhase     Kind = "phase"
	KindUserInput Kind = "user_input"
)

// ChannelInternal is the company-wide broadcast channel.
const ChannelInternal = "#internal"

// Record is one immutable entry of a project's communication log.
// Hash binds the record to its predecessor: sha256(prevHash || canonical payload).
type Record struct {
	Seq      uint64 `json:"seq"`
	From     string `json:"from"`
	To       string `json:"to"` // agent id or a #channel
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	SimHours int64  `json:"sim_hours"`
	TSMillis int64  `json:"ts"`
	ThreadID string `json:"thread_id"`
	Hash     string `json:"hash"`
}

// payload is the canonical hashed form of a Record: every field except Hash,
// in fixed declaration order. Changing this layout breaks existing chains.
type payload struct {
	Seq      uint64 `json:"seq"`
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	SimHours int64  `json:"sim_hours"`
	TSMillis int64  `json:"ts"`
	ThreadID string `json:"thread_id"`
}

// CanonicalPayload returns the canonical JSON bytes covered by the record hash.
func (r Record) CanonicalPayload() []byte {
	b, err := json.Marshal(payload{
		Seq:      r.Seq,
		From:     r.From,
		To:       r.To,
		Kind:     r.Kind,
		Text:     r.Text,
		SimHours: r.SimHours,
		TSMillis: r.TSMillis,
		ThreadID: r.ThreadID,
	})
	if err != nil {
		// Marshal of a plain struct cannot fail; keep the signature simple.
		return nil
	}
	return b
}

// HashRecord computes the chain hash for a record given its predecessor's hash.
func HashRecord(prevHash string, r Record) string {
	h := sha256.New()
	h.Write([]byte(prevHash))
	h.Write(r.CanonicalPayload())
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GenesisHash is the fixed predecessor hash of every chain's first record.
var GenesisHash = sha256Hex([]byte("versaas.commlog.genesis.v1"))
