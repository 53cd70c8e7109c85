// Package messaging implements the typed request/response envelope (C1)
// exchanged between clients, the balancer, and translation servers: the
// wire message shapes from spec.md §6, and the full-duplex typed channel
// built on top of github.com/gorilla/websocket that client, balancer, and
// server all share.
package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
)

// ProtocolVersion is the envelope's wire protocol version. Bumping it is a
// breaking change; receivers reject anything they don't recognise with
// ErrProtocolMismatch.
const ProtocolVersion = 1

// MsgType is the message-type tag carried by every envelope.
type MsgType int

const (
	MsgUndefined MsgType = iota
	MsgSuppLangReq
	MsgSuppLangResp
	MsgTransJobReq
	MsgTransJobResp
	MsgPreProcReq
	MsgPreProcResp
	MsgPostProcReq
	MsgPostProcResp
	MsgSessionCancel
)

func (t MsgType) String() string {
	switch t {
	case MsgSuppLangReq:
		return "supp_lang_req"
	case MsgSuppLangResp:
		return "supp_lang_resp"
	case MsgTransJobReq:
		return "trans_job_req"
	case MsgTransJobResp:
		return "trans_job_resp"
	case MsgPreProcReq:
		return "pre_proc_req"
	case MsgPreProcResp:
		return "pre_proc_resp"
	case MsgPostProcReq:
		return "post_proc_req"
	case MsgPostProcResp:
		return "post_proc_resp"
	case MsgSessionCancel:
		return "session_cancel"
	default:
		return "undefined"
	}
}

// StatusCode is the outcome of a request as reported in a response envelope.
type StatusCode int

const (
	StatusUndefined StatusCode = iota
	StatusOK
	StatusPartial
	StatusResultError
	StatusCanceled
)

func (s StatusCode) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusResultError:
		return "result_error"
	case StatusCanceled:
		return "canceled"
	default:
		return "undefined"
	}
}

// Envelope is the common header carried by every message on the wire.
type Envelope struct {
	ProtVer int     `json:"prot_ver"`
	MsgType MsgType `json:"msg_type"`
}

// ResponseEnvelope additionally carries the status fields every response
// message type includes.
type ResponseEnvelope struct {
	Envelope
	StatCode StatusCode `json:"stat_code"`
	StatMsg  string     `json:"stat_msg"`
}

// SentenceStatus is the per-sentence outcome inside a translation response.
type SentenceStatus struct {
	TransText string     `json:"trans_text"`
	StatCode  StatusCode `json:"stat_code"`
	StatMsg   string     `json:"stat_msg,omitempty"`
	// StackLoad is present only when the originating request had
	// is_trans_info = true (spec.md invariant: absent otherwise).
	StackLoad []int `json:"stack_load,omitempty"`
}

// TransJobReq is the trans_job_req message. SessionID is only meaningful
// on the balancer->translator-server hop: the balancer stamps it in just
// before forwarding (job.go's sendRequest) so the translator server can key
// its own job registry by (session_id, job_id), per spec.md §4.6. A
// client's own trans_job_req never sets it.
type TransJobReq struct {
	Envelope
	JobID       ids.JobID      `json:"job_id"`
	SessionID   ids.SessionID  `json:"session_id,omitempty"`
	SourceLang  string         `json:"source_lang"`
	TargetLang  string         `json:"target_lang"`
	IsTransInfo bool           `json:"is_trans_info"`
	Priority    int            `json:"priority"`
	SourceSent  []string       `json:"source_sent"`
}

// NewTransJobReq builds a well-formed trans_job_req envelope.
func NewTransJobReq(jobID ids.JobID, sourceLang, targetLang string, isTransInfo bool, priority int, sentences []string) *TransJobReq {
	return &TransJobReq{
		Envelope:    Envelope{ProtVer: ProtocolVersion, MsgType: MsgTransJobReq},
		JobID:       jobID,
		SourceLang:  sourceLang,
		TargetLang:  targetLang,
		IsTransInfo: isTransInfo,
		Priority:    priority,
		SourceSent:  sentences,
	}
}

// SessionCancel is the session_cancel message: sent by the balancer to a
// translator server to cascade-cancel every outstanding job belonging to
// sessionID, mirroring the cancellation the balancer already applies to its
// own pending jobs for that session (spec.md §4.6, §5).
type SessionCancel struct {
	Envelope
	SessionID ids.SessionID `json:"session_id"`
}

// NewSessionCancel builds a well-formed session_cancel envelope.
func NewSessionCancel(sessionID ids.SessionID) *SessionCancel {
	return &SessionCancel{
		Envelope:  Envelope{ProtVer: ProtocolVersion, MsgType: MsgSessionCancel},
		SessionID: sessionID,
	}
}

// TransJobResp is the trans_job_resp message.
type TransJobResp struct {
	ResponseEnvelope
	JobID      ids.JobID        `json:"job_id"`
	TargetData []SentenceStatus `json:"target_data"`
}

// NewTransJobResp builds a trans_job_resp envelope with the given status.
func NewTransJobResp(jobID ids.JobID, status StatusCode, statMsg string, data []SentenceStatus) *TransJobResp {
	return &TransJobResp{
		ResponseEnvelope: ResponseEnvelope{
			Envelope: Envelope{ProtVer: ProtocolVersion, MsgType: MsgTransJobResp},
			StatCode: status,
			StatMsg:  statMsg,
		},
		JobID:      jobID,
		TargetData: data,
	}
}

// SuppLangReq is the supp_lang_req message; it carries no payload beyond
// the envelope.
type SuppLangReq struct {
	Envelope
}

// SuppLangResp is the supp_lang_resp message.
type SuppLangResp struct {
	ResponseEnvelope
	Langs map[string][]string `json:"langs"`
}

// ProcReq is the pre_proc_req / post_proc_req message shape (spec.md §6).
// The concrete MsgType (MsgPreProcReq or MsgPostProcReq) distinguishes the two.
type ProcReq struct {
	Envelope
	JobID     ids.JobID `json:"job_id"`
	Lang      string    `json:"lang"`
	ChunkIdx  int       `json:"chunk_idx"`
	NumChunks int       `json:"num_chunks"`
	Chunk     string    `json:"chunk"`
}

// ProcResp mirrors ProcReq with the processed chunk and a status.
type ProcResp struct {
	ResponseEnvelope
	JobID     ids.JobID `json:"job_id"`
	Lang      string    `json:"lang"`
	ChunkIdx  int       `json:"chunk_idx"`
	NumChunks int       `json:"num_chunks"`
	Chunk     string    `json:"chunk"`
}

// PeekMsgType decodes only the envelope header of a raw JSON message, so
// that a caller can dispatch to the right concrete type before fully
// unmarshalling. It fails with ErrProtocolMismatch for a foreign protocol
// version and with ErrUnknownMsgType for a msg_type outside the known set.
func PeekMsgType(raw []byte) (MsgType, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return MsgUndefined, fmt.Errorf("decoding envelope header: %w", err)
	}
	if env.ProtVer != ProtocolVersion {
		return MsgUndefined, fmt.Errorf("%w: got %d, want %d", ErrProtocolMismatch, env.ProtVer, ProtocolVersion)
	}
	if env.MsgType <= MsgUndefined || env.MsgType > MsgSessionCancel {
		return MsgUndefined, fmt.Errorf("%w: %d", ErrUnknownMsgType, env.MsgType)
	}
	return env.MsgType, nil
}
