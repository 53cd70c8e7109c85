// Package balancer implements the balancer's per-job state machine (C8)
// and translator adapter registry (C7), grounded line-for-line on
// original_source/inc/balancer/balancer_job.hpp for the phase/state
// transitions, report_communication_error, send_request and send_reply.
//
// Go has no recursive mutex. Where the original re-enters m_g_lock
// (cancel/fail calling report_communication_error while already holding
// the lock), this port instead keeps report_communication_error, send_request
// and send_reply as plain, non-locking helpers that assume the caller
// already holds Job.mu, and has every exported method take that lock
// exactly once. The original's second lock, m_f_lock, stays a distinct
// mutex (finishMu) acquired only inside sendReply/SyncJobFinished, so the
// two-lock discipline survives without any single mutex ever being
// entered twice by the same goroutine.
package balancer

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
)

// Phase is the balancer job's position in its request/response/reply/done
// pipeline (spec.md §4.8): monotone, no back-edges.
type Phase int

const (
	PhaseUndefined Phase = iota
	PhaseRequest
	PhaseResponse
	PhaseReply
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseRequest:
		return "request"
	case PhaseResponse:
		return "response"
	case PhaseReply:
		return "reply"
	case PhaseDone:
		return "done"
	default:
		return "undefined"
	}
}

// State is the balancer job's active/cancelled/failed status: one-way,
// active can move to cancelled or failed but never back.
type State int

const (
	StateUndefined State = iota
	StateActive
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "undefined"
	}
}

// Adapter is what a balancer job needs from a connected translator server.
type Adapter interface {
	UID() ids.ServerUID
	Send(msg interface{}) error
}

// AdapterChooser selects the translator adapter that should handle req, or
// nil if none are available for its language pair.
type AdapterChooser func(req *messaging.TransJobReq) Adapter

// JobNotifier is called to register a job as awaiting a response, or to
// record that it received an error.
type JobNotifier func(j *Job)

// DoneJobNotifier is called exactly once, when a job reaches PhaseDone.
type DoneJobNotifier func(j *Job)

// ResponseSender delivers a response envelope to a client session; it
// reports false if the session is no longer reachable. Its signature
// matches session.Registry.SendResponse exactly, so a *session.Registry
// can be wired in directly with no adapter shim.
type ResponseSender func(sessionID ids.SessionID, resp interface{}) bool

// Job is one balancer-side translation job: client session, original and
// re-issued job ids, the request/response pair, and the phase/state
// machine driving it from submission to delivery.
type Job struct {
	sessionID   ids.SessionID
	jobID       ids.JobID // the id as given by the client
	balJobID    ids.JobID // the id re-issued by the balancer
	req         *messaging.TransJobReq
	resp        *messaging.TransJobResp

	chooseAdapter AdapterChooser
	registerWait  JobNotifier
	notifyErr     JobNotifier
	sendResponse  ResponseSender
	doneNotifier  DoneJobNotifier

	mu         sync.Mutex
	phase      Phase
	state      State
	errMsg     string
	adapterUID ids.ServerUID

	finishMu sync.Mutex
}

// NewJob creates a job in PhaseRequest/StateActive, the way the original's
// constructor does, under the balancer job id the caller allocated
// (Dispatcher.Submit takes it from its own ids.Manager).
func NewJob(sessionID ids.SessionID, req *messaging.TransJobReq, balJobID ids.JobID, chooseAdapter AdapterChooser, registerWait, notifyErr JobNotifier, sendResponse ResponseSender) *Job {
	return &Job{
		sessionID:     sessionID,
		jobID:         req.JobID,
		balJobID:      balJobID,
		req:           req,
		chooseAdapter: chooseAdapter,
		registerWait:  registerWait,
		notifyErr:     notifyErr,
		sendResponse:  sendResponse,
		phase:         PhaseRequest,
		state:         StateActive,
		adapterUID:    ids.UndefinedServerUID,
	}
}

// SessionID returns the client session this job belongs to.
func (j *Job) SessionID() ids.SessionID { return j.sessionID }

// JobID returns the client-issued job id.
func (j *Job) JobID() ids.JobID { return j.jobID }

// BalJobID returns the balancer-issued job id used in the request to the
// translator server.
func (j *Job) BalJobID() ids.JobID { return j.balJobID }

// ServerUID returns the adapter uid the request was sent through, or the
// undefined sentinel if no request has been attempted yet.
func (j *Job) ServerUID() ids.ServerUID {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.adapterUID
}

// DispatchedAdapter returns the adapter uid the request is currently
// outstanding through, and true, only while the job is in PhaseResponse —
// i.e. exactly when a session_cancel for this job's session should also be
// relayed to that adapter. Cancel changes only the job's state, never its
// phase, so a job awaiting the translator's reply stays in PhaseResponse
// and this reports the same adapter whether it runs before or after Cancel.
func (j *Job) DispatchedAdapter() (ids.ServerUID, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.phase == PhaseResponse {
		return j.adapterUID, true
	}
	return ids.UndefinedServerUID, false
}

// Phase returns the job's current phase.
func (j *Job) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// State returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// SetDoneNotifier registers the function called once the job's reply has
// been sent to the client.
func (j *Job) SetDoneNotifier(notifier DoneJobNotifier) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.doneNotifier = notifier
}

// SetTransResp stores the translator server's response and advances the
// job to PhaseReply.
func (j *Job) SetTransResp(resp *messaging.TransJobResp) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resp = resp
	j.phase = PhaseReply
}

// Cancel marks the job cancelled, e.g. because the client session
// disconnected. It has no effect once the job is already done.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.phase {
	case PhaseReply, PhaseRequest, PhaseResponse:
		j.state = StateCancelled
	default:
		slog.Debug("cancel called in wrong phase", "phase", j.phase, "bal_job_id", j.balJobID)
	}
}

// Fail marks the job failed, e.g. because the translator adapter handling
// it disconnected before replying.
func (j *Job) Fail() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.phase {
	case PhaseReply:
		// We already know what to send to the client.
	case PhaseResponse:
		if j.state == StateCancelled {
			j.reportCommunicationError(j.state, j.errMsg)
		} else {
			j.reportCommunicationError(StateFailed, "The translation server has dropped connection!")
		}
	default:
		slog.Debug("fail called in wrong phase", "phase", j.phase, "bal_job_id", j.balJobID)
	}
}

// reportCommunicationError assumes j.mu is already held by the caller: it
// advances straight to PhaseReply with the given state and error message,
// then tells the dispatcher about the error.
func (j *Job) reportCommunicationError(state State, errMsg string) {
	slog.Debug("balancer job communication error", "bal_job_id", j.balJobID, "error", errMsg)
	j.phase = PhaseReply
	j.state = state
	j.errMsg = errMsg
	if j.notifyErr != nil {
		j.notifyErr(j)
	}
}

// Execute performs the job's action for its current phase: sending the
// request to the translator in PhaseRequest, or sending the reply to the
// client in PhaseReply. A request that fails before ever reaching the
// translator (no adapter, send error, cancelled session) advances straight
// to PhaseReply within the same call, so the client is answered without
// waiting for a second Execute.
func (j *Job) Execute() {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.phase {
	case PhaseRequest:
		j.sendRequest()
		if j.phase == PhaseReply {
			j.sendReply()
		}
	case PhaseReply:
		j.sendReply()
	default:
		slog.Error("executing balancer job in unexpected phase", "phase", j.phase, "bal_job_id", j.balJobID)
	}
}

// sendRequest assumes j.mu is held. It chooses an adapter and forwards the
// request, or records a communication error if that isn't possible.
func (j *Job) sendRequest() {
	if j.registerWait != nil {
		j.registerWait(j)
	}

	switch j.state {
	case StateActive:
		adapter := j.chooseAdapter(j.req)
		if adapter == nil {
			j.reportCommunicationError(StateFailed, "There are no online servers to perform your translation request!")
			return
		}
		j.adapterUID = adapter.UID()
		j.req.JobID = j.balJobID
		j.req.SessionID = j.sessionID
		if err := adapter.Send(j.req); err != nil {
			j.reportCommunicationError(StateFailed, err.Error())
			return
		}
		j.phase = PhaseResponse
	case StateCancelled:
		j.reportCommunicationError(StateCancelled, "The client session was terminated, canceling the request!")
	default:
		j.reportCommunicationError(StateFailed, fmt.Sprintf("internal error while sending request, state: %v", j.state))
	}
}

// prepareErrorReply builds the error response returned to the client when
// the job failed before a translator response ever arrived, preserving
// the original's exact per-sentence status text.
func (j *Job) prepareErrorReply() *messaging.TransJobResp {
	data := make([]messaging.SentenceStatus, len(j.req.SourceSent))
	for i, sent := range j.req.SourceSent {
		data[i] = messaging.SentenceStatus{
			TransText: sent,
			StatCode:  messaging.StatusResultError,
			StatMsg:   "Failed to translate",
		}
	}
	return messaging.NewTransJobResp(j.jobID, messaging.StatusResultError, j.errMsg, data)
}

// sendReply assumes j.mu is held. It delivers the final response to the
// client, moves the job to PhaseDone, and notifies the dispatcher under
// the separate finish lock, mirroring the original's m_f_lock.
func (j *Job) sendReply() {
	switch j.state {
	case StateActive:
		if j.resp == nil {
			slog.Error("translation response is nil in active state", "bal_job_id", j.balJobID)
		} else {
			j.resp.JobID = j.jobID
			j.sendResponse(j.sessionID, j.resp)
		}
	case StateCancelled:
		slog.Debug("could not send job reply, client is disconnected", "bal_job_id", j.balJobID)
	case StateFailed:
		j.sendResponse(j.sessionID, j.prepareErrorReply())
	default:
		slog.Error("sending balancer job reply in unexpected state", "state", j.state, "bal_job_id", j.balJobID)
	}

	j.phase = PhaseDone

	j.finishMu.Lock()
	if j.doneNotifier != nil {
		j.doneNotifier(j)
	}
	j.finishMu.Unlock()
}

// SyncJobFinished blocks until any in-flight sendReply's done notification
// has completed, the way the original's synch_job_finished does via
// m_f_lock.
func (j *Job) SyncJobFinished() {
	j.finishMu.Lock()
	j.finishMu.Unlock()
}
