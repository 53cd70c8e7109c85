package balancer

import (
	"context"
	"sync"
	"time"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
)

// waitPollInterval is the poll period WaitAllDone uses instead of a
// condition variable, matching original_source's client_manager.hpp
// "condition waits on all-jobs-sent/all-jobs-done ... with a 1-second poll
// to avoid missed wakes".
const waitPollInterval = 1 * time.Second

// ResponseSink is the subset of session.Registry the dispatcher needs.
type ResponseSink interface {
	SendResponse(id ids.SessionID, msg interface{}) bool
}

// Dispatcher owns every in-flight balancer job, the adapter registry it
// picks translator servers from, and the id manager that issues balancer
// job ids, grounded on original_source's balancer_server_app wiring.
type Dispatcher struct {
	jobIDs    *ids.Manager
	adapters  *AdapterRegistry
	responses ResponseSink

	mu           sync.Mutex
	pending      map[ids.JobID]*Job   // keyed by balancer job id, awaiting response
	bySession    map[ids.SessionID]map[ids.JobID]*Job
}

// NewDispatcher creates a Dispatcher over the given adapter registry and
// response sink (normally a *session.Registry).
func NewDispatcher(adapters *AdapterRegistry, responses ResponseSink) *Dispatcher {
	return &Dispatcher{
		jobIDs:    ids.NewManager(),
		adapters:  adapters,
		responses: responses,
		pending:   make(map[ids.JobID]*Job),
		bySession: make(map[ids.SessionID]map[ids.JobID]*Job),
	}
}

// Submit creates and runs a new balancer job for req on behalf of
// sessionID, wiring the job's callbacks back into this dispatcher.
func (d *Dispatcher) Submit(sessionID ids.SessionID, req *messaging.TransJobReq) *Job {
	balJobID := ids.JobID(d.jobIDs.Next())

	job := NewJob(sessionID, req, balJobID, d.adapters.Choose, d.registerWait, d.notifyErr, d.sendResponse)
	job.SetDoneNotifier(d.markDone)

	d.mu.Lock()
	if d.bySession[sessionID] == nil {
		d.bySession[sessionID] = make(map[ids.JobID]*Job)
	}
	d.bySession[sessionID][balJobID] = job
	d.mu.Unlock()

	job.Execute()
	return job
}

// registerWait records that job is awaiting a translator response, so a
// later DeliverResponse or FailAdapter can find it by balancer job id.
func (d *Dispatcher) registerWait(job *Job) {
	d.mu.Lock()
	d.pending[job.BalJobID()] = job
	d.mu.Unlock()
}

// notifyErr is invoked whenever a job records a communication error. The
// error reply is sent by the code path that caused it (Execute itself for a
// request that never reached a translator server, FailAdapter's Execute
// after Fail), so there is nothing further to schedule here.
func (d *Dispatcher) notifyErr(job *Job) {}

// sendResponse forwards to the wired ResponseSink.
func (d *Dispatcher) sendResponse(sessionID ids.SessionID, resp interface{}) bool {
	return d.responses.SendResponse(sessionID, resp)
}

// markDone drops the job from both index maps once its reply has been
// sent.
func (d *Dispatcher) markDone(job *Job) {
	d.mu.Lock()
	delete(d.pending, job.BalJobID())
	if jobs, ok := d.bySession[job.SessionID()]; ok {
		delete(jobs, job.BalJobID())
		if len(jobs) == 0 {
			delete(d.bySession, job.SessionID())
		}
	}
	d.mu.Unlock()
}

// DeliverResponse hands a translator server's response to the matching
// pending job and runs it to completion.
func (d *Dispatcher) DeliverResponse(balJobID ids.JobID, resp *messaging.TransJobResp) bool {
	d.mu.Lock()
	job, ok := d.pending[balJobID]
	d.mu.Unlock()
	if !ok {
		return false
	}

	job.SetTransResp(resp)
	job.Execute()
	return true
}

// CancelSession cancels every job still in flight for sessionID, e.g.
// because its client connection dropped, and relays a session_cancel to
// every translator server a job was already dispatched to, so the
// cancellation cascades past the balancer's own bookkeeping (spec.md §4.6:
// "a session close cancels every outstanding job for that session" on both
// sides of that hop).
func (d *Dispatcher) CancelSession(sessionID ids.SessionID) {
	d.mu.Lock()
	jobs := make([]*Job, 0, len(d.bySession[sessionID]))
	for _, j := range d.bySession[sessionID] {
		jobs = append(jobs, j)
	}
	d.mu.Unlock()

	notified := make(map[ids.ServerUID]bool)
	for _, j := range jobs {
		if uid, ok := j.DispatchedAdapter(); ok && !notified[uid] {
			notified[uid] = true
			if adapter, ok := d.adapters.Get(uid); ok {
				_ = adapter.Send(messaging.NewSessionCancel(sessionID))
			}
		}
		j.Cancel()
	}
}

// FailAdapter fails every job currently pending a response through uid,
// e.g. because that translator server's connection dropped. Wired as the
// AdapterRegistry's onRemove hook.
func (d *Dispatcher) FailAdapter(uid ids.ServerUID) {
	d.mu.Lock()
	jobs := make([]*Job, 0)
	for _, j := range d.pending {
		if j.ServerUID() == uid {
			jobs = append(jobs, j)
		}
	}
	d.mu.Unlock()

	for _, j := range jobs {
		j.Fail()
		j.Execute()
	}
}

// SupportedLanguages answers a supp_lang_req with every language pair
// currently served by an online translator adapter.
func (d *Dispatcher) SupportedLanguages() map[string][]string {
	return d.adapters.SupportedLanguages()
}

// WaitAllDone blocks until sessionID has no jobs left pending, polling at
// waitPollInterval rather than using a condition variable, matching
// original_source's client_manager.hpp "1-second poll to avoid missed
// wakes". It returns early if ctx is cancelled.
func (d *Dispatcher) WaitAllDone(ctx context.Context, sessionID ids.SessionID) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		d.mu.Lock()
		n := len(d.bySession[sessionID])
		d.mu.Unlock()
		if n == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
