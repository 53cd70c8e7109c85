// Package session implements the session registry (C2): a shared,
// mutex-serialised bidirectional map between a connection handle and a
// session id, grounded on spec.md §4.2 and on the close/notify discipline
// already used by apps/gateway/src/tunnel.go's connection bookkeeping.
package session

import (
	"log/slog"
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
)

// Handle is any connection-like object the registry can track; in
// production it is a *messaging.Conn, but tests substitute fakes.
type Handle interface {
	Send(msg interface{}) error
}

// CloseHook is invoked once a session's mapping has been fully removed.
// It runs outside the registry lock so it is free to schedule further work
// (e.g. cascading job cancellation) without risking deadlock.
type CloseHook func(id ids.SessionID)

// Registry is the shared connection_handle <-> session_id map from
// spec.md §4.2. The zero value is not usable; construct with New.
type Registry struct {
	mgr *ids.Manager

	mu           sync.Mutex
	handleToID   map[Handle]ids.SessionID
	idToHandle   map[ids.SessionID]Handle

	onClose CloseHook
}

// New creates an empty Registry. onClose may be nil.
func New(onClose CloseHook) *Registry {
	return &Registry{
		mgr:        ids.NewManager(),
		handleToID: make(map[Handle]ids.SessionID),
		idToHandle: make(map[ids.SessionID]Handle),
		onClose:    onClose,
	}
}

// OpenSession allocates the next session id for handle and installs both
// directions of the mapping. A handle that is already open is a no-op,
// logged as a warning (duplicate opens are ignored, per spec.md §4.2), and
// returns the existing id.
func (r *Registry) OpenSession(handle Handle) ids.SessionID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.handleToID[handle]; ok {
		slog.Warn("duplicate session open ignored", "session_id", id)
		return id
	}

	id := r.mgr.NextSessionID()
	r.handleToID[handle] = id
	r.idToHandle[id] = handle
	return id
}

// CloseSession atomically removes both directions of the mapping for id,
// then invokes the close hook outside the lock.
func (r *Registry) CloseSession(id ids.SessionID) {
	r.mu.Lock()
	handle, ok := r.idToHandle[id]
	if ok {
		delete(r.idToHandle, id)
		delete(r.handleToID, handle)
	}
	r.mu.Unlock()

	if ok && r.onClose != nil {
		r.onClose(id)
	}
}

// CloseHandle is the handle-keyed equivalent of CloseSession, used when a
// connection goes away before its session id is known to the caller.
func (r *Registry) CloseHandle(handle Handle) {
	r.mu.Lock()
	id, ok := r.handleToID[handle]
	if ok {
		delete(r.idToHandle, id)
		delete(r.handleToID, handle)
	}
	r.mu.Unlock()

	if ok && r.onClose != nil {
		r.onClose(id)
	}
}

// SendResponse serialises and sends msg to the session's handle. It
// resolves the handle under the lock and sends outside of it, so a slow
// Send never blocks other registry operations. Returns false if the
// session has already expired; the caller decides whether to requeue or
// drop the message (spec.md §4.2).
func (r *Registry) SendResponse(id ids.SessionID, msg interface{}) bool {
	r.mu.Lock()
	handle, ok := r.idToHandle[id]
	r.mu.Unlock()

	if !ok {
		return false
	}

	if err := handle.Send(msg); err != nil {
		slog.Warn("failed to send response to session", "session_id", id, "error", err)
		return false
	}
	return true
}

// SessionFor returns the session id currently mapped to handle, if any. It
// lets a connection's own message callback resolve its session id on each
// call instead of a caller having to capture it from an outer variable that
// might not be assigned yet when the first message arrives.
func (r *Registry) SessionFor(handle Handle) (ids.SessionID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.handleToID[handle]
	return id, ok
}

// Lookup returns the handle associated with id, if any.
func (r *Registry) Lookup(id ids.SessionID) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.idToHandle[id]
	return h, ok
}

// Len returns the number of currently open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.idToHandle)
}
