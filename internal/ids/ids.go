// Package ids provides the process-wide identifier types and monotone
// allocators used across the balancer and translator server: session ids,
// client/balancer job ids, and the stable server uid handed to translator
// adapters.
package ids

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionID identifies one client connection for the lifetime of its
// WebSocket session. The zero value is UndefinedSession.
type SessionID uint64

// UndefinedSession is the reserved sentinel session id, never allocated.
const UndefinedSession SessionID = 0

// JobID identifies a translation job, either as assigned by the client
// (client job id) or as re-issued by the balancer (balancer job id).
type JobID uint64

// UndefinedJobID is the reserved sentinel job id, never allocated.
const UndefinedJobID JobID = 0

// Manager allocates monotonically increasing ids starting at 1, so that
// the zero value stays reserved for "undefined". It is safe for concurrent
// use by multiple goroutines.
type Manager struct {
	next atomic.Uint64
}

// NewManager returns a Manager whose first allocated id is 1.
func NewManager() *Manager {
	return &Manager{}
}

// Next returns the next id in the sequence, starting at 1.
func (m *Manager) Next() uint64 {
	return m.next.Add(1)
}

// NextSessionID allocates the next SessionID.
func (m *Manager) NextSessionID() SessionID {
	return SessionID(m.Next())
}

// NextJobID allocates the next JobID.
func (m *Manager) NextJobID() JobID {
	return JobID(m.Next())
}

// ServerUID is a stable handle identifying one translation server adapter.
// It is backed by a UUID rather than a raw pointer, so that balancer jobs
// can reference an adapter without holding onto it (see balancer_job.hpp's
// m_adapter_uid, which is a plain integer, never a pointer).
type ServerUID uuid.UUID

// UndefinedServerUID is the sentinel returned before an adapter has been
// assigned to a job.
var UndefinedServerUID = ServerUID(uuid.Nil)

// NewServerUID allocates a fresh, random server uid.
func NewServerUID() ServerUID {
	return ServerUID(uuid.New())
}

// IsUndefined reports whether this is the sentinel value.
func (s ServerUID) IsUndefined() bool {
	return s == UndefinedServerUID
}

func (s ServerUID) String() string {
	return uuid.UUID(s).String()
}
