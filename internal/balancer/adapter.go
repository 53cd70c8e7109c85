package balancer

import (
	"sync"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
)

// ConnAdapter is an Adapter backed by a live messaging.Conn to one
// connected translator server, grounded on translator_adapter.hpp: a uid,
// the languages it serves, and a send path to the underlying connection.
type ConnAdapter struct {
	uid        ids.ServerUID
	conn       *messaging.Conn
	sourceLang string
	targetLang string
}

// NewConnAdapter wraps conn as an adapter serving sourceLang->targetLang.
func NewConnAdapter(conn *messaging.Conn, sourceLang, targetLang string) *ConnAdapter {
	return &ConnAdapter{
		uid:        ids.NewServerUID(),
		conn:       conn,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
}

// UID implements Adapter.
func (a *ConnAdapter) UID() ids.ServerUID { return a.uid }

// Send implements Adapter.
func (a *ConnAdapter) Send(msg interface{}) error { return a.conn.Send(msg) }

// langPair is the key adapters are grouped by.
type langPair struct {
	source string
	target string
}

// AdapterRegistry tracks the translator adapters currently online, grouped
// by language pair, and round-robins job assignment within each group
// (original_source's balancer_server chooses among adapters for a pair
// with no documented preference order; round-robin is the simplest
// fairness policy consistent with that silence).
type AdapterRegistry struct {
	mu       sync.Mutex
	byPair   map[langPair][]Adapter
	next     map[langPair]int
	onRemove func(uid ids.ServerUID)
}

// NewAdapterRegistry creates an empty registry. onRemove, if non-nil, is
// invoked whenever an adapter is removed, letting the dispatcher fail any
// job still in flight through it.
func NewAdapterRegistry(onRemove func(uid ids.ServerUID)) *AdapterRegistry {
	return &AdapterRegistry{
		byPair:   make(map[langPair][]Adapter),
		next:     make(map[langPair]int),
		onRemove: onRemove,
	}
}

// Add registers an adapter for sourceLang->targetLang.
func (r *AdapterRegistry) Add(a Adapter, sourceLang, targetLang string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := langPair{sourceLang, targetLang}
	r.byPair[key] = append(r.byPair[key], a)
}

// Remove drops an adapter by uid from every language pair it was
// registered under, and invokes onRemove outside the lock (the same
// "close hook outside the lock" discipline the session registry uses).
func (r *AdapterRegistry) Remove(uid ids.ServerUID) {
	r.mu.Lock()
	removed := false
	for key, adapters := range r.byPair {
		for i, a := range adapters {
			if a.UID() == uid {
				r.byPair[key] = append(adapters[:i], adapters[i+1:]...)
				removed = true
				break
			}
		}
	}
	r.mu.Unlock()

	if removed && r.onRemove != nil {
		r.onRemove(uid)
	}
}

// Get returns the adapter currently registered under uid, if any, so a
// cancellation can be relayed to the specific translator server a job was
// dispatched through.
func (r *AdapterRegistry) Get(uid ids.ServerUID) (Adapter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, adapters := range r.byPair {
		for _, a := range adapters {
			if a.UID() == uid {
				return a, true
			}
		}
	}
	return nil, false
}

// Choose returns the next adapter for req's language pair in round-robin
// order, or nil if none are online.
func (r *AdapterRegistry) Choose(req *messaging.TransJobReq) Adapter {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := langPair{req.SourceLang, req.TargetLang}
	adapters := r.byPair[key]
	if len(adapters) == 0 {
		return nil
	}
	i := r.next[key] % len(adapters)
	r.next[key] = i + 1
	return adapters[i]
}

// SupportedLanguages returns the {source_lang: [target_lang...]} map of
// every language pair with at least one online adapter, the data
// supp_lang_resp answers with.
func (r *AdapterRegistry) SupportedLanguages() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]string)
	for key, adapters := range r.byPair {
		if len(adapters) == 0 {
			continue
		}
		out[key.source] = append(out[key.source], key.target)
	}
	return out
}
