// Package translatorserver implements the per-request job orchestration a
// translator server runs (C6): it fans the sentences of one translation
// job out to a bounded worker pool and collects the decoder's results back
// in the original input order, per spec.md §4.6.
package translatorserver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/decoder"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/sourcegraph/conc/pool"
)

// Job tracks one in-flight translation request: which session it belongs
// to and a stop flag the owning session can raise to abort every sentence
// still decoding, per spec.md §4.6's "session-close cancellation via stop
// flags".
type Job struct {
	ID        ids.JobID
	SessionID ids.SessionID

	stop atomic.Bool
}

// NewJob creates a fresh, unreferenced job.
func NewJob(id ids.JobID, sessionID ids.SessionID) *Job {
	return &Job{ID: id, SessionID: sessionID}
}

// Cancel raises the job's stop flag; any sentence not yet finished
// decoding falls back to its untranslated source text.
func (j *Job) Cancel() {
	j.stop.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (j *Job) Cancelled() bool {
	return j.stop.Load()
}

// SentenceResult is one sentence's outcome within a job. Index preserves
// the sentence's position in the original request regardless of which
// worker finished it first.
type SentenceResult struct {
	Index     int
	Source    string
	Target    string
	StackLoad []int
	Err       error
}

// Server runs translation jobs against a fixed decoder with a bounded
// number of concurrent sentence workers. It also keeps a session-keyed
// registry of every job currently decoding, so a session_cancel message
// from the balancer (spec.md §4.6: "a session close cancels every
// outstanding job for that session by raising its stop flag") can reach
// every job belonging to that session, not just the one the message
// happened to arrive alongside.
type Server struct {
	Decoder    *decoder.Decoder
	MaxWorkers int

	mu   sync.Mutex
	jobs map[ids.SessionID]map[ids.JobID]*Job
}

// NewServer creates a Server. maxWorkers <= 0 means "let conc pick an
// unbounded pool size", matching pool.Pool's own default.
func NewServer(d *decoder.Decoder, maxWorkers int) *Server {
	return &Server{
		Decoder:    d,
		MaxWorkers: maxWorkers,
		jobs:       make(map[ids.SessionID]map[ids.JobID]*Job),
	}
}

// registerJob makes job reachable by CancelSession for its session until
// deregisterJob removes it.
func (s *Server) registerJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs[job.SessionID] == nil {
		s.jobs[job.SessionID] = make(map[ids.JobID]*Job)
	}
	s.jobs[job.SessionID][job.ID] = job
}

func (s *Server) deregisterJob(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.jobs[job.SessionID]; ok {
		delete(m, job.ID)
		if len(m) == 0 {
			delete(s.jobs, job.SessionID)
		}
	}
}

// CancelSession raises the stop flag on every job currently registered for
// sessionID, the translator-server half of the session-close cascade the
// balancer's Dispatcher.CancelSession drives on its own side.
func (s *Server) CancelSession(sessionID ids.SessionID) {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs[sessionID]))
	for _, job := range s.jobs[sessionID] {
		jobs = append(jobs, job)
	}
	s.mu.Unlock()

	for _, job := range jobs {
		job.Cancel()
	}
}

// Translate decodes every sentence of job concurrently, at most
// s.MaxWorkers at a time, and returns one SentenceResult per sentence in
// input order. A per-sentence decode error is captured on its result
// rather than aborting the whole job, so one malformed sentence never
// drops the rest of the request. job is registered under its session for
// the duration of the decode so a concurrent CancelSession can reach it.
func (s *Server) Translate(ctx context.Context, job *Job, sentences []string) []SentenceResult {
	s.registerJob(job)
	defer s.deregisterJob(job)

	p := pool.NewWithResults[SentenceResult]()
	if s.MaxWorkers > 0 {
		p = p.WithMaxGoroutines(s.MaxWorkers)
	}

	for i, sentence := range sentences {
		i, sentence := i, sentence
		p.Go(func() SentenceResult {
			result, err := s.Decoder.Translate(ctx, sentence, &job.stop)
			if err != nil {
				return SentenceResult{Index: i, Source: sentence, Err: fmt.Errorf("sentence %d: %w", i, err)}
			}
			return SentenceResult{Index: i, Source: sentence, Target: result.TargetSentence, StackLoad: result.StackLoad}
		})
	}

	results := p.Wait()

	ordered := make([]SentenceResult, len(sentences))
	for _, r := range results {
		ordered[r.Index] = r
	}
	return ordered
}
