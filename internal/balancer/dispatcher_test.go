package balancer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []*messaging.TransJobResp
}

func (s *recordingSink) SendResponse(sessionID ids.SessionID, msg interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg.(*messaging.TransJobResp))
	return true
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestSubmitWithNoAdaptersRepliesImmediatelyWithError(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	sink := &recordingSink{}
	dispatcher := NewDispatcher(registry, sink)

	req := messaging.NewTransJobReq(1, "en", "fr", false, 0, []string{"hello"})
	job := dispatcher.Submit(ids.SessionID(7), req)

	assert.Equal(t, PhaseDone, job.Phase())
	require.Equal(t, 1, sink.count())
	assert.Equal(t, messaging.StatusResultError, sink.sent[0].StatCode)
}

func TestSubmitThenDeliverResponseCompletesJobAndClearsSession(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	adapter := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(adapter, "en", "fr")
	sink := &recordingSink{}
	dispatcher := NewDispatcher(registry, sink)

	req := messaging.NewTransJobReq(1, "en", "fr", false, 0, []string{"hello"})
	job := dispatcher.Submit(ids.SessionID(7), req)
	assert.Equal(t, PhaseResponse, job.Phase())

	resp := messaging.NewTransJobResp(job.BalJobID(), messaging.StatusOK, "", []messaging.SentenceStatus{{TransText: "bonjour"}})
	ok := dispatcher.DeliverResponse(job.BalJobID(), resp)
	require.True(t, ok)

	assert.Equal(t, PhaseDone, job.Phase())
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "bonjour", sink.sent[0].TargetData[0].TransText)

	require.NoError(t, dispatcher.WaitAllDone(context.Background(), ids.SessionID(7)))
}

func TestDeliverResponseForUnknownJobReturnsFalse(t *testing.T) {
	dispatcher := NewDispatcher(NewAdapterRegistry(nil), &recordingSink{})
	ok := dispatcher.DeliverResponse(ids.JobID(999), messaging.NewTransJobResp(999, messaging.StatusOK, "", nil))
	assert.False(t, ok)
}

func TestCancelSessionCancelsAllItsPendingJobs(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	adapter := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(adapter, "en", "fr")
	sink := &recordingSink{}
	dispatcher := NewDispatcher(registry, sink)

	req := messaging.NewTransJobReq(1, "en", "fr", false, 0, []string{"hello"})
	job := dispatcher.Submit(ids.SessionID(7), req)
	require.Equal(t, PhaseResponse, job.Phase())

	dispatcher.CancelSession(ids.SessionID(7))
	assert.Equal(t, StateCancelled, job.State())

	resp := messaging.NewTransJobResp(job.BalJobID(), messaging.StatusOK, "", nil)
	dispatcher.DeliverResponse(job.BalJobID(), resp)

	assert.Equal(t, PhaseDone, job.Phase())
	assert.Equal(t, 0, sink.count())
}

func TestFailAdapterFailsOnlyJobsPendingThroughIt(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	a1 := &stubAdapter{uid: ids.NewServerUID()}
	a2 := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(a1, "en", "fr")
	registry.Add(a2, "en", "fr")
	sink := &recordingSink{}
	dispatcher := NewDispatcher(registry, sink)

	req1 := messaging.NewTransJobReq(1, "en", "fr", false, 0, []string{"a"})
	req2 := messaging.NewTransJobReq(2, "en", "fr", false, 0, []string{"b"})
	job1 := dispatcher.Submit(ids.SessionID(1), req1)
	job2 := dispatcher.Submit(ids.SessionID(2), req2)

	require.Equal(t, a1.UID(), job1.ServerUID())
	require.Equal(t, a2.UID(), job2.ServerUID())

	dispatcher.FailAdapter(a1.UID())

	assert.Equal(t, PhaseDone, job1.Phase())
	assert.Equal(t, StateFailed, job1.State())
	assert.Equal(t, PhaseResponse, job2.Phase())
}

func TestWaitAllDoneReturnsWhenContextCancelled(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	adapter := &stubAdapter{uid: ids.NewServerUID()}
	registry.Add(adapter, "en", "fr")
	dispatcher := NewDispatcher(registry, &recordingSink{})

	req := messaging.NewTransJobReq(1, "en", "fr", false, 0, []string{"hello"})
	dispatcher.Submit(ids.SessionID(7), req) // left pending, never delivered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := dispatcher.WaitAllDone(ctx, ids.SessionID(7))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSupportedLanguagesDelegatesToRegistry(t *testing.T) {
	registry := NewAdapterRegistry(nil)
	registry.Add(&stubAdapter{uid: ids.NewServerUID()}, "en", "fr")
	dispatcher := NewDispatcher(registry, &recordingSink{})

	assert.Equal(t, registry.SupportedLanguages(), dispatcher.SupportedLanguages())
}
