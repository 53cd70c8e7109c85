package translatorserver

import (
	"context"
	"testing"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/decoder"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/ids"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/tm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestDecoder(t *testing.T) *decoder.Decoder {
	t.Helper()
	idx := lm.NewWordIndex()
	lmModel := lm.NewUnigramFallbackLM(idx)
	lmModel.SetUnigramProb("hi", -0.5)
	lmModel.SetUnigramProb("bye", -0.5)

	tmModel := tm.NewModel()
	tmModel.AddEntry("hello", []tm.TargetTranslation{{TargetPhrase: "hi", Score: -0.1}})
	tmModel.AddEntry("goodbye", []tm.TargetTranslation{{TargetPhrase: "bye", Score: -0.1}})

	d, err := decoder.New(lmModel, tmModel, rm.NewModel(), decoder.DefaultParams())
	require.NoError(t, err)
	return d
}

func TestTranslatePreservesInputOrder(t *testing.T) {
	srv := NewServer(buildTestDecoder(t), 2)
	job := NewJob(ids.JobID(1), ids.SessionID(1))

	sentences := []string{"hello", "goodbye", "hello"}
	results := srv.Translate(context.Background(), job, sentences)

	require.Len(t, results, 3)
	assert.Equal(t, "hi", results[0].Target)
	assert.Equal(t, "bye", results[1].Target)
	assert.Equal(t, "hi", results[2].Target)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Err)
	}
}

func TestTranslateCancelledJobFallsBackToSource(t *testing.T) {
	srv := NewServer(buildTestDecoder(t), 1)
	job := NewJob(ids.JobID(2), ids.SessionID(1))
	job.Cancel()

	results := srv.Translate(context.Background(), job, []string{"hello"})

	require.Len(t, results, 1)
	assert.Equal(t, "hello", results[0].Target)
}

func TestTranslateEmptyJobReturnsNoResults(t *testing.T) {
	srv := NewServer(buildTestDecoder(t), 1)
	job := NewJob(ids.JobID(3), ids.SessionID(1))

	results := srv.Translate(context.Background(), job, nil)
	assert.Empty(t, results)
}

func TestTranslateUnboundedWorkerCount(t *testing.T) {
	srv := NewServer(buildTestDecoder(t), 0)
	job := NewJob(ids.JobID(4), ids.SessionID(1))

	results := srv.Translate(context.Background(), job, []string{"hello", "hello", "hello"})
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, "hi", r.Target)
	}
}
