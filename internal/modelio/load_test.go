package modelio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadLMBuildsQueryableTrie(t *testing.T) {
	path := writeJSON(t, "lm.json", `{"entries":[
		{"words":["the"],"log_prob":-1.0,"back_off":-0.2},
		{"words":["the","cat"],"log_prob":-0.3,"back_off":0}
	]}`)

	trie, err := LoadLM(path)
	require.NoError(t, err)

	theID := trie.GetWordID("the")
	catID := trie.GetWordID("cat")
	require.NotEqual(t, lm.UnknownWordID, theID)
	require.NotEqual(t, lm.UnknownWordID, catID)

	score, err := trie.Execute([]lm.WordID{theID, catID})
	require.NoError(t, err)
	assert.Less(t, score, 0.0)
}

func TestLoadTMRegistersTranslations(t *testing.T) {
	path := writeJSON(t, "tm.json", `{"entries":[
		{"source":"the cat","translations":[{"target":"le chat","score":-0.1}]}
	]}`)

	model, err := LoadTM(path)
	require.NoError(t, err)

	entry, ok := model.LookupSpan(context.Background(), phrase.OfPhrase("the cat"))
	require.True(t, ok)
	require.Len(t, entry.Translations, 1)
	assert.Equal(t, "le chat", entry.Translations[0].TargetPhrase)
}

func TestLoadRMRegistersReorderings(t *testing.T) {
	path := writeJSON(t, "rm.json", `{"entries":[
		{"source":"the cat","target":"le chat","monotone":-0.1,"swap":-2.0,"discontinuous":-3.0}
	]}`)

	model, err := LoadRM(path)
	require.NoError(t, err)

	pair := rm.UIDPair{Source: phrase.OfPhrase("the cat"), Target: phrase.OfPhrase("le chat")}
	r, ok := model.Get(pair)
	require.True(t, ok)
	assert.Equal(t, -0.1, r.Monotone)
}

func TestLoadLMRejectsMissingFile(t *testing.T) {
	_, err := LoadLM(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
