// Package modelio loads the LM, TM and RM query interfaces a translator
// server needs at startup from plain JSON bundles. The concrete on-disk
// format of a trained model is explicitly out of scope (spec.md §7 Non-
// goals: "only the query interfaces matter here"); this package is the
// minimal bootstrap glue cmd/translator-server needs to populate those
// interfaces from a file path, not a reproduction of any real SMT model
// format.
package modelio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/lm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/phrase"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/rm"
	"github.com/ivan-zapreev/Distributed-Translation-Infrastructure-sub005/internal/tm"
)

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// lmFile is the JSON shape an LM bundle is decoded from: one entry per
// m-gram, 1 to lm.MaxLevel tokens long.
type lmFile struct {
	Entries []struct {
		Words   []string `json:"words"`
		LogProb float64  `json:"log_prob"`
		BackOff float64  `json:"back_off"`
	} `json:"entries"`
}

// LoadLM builds a frozen *lm.TrieLM from path.
func LoadLM(path string) (*lm.TrieLM, error) {
	var f lmFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}

	words := lm.NewWordIndex()
	trie := lm.NewTrieLM(words)
	for _, e := range f.Entries {
		wordIDs := make([]lm.WordID, len(e.Words))
		for i, w := range e.Words {
			wordIDs[i] = words.Add(w)
		}
		if err := trie.AddEntry(wordIDs, lm.Payload{LogProb: e.LogProb, BackOff: e.BackOff}); err != nil {
			return nil, fmt.Errorf("lm entry %v: %w", e.Words, err)
		}
	}
	trie.Freeze()
	return trie, nil
}

// tmFile is the JSON shape a TM bundle is decoded from: one entry per
// source phrase, with its candidate target translations.
type tmFile struct {
	Entries []struct {
		Source       string `json:"source"`
		Translations []struct {
			Target string  `json:"target"`
			Score  float64 `json:"score"`
		} `json:"translations"`
	} `json:"entries"`
}

// LoadTM builds a *tm.Model from path.
func LoadTM(path string) (*tm.Model, error) {
	var f tmFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}

	model := tm.NewModel()
	for _, e := range f.Entries {
		translations := make([]tm.TargetTranslation, len(e.Translations))
		for i, t := range e.Translations {
			translations[i] = tm.TargetTranslation{TargetPhrase: t.Target, Score: t.Score}
		}
		model.AddEntry(e.Source, translations)
	}
	return model, nil
}

// rmFile is the JSON shape an RM bundle is decoded from: one entry per
// source/target phrase pair, with its MSD orientation scores.
type rmFile struct {
	Entries []struct {
		Source        string  `json:"source"`
		Target        string  `json:"target"`
		Monotone      float64 `json:"monotone"`
		Swap          float64 `json:"swap"`
		Discontinuous float64 `json:"discontinuous"`
	} `json:"entries"`
}

// LoadRM builds a *rm.Model from path.
func LoadRM(path string) (*rm.Model, error) {
	var f rmFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}

	model := rm.NewModel()
	for _, e := range f.Entries {
		pair := rm.UIDPair{Source: phrase.OfPhrase(e.Source), Target: phrase.OfPhrase(e.Target)}
		model.AddEntry(pair, rm.Reordering{Monotone: e.Monotone, Swap: e.Swap, Discontinuous: e.Discontinuous})
	}
	return model, nil
}
