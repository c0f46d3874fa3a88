// Package cli implements the nicky CLI commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/persona"
	"github.com/nickybot/nicky-go/retrieval"
	"github.com/nickybot/nicky-go/retrieval/embedder/mock"
	"github.com/nickybot/nicky-go/store/chromem"
	"github.com/nickybot/nicky-go/store/sqlite"
)

var (
	dbPath     string
	profileID  string
	presetName string
	chaosLevel float64
	modeFlag   string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "nicky",
	Short: "Persona memory and retrieval for Nicky",
	Long:  "Manage Nicky's persistent memory and run the contextual retrieval pipeline. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $NICKY_DB or ~/.nicky/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&profileID, "profile", "p", "nicky", "Persona profile id")
	RootCmd.PersistentFlags().StringVar(&presetName, "preset", "default", "Persona preset")
	RootCmd.PersistentFlags().Float64Var(&chaosLevel, "chaos", -1, "Chaos level 0-100 (default: preset base)")
	RootCmd.PersistentFlags().StringVar(&modeFlag, "mode", "", "Interaction mode: CHAT, PODCAST or STREAMING (default: preset)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	if env := os.Getenv("NICKY_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".nicky", "memory.db")
}

func openStore() (*sqlite.Store, error) {
	return sqlite.New(getDBPath())
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func loadPresets() *persona.Set {
	if path := os.Getenv("NICKY_PRESETS"); path != "" {
		if set, err := persona.Load(path); err == nil {
			return set
		} else {
			fmt.Fprintf(os.Stderr, "warning: presets file ignored: %v\n", err)
		}
	}
	return persona.Defaults()
}

func personaState(presets *persona.Set) core.PersonaState {
	return presets.State(presetName, chaosLevel, core.Mode(modeFlag))
}

// hydrateLimit caps how many stored entries are loaded into the
// in-memory semantic index per invocation.
const hydrateLimit = 10000

// newEmbedder returns the CLI's embedder. The hash-based embedder keeps
// the binary self-contained; builds with the onnx tag can swap in
// retrieval/embedder/onnx for model-backed vectors.
func newEmbedder() (retrieval.Embedder, error) {
	return retrieval.NewCachedEmbedder(mock.New(0), 4096)
}

// hydrateIndex loads the profile's persisted embeddings into the
// in-memory semantic index. Entries stored without an embedding stay
// lexical-only.
func hydrateIndex(ctx context.Context, st *sqlite.Store, index *chromem.Index, profile string) error {
	entries, err := st.ListActive(ctx, profile, hydrateLimit)
	if err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		if err := index.Index(ctx, e); err != nil {
			return fmt.Errorf("index entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// newPipeline assembles the full retrieval stack: an in-process vector
// index hydrated from the stored embeddings, the store's full-text
// index and provenance-scoped branches for transcripts and documents.
func newPipeline(ctx context.Context, st *sqlite.Store, presets *persona.Set, log *zap.Logger) (*retrieval.Pipeline, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}
	index, err := chromem.New(log)
	if err != nil {
		return nil, err
	}
	if err := hydrateIndex(ctx, st, index, profileID); err != nil {
		return nil, err
	}
	return retrieval.New(st,
		retrieval.WithEmbedder(embedder),
		retrieval.WithPresets(presets),
		retrieval.WithLogger(log),
		retrieval.WithSource(retrieval.NewSemanticSource(index)),
		retrieval.WithSource(retrieval.NewKeywordSource(st)),
		retrieval.WithSource(retrieval.NewScopedKeywordSource(st, "transcripts", "podcast_transcript")),
		retrieval.WithSource(retrieval.NewScopedKeywordSource(st, "documents", "document")),
		retrieval.WithSource(retrieval.NewScopedKeywordSource(st, "training", "training_example")),
		retrieval.WithSource(retrieval.NewConversationSource(st)),
	), nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
