package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickybot/nicky-go/core"
	"github.com/nickybot/nicky-go/retrieval"
	"github.com/nickybot/nicky-go/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Store a memory entry",
		Long:  "Store a new memory entry. Duplicate content (same canonical key) is ignored.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRemember,
	}

	cmd.Flags().String("type", "FACT", "Memory type: FACT, PREFERENCE, LORE, CONTEXT, STORY or ATOMIC")
	cmd.Flags().String("lane", "CANON", "Lane: CANON or RUMOR")
	cmd.Flags().Float64("importance", 50, "Importance 0-100")
	cmd.Flags().Float64("confidence", 80, "Confidence 0-100")
	cmd.Flags().StringSlice("keywords", nil, "Keywords (default: extracted from content)")
	cmd.Flags().String("source", "manual", "Provenance label")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	lane, _ := cmd.Flags().GetString("lane")
	importance, _ := cmd.Flags().GetFloat64("importance")
	confidence, _ := cmd.Flags().GetFloat64("confidence")
	keywords, _ := cmd.Flags().GetStringSlice("keywords")
	source, _ := cmd.Flags().GetString("source")
	content := strings.Join(args, " ")

	if len(keywords) == 0 {
		keywords = retrieval.ExtractKeywords(content)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	// Embed at write time so the semantic branch can find this entry on
	// later runs. Failure degrades the entry to lexical-only.
	var embedding []float32
	if emb, err := newEmbedder(); err == nil {
		if vec, err := emb.Embed(cmd.Context(), content); err == nil {
			embedding = vec
		} else {
			fmt.Fprintf(os.Stderr, "warning: embedding failed, stored lexical-only: %v\n", err)
		}
	}

	entry := &core.MemoryEntry{
		ProfileID:  profileID,
		Content:    content,
		Type:       core.MemoryType(strings.ToUpper(typ)),
		Lane:       core.Lane(strings.ToUpper(lane)),
		Importance: importance,
		Confidence: confidence,
		Keywords:   keywords,
		Embedding:  embedding,
		Source:     source,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	entry.Normalize()

	if err := s.Put(cmd.Context(), entry); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			fmt.Println("already known (duplicate canonical key)")
			return
		}
		exitErr("store entry", err)
	}

	printable := *entry
	printable.Embedding = nil // too noisy for terminal output
	b, _ := json.MarshalIndent(&printable, "", "  ")
	fmt.Println(string(b))
}
