package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickybot/nicky-go/core"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export active memories",
		Long:  "Export the profile's ACTIVE memories, importance first. Text format is meant for pasting into an LLM context window.",
		Run:   runExport,
	}

	cmd.Flags().StringP("format", "f", "text", "Output format: text or json")
	cmd.Flags().IntP("limit", "l", 0, "Max entries (default 500)")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	format, _ := cmd.Flags().GetString("format")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	entries, err := s.ListActive(cmd.Context(), profileID, limit)
	if err != nil {
		exitErr("export", err)
	}

	if format == "json" {
		b, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(b))
		return
	}

	fmt.Print(formatForLLM(profileID, entries))
}

// formatForLLM renders entries as a prompt-ready knowledge dump,
// grouped by type with the rumor lane clearly marked.
func formatForLLM(profile string, entries []*core.MemoryEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Memory export: %s (%d entries)\n", profile, len(entries))

	byType := make(map[core.MemoryType][]*core.MemoryEntry)
	for _, e := range entries {
		byType[e.Type] = append(byType[e.Type], e)
	}

	for _, typ := range []core.MemoryType{
		core.TypeFact, core.TypePreference, core.TypeStory,
		core.TypeLore, core.TypeAtomic, core.TypeContext,
	} {
		group := byType[typ]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n", typ)
		for _, e := range group {
			marker := ""
			if e.Lane == core.LaneRumor {
				marker = " [rumor]"
			}
			fmt.Fprintf(&b, "- %s%s (importance %.0f, confidence %.0f)\n",
				e.Content, marker, e.Importance, e.Confidence)
		}
	}
	return b.String()
}
