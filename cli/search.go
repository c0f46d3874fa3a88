package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nickybot/nicky-go/retrieval"
	"github.com/nickybot/nicky-go/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by keyword",
		Long:  "Full-text search over stored memories. Stopwords are stripped from the query first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("source", "", "Filter by provenance label")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	query := strings.Join(args, " ")

	keywords := retrieval.ExtractKeywords(query)
	if len(keywords) == 0 {
		fmt.Println("[]")
		return
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.SearchKeywords(cmd.Context(), store.SearchParams{
		ProfileID: profileID,
		Keywords:  keywords,
		Source:    source,
		Limit:     limit,
	})
	if err != nil {
		exitErr("search", err)
	}

	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
