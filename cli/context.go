package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "context [message]",
		Short: "Run the retrieval pipeline for a message",
		Long:  "Run the full retrieval pipeline as one conversational turn would and print the selected context with its trace.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runContext,
	}

	RootCmd.AddCommand(cmd)
}

func runContext(cmd *cobra.Command, args []string) {
	message := strings.Join(args, " ")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	log := newLogger()
	presets := loadPresets()
	pipeline, err := newPipeline(cmd.Context(), s, presets, log)
	if err != nil {
		exitErr("build pipeline", err)
	}
	defer pipeline.Close()

	res := pipeline.RetrieveContext(cmd.Context(), message, profileID, "", personaState(presets))

	out := struct {
		Entries interface{} `json:"entries"`
		Trace   interface{} `json:"trace"`
		Gap     interface{} `json:"gap,omitempty"`
	}{
		Entries: res.Entries,
		Trace:   res.Trace,
		Gap:     res.Gap,
	}
	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
}
