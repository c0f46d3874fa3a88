package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nickybot/nicky-go/engine"
)

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Nicky",
		Long:  "Interactive chat. Requires ANTHROPIC_API_KEY. Each turn retrieves memory context and records the exchange.",
		Run:   runChat,
	}

	cmd.Flags().String("model", "", "Generation model (default: engine default)")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		exitErr("chat", fmt.Errorf("ANTHROPIC_API_KEY not set"))
	}

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

	client := anthropic.NewClient()
	opts := []engine.Option{
		engine.WithStore(s),
		engine.WithPresets(presets),
		engine.WithLogger(log),
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		opts = append(opts, engine.WithModel(model))
	}
	e := engine.NewEngine(engine.NewAnthropicGenerator(&client), pipeline, opts...)
	defer e.Close()

	state := personaState(presets)
	conversationID := uuid.NewString()
	var history []engine.Message

	fmt.Printf("Nicky is here (preset=%s chaos=%.0f mode=%s). Ctrl-D to leave.\n",
		state.Preset, state.ChaosLevel, state.Mode)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		out, err := e.Run(cmd.Context(), &engine.Input{
			UserMessage:    message,
			ProfileID:      profileID,
			ConversationID: conversationID,
			State:          state,
			History:        history,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		fmt.Println(out.Text)
		if verbose {
			fmt.Fprintf(os.Stderr, "[%s, %d entries, %dms]\n",
				out.Trace.RetrievalMethod, len(out.Entries), out.Trace.ExecutionMs)
		}

		history = append(history,
			engine.Message{Role: "user", Content: message},
			engine.Message{Role: "assistant", Content: out.Text},
		)
	}
}
