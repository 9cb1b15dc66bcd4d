package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/assistant"
	"github.com/humwire/humwire/engine/knowledge"
	"github.com/humwire/humwire/engine/session"
	"github.com/humwire/humwire/pkg/ollama"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newAskCommand(ctx *commandContext) *cobra.Command {
	var (
		ollamaURL, model string
		stream, prefer   bool
		st               session.State
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the wiring assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.registry()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd)

			var llm assistant.LLM
			if model != "" {
				llm = ollama.New(ollamaURL, model, ollama.WithHTTPClient(&http.Client{Timeout: 2 * time.Minute}))
			}
			kb := knowledge.NewBase(nil, nil, logger)
			asst := assistant.New(llm, kb, r, assistant.DefaultConfig, logger)

			q := assistant.Question{Text: strings.Join(args, " "), State: st, PreferLLM: prefer}
			out := cmd.OutOrStdout()

			var ans assistant.Answer
			if stream && !ctx.jsonOutput {
				ans = asst.Stream(cmd.Context(), q, func(chunk string) error {
					_, err := fmt.Fprint(out, chunk)
					return err
				})
				if ans.Source == assistant.SourceFiltered {
					fmt.Fprintf(out, "\n\n%s", ans.Text)
				}
				fmt.Fprintln(out)
				logger.Debug("answered", "source", ans.Source, "reason", ans.Reason)
				return nil
			}

			ans = asst.Ask(cmd.Context(), q)
			logger.Debug("answered", "source", ans.Source, "reason", ans.Reason)
			if ctx.jsonOutput {
				return writeJSON(cmd, ans)
			}
			fmt.Fprintln(out, ans.Text)
			return nil
		},
	}

	cmd.Flags().StringVar(&ollamaURL, "ollama-url", envOr("OLLAMA_URL", "http://localhost:11434"), "Ollama base URL")
	cmd.Flags().StringVar(&model, "model", envOr("OLLAMA_MODEL", "llama3.1:8b"), "Ollama model; empty disables the model")
	cmd.Flags().BoolVar(&stream, "stream", false, "Print the answer as it is generated")
	cmd.Flags().BoolVar(&prefer, "prefer-llm", false, "Skip the built-in FAQ and ask the model first")
	cmd.Flags().IntVar(&st.Step, "step", 1, "Current wizard step, for context")
	cmd.Flags().StringVar(&st.Preset, "preset", "", "Preset in use, for context")
	cmd.Flags().StringVar(&st.Mode, "mode", "", "Wiring mode in use, for context")
	return cmd
}
