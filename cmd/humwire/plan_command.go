package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/session"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var st session.State

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the soldering steps for a preset and wiring mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := ctx.registry()
			if err != nil {
				return err
			}
			logger := ctx.logger(cmd)
			logger.Debug("analyzing", "preset", st.Preset, "mode", st.Mode, "split", st.SplitCoil)

			a, err := session.Analyze(cmd.Context(), r, st)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, a)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n\n", a.Mode.Title())
			rows := make([][]string, 0, len(a.Steps))
			for _, s := range a.Steps {
				rows = append(rows, []string{strconv.Itoa(s.Number), s.Text})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Instruction"}, rows, []columnAlignment{alignRight, alignLeft}))
			fmt.Fprintf(out, "\n%s\n", a.Summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&st.Preset, "preset", "p", "Generic 4-conductor", "Color preset name")
	cmd.Flags().StringVarP(&st.Mode, "mode", "m", "standard", "Wiring mode: standard, split, series, parallel, out-of-phase")
	cmd.Flags().StringVar(&st.SplitCoil, "split", "", "Coil kept active in split mode: north or south")
	cmd.Flags().StringVar(&st.Convention, "convention", "", "Meter sign convention: rising-positive or rising-ground")
	return cmd
}
