package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humwire/humwire/engine/domain"
	"github.com/humwire/humwire/engine/phase"
)

// parseProbe reads "positive:ground:reading", where reading is either a
// signed meter delta or an observation such as "increase".
func parseProbe(s string) (phase.ProbeResult, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return phase.ProbeResult{}, fmt.Errorf("probe %q: want positive:ground:reading", s)
	}
	pos, gnd, reading := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
	if d, err := strconv.ParseFloat(reading, 64); err == nil {
		return phase.ProbeResult{Positive: pos, Ground: gnd, Delta: d}, nil
	}
	return phase.FromObservation(pos, gnd, reading)
}

func newPhaseCommand(ctx *commandContext) *cobra.Command {
	var (
		position, slot, polarity, convention string
		leads, probes                        []string
		swap                                 bool
	)

	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Work out which lead of a coil is the start from meter readings",
		Example: `  humwire phase --polarity north --leads Red,White --probe White:Red:increase
  humwire phase --leads Green,Black --polarity south --probe Green:Black:-0.3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(leads) != 2 {
				return domain.NewValidationError("leads", strings.Join(leads, ","), domain.ErrInvalidAssignment)
			}
			pol, err := domain.ParsePolarity(polarity)
			if err != nil {
				return err
			}
			conv, err := domain.ParseSignConvention(convention)
			if err != nil {
				return err
			}
			coil := phase.Coil{
				Position: domain.Position(position),
				Slot:     domain.Slot(slot),
				Polarity: pol,
				Leads:    [2]string{leads[0], leads[1]},
				Swap:     swap,
			}
			results := make([]phase.ProbeResult, 0, len(probes))
			for _, p := range probes {
				pr, err := parseProbe(p)
				if err != nil {
					return err
				}
				results = append(results, pr)
			}

			a, err := phase.Resolve(coil, results, conv)
			if err != nil {
				return err
			}
			if ctx.jsonOutput {
				return writeJSON(cmd, a)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s coil (%s): start %s, finish %s\n",
				position, slot, pol.Title(), a.Start, a.Finish)
			return nil
		},
	}

	cmd.Flags().StringVar(&position, "position", string(domain.Neck), "Pickup position: neck or bridge")
	cmd.Flags().StringVar(&slot, "slot", string(domain.Upper), "Coil slot: upper or lower")
	cmd.Flags().StringVar(&polarity, "polarity", "north", "Magnet polarity of the coil")
	cmd.Flags().StringSliceVar(&leads, "leads", nil, "The coil's two lead colors, comma separated")
	cmd.Flags().StringArrayVar(&probes, "probe", nil, "Reading as positive:ground:delta-or-observation (repeatable)")
	cmd.Flags().StringVar(&convention, "convention", "", "Meter sign convention: rising-positive or rising-ground")
	cmd.Flags().BoolVar(&swap, "swap", false, "Invert the resolved start and finish")
	return cmd
}
